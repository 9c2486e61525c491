// Package harness executes YAML conformance scenarios against a real
// pipeline, grant engine and role machine over a fresh in-memory
// store. A fake clock pinned at a fixed instant makes every run
// byte-identical, so transition traces can be held against golden
// files.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/congrego/rollcall/internal/checkin"
	"github.com/congrego/rollcall/internal/clock"
	"github.com/congrego/rollcall/internal/expiry"
	"github.com/congrego/rollcall/internal/privilege"
	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/role"
	"github.com/congrego/rollcall/internal/store"
)

// Every scenario starts at the same Sunday-morning instant.
var scenarioStart = time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)

// Harness holds the wired components for one scenario run.
type Harness struct {
	st       *store.Store
	clk      *clock.Fake
	pipeline *checkin.Pipeline
	manager  *privilege.Manager
	machine  *role.Machine
	monitor  *expiry.Monitor

	// memberIDs maps seeded names to ids for grant/revoke steps.
	memberIDs map[string]string
	// credentials stashes each grant's generated pair, keyed by
	// member name, for later activate steps.
	credentials map[string]record.Credentials
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh in-memory database and its own fake clock, so
// scenarios are isolated and reproducible.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clk := clock.NewFake(scenarioStart)
	machine := role.NewMachine()
	h := &Harness{
		st:          st,
		clk:         clk,
		pipeline:    checkin.New(st, clk),
		manager:     privilege.NewManager(st, clk),
		machine:     machine,
		monitor:     expiry.New(st, machine, clk, nil),
		memberIDs:   map[string]string{},
		credentials: map[string]record.Credentials{},
	}

	ctx := context.Background()
	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed scenario: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		outcome, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
		result.AddEvent(step.Op, outcome, h.pipeline.State().String(), h.roleLabel(step))
		if step.Expect != "" && step.Expect != outcome {
			result.AddError(fmt.Sprintf("steps[%d] (%s): expected outcome %q, got %q", i, step.Op, step.Expect, outcome))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, seed Seed) error {
	for _, m := range seed.Members {
		id := record.NewID()
		if err := h.st.InsertMember(ctx, record.Member{
			ID:           id,
			Name:         m.Name,
			PersonalCode: m.Code,
		}); err != nil {
			return err
		}
		h.memberIDs[m.Name] = id

		if m.Email == "" {
			continue
		}
		r := record.Role(m.Role)
		if m.Role == "" {
			r = record.RoleTeen
		}
		if !r.Valid() {
			return fmt.Errorf("seed member %q: invalid role %q", m.Name, m.Role)
		}
		if err := h.st.InsertAccount(ctx, record.Account{
			ID:           record.NewID(),
			Email:        m.Email,
			Password:     "seeded",
			Role:         r,
			PersonalCode: m.Code,
		}); err != nil {
			return err
		}
	}
	return nil
}

// execute runs one step and maps its result to an outcome label.
// Domain rejections become outcomes; infrastructure failures come
// back as errors and abort the scenario.
func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	switch step.Op {
	case OpScan:
		method := record.Method(step.Method)
		if step.Method == "" {
			method = record.MethodQRScan
		}
		_, err := h.pipeline.Scan(ctx, step.Code, method)
		switch {
		case err == nil:
			return OutcomeOK, nil
		case checkin.IsFormatError(err):
			return OutcomeRejectedFormat, nil
		case checkin.IsNotFound(err):
			return OutcomeRejectedLookup, nil
		default:
			return "", err
		}

	case OpConfirm:
		rec, err := h.pipeline.Confirm(ctx)
		switch {
		case errors.Is(err, checkin.ErrNoCandidate):
			return OutcomeNoop, nil
		case err != nil:
			return "", err
		case rec == nil:
			return OutcomeSkipped, nil
		default:
			return OutcomeOK, nil
		}

	case OpCancel:
		if err := h.pipeline.Cancel(); err != nil {
			return OutcomeNoop, nil
		}
		return OutcomeOK, nil

	case OpAck:
		h.pipeline.Acknowledge()
		return OutcomeOK, nil

	case OpUndo:
		undone, err := h.pipeline.Undo(ctx)
		if err != nil {
			return "", err
		}
		if !undone {
			return OutcomeNoop, nil
		}
		return OutcomeUndone, nil

	case OpAdvance:
		h.clk.Advance(time.Duration(step.Seconds) * time.Second)
		return OutcomeOK, nil

	case OpGrant:
		memberID, ok := h.memberIDs[step.Member]
		if !ok {
			return "", fmt.Errorf("unknown member %q", step.Member)
		}
		a, err := h.manager.CreateAssignment(ctx, memberID, step.By)
		switch {
		case privilege.IsConflict(err):
			return OutcomeConflict, nil
		case err != nil:
			return "", err
		}
		h.credentials[step.Member] = a.Credentials
		return OutcomeOK, nil

	case OpActivate:
		creds, err := h.lookupCredentials(ctx, step.Email)
		if err != nil {
			return "", err
		}
		a, err := h.manager.Activate(ctx, step.Email, creds.Username, creds.Password)
		switch {
		case privilege.IsCredentialMismatch(err):
			return OutcomeMismatch, nil
		case err != nil:
			return "", err
		}
		acct, err := h.st.AccountByEmail(ctx, step.Email)
		if err != nil {
			return "", err
		}
		if err := h.st.SetRole(ctx, acct.ID, record.RoleTempUsher, &a.ExpiresAt); err != nil {
			return "", err
		}
		if err := h.machine.GrantActivated(a.ExpiresAt); err != nil {
			return OutcomeError, nil
		}
		return OutcomeOK, nil

	case OpRevoke:
		a, err := h.st.LiveAssignmentByMember(ctx, h.memberIDs[step.Member], h.clk.Now())
		if err != nil {
			return "", err
		}
		if a == nil {
			return OutcomeNoop, nil
		}
		if _, err := h.manager.Revoke(ctx, a.ID); err != nil {
			return "", err
		}
		if s := h.machine.Session(); s.Email == a.MemberEmail && s.Role == record.RoleTempUsher {
			acct, err := h.st.AccountByEmail(ctx, a.MemberEmail)
			if err != nil {
				return "", err
			}
			if err := h.st.SetRole(ctx, acct.ID, record.RoleTeen, nil); err != nil {
				return "", err
			}
			if err := h.machine.GrantRevoked(); err != nil {
				return OutcomeError, nil
			}
		}
		return OutcomeOK, nil

	case OpLogin:
		acct, err := h.st.AccountByEmail(ctx, step.Email)
		if err != nil {
			return "", err
		}
		if acct == nil {
			return OutcomeRejectedLookup, nil
		}
		if err := h.machine.Login(*acct); err != nil {
			return OutcomeError, nil
		}
		return OutcomeOK, nil

	case OpLogout:
		h.machine.Logout()
		return OutcomeOK, nil

	case OpEvaluate:
		fired, err := h.monitor.Evaluate(ctx)
		if err != nil {
			return "", err
		}
		if !fired {
			return OutcomeNoop, nil
		}
		return OutcomeExpired, nil
	}

	return "", fmt.Errorf("unknown op %q", step.Op)
}

// lookupCredentials finds the stashed pair for the member behind the
// account email.
func (h *Harness) lookupCredentials(ctx context.Context, email string) (record.Credentials, error) {
	acct, err := h.st.AccountByEmail(ctx, email)
	if err != nil {
		return record.Credentials{}, err
	}
	if acct == nil {
		return record.Credentials{}, fmt.Errorf("no account for %q", email)
	}
	member, err := h.st.MemberByCode(ctx, acct.PersonalCode)
	if err != nil {
		return record.Credentials{}, err
	}
	if member == nil {
		return record.Credentials{}, fmt.Errorf("no member behind account %q", email)
	}
	creds, ok := h.credentials[member.Name]
	if !ok {
		return record.Credentials{}, fmt.Errorf("no grant step stashed credentials for %q", member.Name)
	}
	return creds, nil
}

// roleLabel annotates role-affecting steps with the session role
// after the step. Pipeline steps stay unannotated to keep traces
// tight.
func (h *Harness) roleLabel(step Step) string {
	switch step.Op {
	case OpGrant, OpActivate, OpRevoke, OpLogin, OpLogout, OpEvaluate:
		return string(h.machine.Session().Role)
	}
	return ""
}
