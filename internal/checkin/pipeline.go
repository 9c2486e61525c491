package checkin

import (
	"context"
	"log/slog"
	"time"

	"github.com/congrego/rollcall/internal/clock"
	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/store"
)

// State is the pipeline's observable state.
type State int

const (
	// StateIdle means no intake is in progress and no undo is open.
	StateIdle State = iota
	// StateAwaitingConfirmation means a resolved member is displayed
	// and the operator must confirm before anything is written.
	StateAwaitingConfirmation
	// StateRejected means the last scan failed validation or lookup
	// and is waiting for the operator to acknowledge the error.
	StateRejected
	// StateUndoWindowOpen means a commit just landed and can still be
	// reversed.
	StateUndoWindowOpen
)

// String returns the state's stable name, used in traces and output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateRejected:
		return "rejected"
	case StateUndoWindowOpen:
		return "undo-window-open"
	default:
		return "unknown"
	}
}

// DefaultUndoWindow is how long a commit stays reversible.
const DefaultUndoWindow = 5 * time.Second

// Defaults stamped on every record when no profile overrides them.
const (
	DefaultService  = "Teens Service"
	DefaultLocation = "Main Hall"
)

// Pipeline is the check-in state machine:
//
//	Idle → Scanned → AwaitingConfirmation → Committed → (UndoWindowOpen) → Idle
//	              ↘ Rejected → Idle
//
// Scanned is transient inside Scan: validation and lookup run
// immediately, landing in AwaitingConfirmation or Rejected.
//
// Nothing is written until the operator confirms the resolved member.
//
// The undo slot holds at most the single most recent commit; it is
// overwritten by the next commit and judged against the injected
// clock, never a background timer.
//
// Not safe for concurrent use. The pipeline belongs to one operator
// loop, matching the single-writer discipline of the store.
type Pipeline struct {
	st         *store.Store
	clk        clock.Clock
	service    string
	location   string
	undoWindow time.Duration

	intake    State // StateIdle, StateAwaitingConfirmation or StateRejected
	candidate *record.Member
	method    record.Method
	rejection error

	undo *undoSlot
}

// undoSlot remembers the one record that can still be taken back.
type undoSlot struct {
	recordID    string
	committedAt time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithService overrides the service stamped on committed records.
func WithService(service string) Option {
	return func(p *Pipeline) { p.service = service }
}

// WithLocation overrides the location stamped on committed records.
func WithLocation(location string) Option {
	return func(p *Pipeline) { p.location = location }
}

// WithUndoWindow overrides the undo window duration.
func WithUndoWindow(d time.Duration) Option {
	return func(p *Pipeline) { p.undoWindow = d }
}

// New creates an idle pipeline over the given store and clock.
func New(st *store.Store, clk clock.Clock, opts ...Option) *Pipeline {
	p := &Pipeline{
		st:         st,
		clk:        clk,
		service:    DefaultService,
		location:   DefaultLocation,
		undoWindow: DefaultUndoWindow,
		intake:     StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current observable state. An elapsed undo window
// collapses to Idle here; the slot is dropped lazily on observation.
func (p *Pipeline) State() State {
	if p.intake == StateIdle && p.undoLive() {
		return StateUndoWindowOpen
	}
	return p.intake
}

// Scan feeds a candidate identifier from one of the intake channels.
//
// On success the resolved member is held for confirmation. On a
// malformed code or unknown member the pipeline moves to Rejected and
// returns the error; no record is written either way.
func (p *Pipeline) Scan(ctx context.Context, code string, method record.Method) (*record.Member, error) {
	if p.intake != StateIdle {
		return nil, ErrBusy
	}

	if err := ValidateCode(code); err != nil {
		p.intake = StateRejected
		p.rejection = err
		slog.Debug("scan rejected", "reason", "format", "input", code)
		return nil, err
	}

	member, err := Lookup(ctx, p.st, code)
	if err != nil {
		if IsNotFound(err) {
			p.intake = StateRejected
			p.rejection = err
			slog.Debug("scan rejected", "reason", "not-found", "code", code)
		}
		return nil, err
	}

	p.intake = StateAwaitingConfirmation
	p.candidate = member
	p.method = method
	slog.Debug("candidate resolved", "member", member.Name, "method", string(method))
	return member, nil
}

// Candidate returns the member awaiting confirmation, or nil.
func (p *Pipeline) Candidate() *record.Member {
	if p.intake != StateAwaitingConfirmation {
		return nil
	}
	return p.candidate
}

// Rejection returns the error behind a Rejected state, or nil.
func (p *Pipeline) Rejection() error {
	if p.intake != StateRejected {
		return nil
	}
	return p.rejection
}

// Acknowledge clears a rejection and returns the pipeline to Idle.
func (p *Pipeline) Acknowledge() {
	if p.intake == StateRejected {
		p.intake = StateIdle
		p.rejection = nil
	}
}

// Cancel discards the candidate without writing anything.
func (p *Pipeline) Cancel() error {
	if p.intake != StateAwaitingConfirmation {
		return ErrNoCandidate
	}
	p.intake = StateIdle
	p.candidate = nil
	return nil
}

// Confirm commits the awaiting candidate.
//
// The candidate's account is resolved by personal code and one
// attendance record is written with the current wall-clock timestamp
// and the originating channel's method tag. The undo window opens on
// success.
//
// When the member has no registered account the commit is skipped but
// Confirm still returns success with a nil record, matching the
// long-standing observed behavior of the original tool. Callers that
// care can tell the cases apart by the nil.
//
// A store failure returns WriteFailureError and leaves the pipeline in
// AwaitingConfirmation so the same candidate can be retried without
// re-scanning.
func (p *Pipeline) Confirm(ctx context.Context) (*record.AttendanceRecord, error) {
	if p.intake != StateAwaitingConfirmation {
		return nil, ErrNoCandidate
	}

	acct, err := p.st.AccountByCode(ctx, p.candidate.PersonalCode)
	if err != nil {
		return nil, &WriteFailureError{Err: err}
	}
	if acct == nil {
		slog.Warn("confirmed member has no account, commit skipped",
			"member", p.candidate.Name,
			"code", p.candidate.PersonalCode,
		)
		p.intake = StateIdle
		p.candidate = nil
		return nil, nil
	}

	rec := record.AttendanceRecord{
		ID:        record.NewID(),
		AccountID: acct.ID,
		Method:    p.method,
		Service:   p.service,
		Location:  p.location,
		Timestamp: p.clk.Now(),
	}
	if err := p.st.InsertAttendance(ctx, rec); err != nil {
		// Candidate kept: operator retries Confirm without re-scanning.
		return nil, &WriteFailureError{Err: err}
	}

	p.intake = StateIdle
	p.candidate = nil
	p.undo = &undoSlot{recordID: rec.ID, committedAt: rec.Timestamp}

	slog.Info("attendance committed",
		"record_id", rec.ID,
		"account_id", rec.AccountID,
		"method", string(rec.Method),
	)
	return &rec, nil
}

// Undo reverses the most recent commit if its window is still open.
//
// Exactly the record from that commit is deleted; nothing else is
// touched. Returns false without error when the window has elapsed,
// the slot is empty, or undo was already used - all quiet no-ops.
func (p *Pipeline) Undo(ctx context.Context) (bool, error) {
	if !p.undoLive() {
		return false, nil
	}

	deleted, err := p.st.DeleteAttendance(ctx, p.undo.recordID)
	if err != nil {
		// Slot kept: a transient store failure can be retried while
		// the window is still open.
		return false, &WriteFailureError{Err: err}
	}

	slog.Info("attendance undone", "record_id", p.undo.recordID)
	p.undo = nil
	return deleted, nil
}

// UndoRemaining returns how long the undo affordance stays open.
// Zero when no undo is available. Advisory, for countdown display.
func (p *Pipeline) UndoRemaining() time.Duration {
	if !p.undoLive() {
		return 0
	}
	return p.undo.committedAt.Add(p.undoWindow).Sub(p.clk.Now())
}

// undoLive checks the slot against the clock, dropping it once the
// window has elapsed. The record stands permanently at that point.
func (p *Pipeline) undoLive() bool {
	if p.undo == nil {
		return false
	}
	if p.clk.Now().Sub(p.undo.committedAt) >= p.undoWindow {
		p.undo = nil
		return false
	}
	return true
}
