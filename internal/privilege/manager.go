// Package privilege manages temporary usher grants: time-boxed
// elevations of a member's account, each expiring at the next noon
// after it is assigned.
//
// At most one live grant exists per member. The check and the insert
// happen in a single store transaction, so concurrent admins cannot
// both succeed.
package privilege

import (
	"context"
	"log/slog"

	"github.com/congrego/rollcall/internal/clock"
	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/store"
)

// Manager creates, activates, lists and revokes privilege assignments.
type Manager struct {
	st  *store.Store
	clk clock.Clock

	expiryHour   int
	expiryMinute int
}

// Option tunes a Manager.
type Option func(*Manager)

// WithExpiry overrides the daily deadline mark.
func WithExpiry(hour, minute int) Option {
	return func(m *Manager) {
		m.expiryHour = hour
		m.expiryMinute = minute
	}
}

func NewManager(st *store.Store, clk clock.Clock, opts ...Option) *Manager {
	m := &Manager{
		st:           st,
		clk:          clk,
		expiryHour:   DefaultExpiryHour,
		expiryMinute: DefaultExpiryMinute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateAssignment grants temporary usher privileges to the member.
//
// The member must have a registered account (ErrNoAccount otherwise).
// If a live assignment already exists the call fails with
// *ConflictError and nothing is written. On success the returned
// assignment carries freshly generated credentials and an ExpiresAt at
// the next daily deadline.
func (m *Manager) CreateAssignment(ctx context.Context, memberID, assignedBy string) (*record.PrivilegeAssignment, error) {
	member, err := m.st.MemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrUnknownMember
	}

	acct, err := m.st.AccountByCode(ctx, member.PersonalCode)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrNoAccount
	}

	now := m.clk.Now()
	a := record.PrivilegeAssignment{
		ID:          record.NewID(),
		MemberID:    member.ID,
		MemberEmail: acct.Email,
		MemberName:  member.Name,
		Credentials: GenerateCredentials(member.PersonalCode, now),
		AssignedBy:  assignedBy,
		AssignedAt:  now,
		ExpiresAt:   NextExpiry(now, m.expiryHour, m.expiryMinute),
		Status:      record.AssignmentActive,
	}

	inserted, err := m.st.InsertAssignmentIfNoneLive(ctx, a, now)
	if err != nil {
		return nil, err
	}
	if !inserted {
		existing, err := m.st.LiveAssignmentByMember(ctx, member.ID, now)
		if err != nil {
			return nil, err
		}
		ce := &ConflictError{MemberID: member.ID}
		if existing != nil {
			ce.ExistingID = existing.ID
		}
		return nil, ce
	}

	slog.Info("assignment created",
		"assignment_id", a.ID,
		"member", a.MemberName,
		"expires_at", a.ExpiresAt,
	)
	return &a, nil
}

// Activate validates the presented credentials against the live
// assignment for the account's email.
//
// Both username and password must match exactly; anything else,
// including the absence of a live assignment, is a
// *CredentialMismatchError. The caller flips the account to its
// temporary role and stamps the deadline on success.
func (m *Manager) Activate(ctx context.Context, email, username, password string) (*record.PrivilegeAssignment, error) {
	a, err := m.st.LiveAssignmentByEmail(ctx, email, m.clk.Now())
	if err != nil {
		return nil, err
	}
	if a == nil || a.Credentials.Username != username || a.Credentials.Password != password {
		return nil, &CredentialMismatchError{Email: email}
	}

	slog.Info("assignment activated", "assignment_id", a.ID, "email", email)
	return a, nil
}

// Revoke marks the assignment revoked before its deadline. Returns
// false when the id is unknown or the assignment was already revoked.
func (m *Manager) Revoke(ctx context.Context, id string) (bool, error) {
	revoked, err := m.st.RevokeAssignment(ctx, id)
	if err != nil {
		return false, err
	}
	if revoked {
		slog.Info("assignment revoked", "assignment_id", id)
	}
	return revoked, nil
}

// ListActive returns the assignments that are active and unexpired
// right now.
func (m *Manager) ListActive(ctx context.Context) ([]record.PrivilegeAssignment, error) {
	return m.st.ListLiveAssignments(ctx, m.clk.Now())
}
