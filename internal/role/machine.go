// Package role tracks the current operator session as an explicit
// state machine over the account roles.
//
// The machine holds one Session value at a time; there is no ambient
// global. Transitions are driven by events (login, logout, grant
// activation, expiry, revocation) and anything not listed in the
// transition table is rejected with a *TransitionError.
package role

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/congrego/rollcall/internal/record"
)

// Event names a role transition trigger.
type Event string

const (
	EventLogin          Event = "login"
	EventLogout         Event = "logout"
	EventGrantActivated Event = "grant-activated"
	EventGrantExpired   Event = "grant-expired"
	EventGrantRevoked   Event = "grant-revoked"
)

// Session is the signed-in operator. The zero value is the guest
// session: no account, RoleGuest.
type Session struct {
	AccountID string
	Email     string
	Role      record.Role
	ExpiresAt *time.Time
}

// Guest reports whether nobody is signed in.
func (s Session) Guest() bool {
	return s.AccountID == ""
}

// TransitionError is returned when an event is not legal from the
// current role.
type TransitionError struct {
	From  record.Role
	To    record.Role
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s on %s", e.From, e.To, e.Event)
}

// Listener observes applied transitions. Called synchronously under
// the machine's lock; keep it fast and do not call back in.
type Listener func(Event, Session)

// Machine serializes session transitions behind a mutex so the
// expiration monitor's goroutine and the CLI thread never race.
type Machine struct {
	mu        sync.Mutex
	session   Session
	listeners []Listener
}

func NewMachine() *Machine {
	return &Machine{session: Session{Role: record.RoleGuest}}
}

// Session returns a copy of the current session.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Subscribe registers a listener for every applied transition.
func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Login moves from guest to the account's persisted role. A tempUsher
// account resumes with its stored deadline so an unexpired grant
// survives a restart.
func (m *Machine) Login(acct record.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.Guest() {
		return &TransitionError{From: m.session.Role, To: acct.Role, Event: EventLogin}
	}
	m.apply(EventLogin, Session{
		AccountID: acct.ID,
		Email:     acct.Email,
		Role:      acct.Role,
		ExpiresAt: acct.ExpiresAt,
	})
	return nil
}

// Logout returns any session to guest. Legal from every role; a
// guest logout is a no-op without an event.
func (m *Machine) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Guest() {
		return
	}
	m.apply(EventLogout, Session{Role: record.RoleGuest})
}

// GrantActivated elevates the signed-in teen to tempUsher with the
// grant's deadline attached.
func (m *Machine) GrantActivated(expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Role != record.RoleTeen {
		return &TransitionError{From: m.session.Role, To: record.RoleTempUsher, Event: EventGrantActivated}
	}
	next := m.session
	next.Role = record.RoleTempUsher
	next.ExpiresAt = &expiresAt
	m.apply(EventGrantActivated, next)
	return nil
}

// GrantExpired downgrades an in-session tempUsher back to teen at the
// deadline.
func (m *Machine) GrantExpired() error {
	return m.downgrade(EventGrantExpired)
}

// GrantRevoked downgrades an in-session tempUsher back to teen after
// an administrative revocation.
func (m *Machine) GrantRevoked() error {
	return m.downgrade(EventGrantRevoked)
}

func (m *Machine) downgrade(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Role != record.RoleTempUsher {
		return &TransitionError{From: m.session.Role, To: record.RoleTeen, Event: ev}
	}
	next := m.session
	next.Role = record.RoleTeen
	next.ExpiresAt = nil
	m.apply(ev, next)
	return nil
}

// apply commits the transition and notifies listeners. Caller holds
// the lock.
func (m *Machine) apply(ev Event, next Session) {
	from := m.session.Role
	m.session = next
	slog.Debug("role transition", "event", string(ev), "from", string(from), "to", string(next.Role))
	for _, l := range m.listeners {
		l(ev, next)
	}
}
