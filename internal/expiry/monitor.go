// Package expiry watches the signed-in session's grant deadline and
// downgrades the account the moment it passes.
//
// The monitor arms one delayed timer for the deadline instead of
// polling. Session changes rearm it, so activating, revoking or
// logging out always leaves the timer matching the live session.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/congrego/rollcall/internal/clock"
	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/role"
	"github.com/congrego/rollcall/internal/store"
)

// ResetHook runs after a downgrade so the surface can rebuild itself
// around the reduced permissions.
type ResetHook func(role.Session)

// Monitor enforces grant deadlines against the role machine and the
// store.
type Monitor struct {
	st      *store.Store
	machine *role.Machine
	clk     clock.Clock
	reset   ResetHook

	// rearm wakes Run when the session's deadline may have moved.
	rearm chan struct{}
}

// New wires a monitor to the machine. It subscribes for session
// changes immediately; call Run to start enforcement.
func New(st *store.Store, machine *role.Machine, clk clock.Clock, reset ResetHook) *Monitor {
	m := &Monitor{
		st:      st,
		machine: machine,
		clk:     clk,
		reset:   reset,
		rearm:   make(chan struct{}, 1),
	}
	machine.Subscribe(func(role.Event, role.Session) {
		select {
		case m.rearm <- struct{}{}:
		default:
		}
	})
	return m
}

// Countdown returns the time left on the session's grant. Zero when
// no deadline applies or it has already passed. Advisory display
// helper.
func (m *Monitor) Countdown() time.Duration {
	s := m.machine.Session()
	if s.ExpiresAt == nil {
		return 0
	}
	d := s.ExpiresAt.Sub(m.clk.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Evaluate downgrades the session once if its deadline has passed.
//
// The persisted role flips back to teen with the deadline cleared,
// the machine emits the expiry transition, and the reset hook fires.
// Returns true when a downgrade happened. Harmless to call when
// nothing is due.
func (m *Monitor) Evaluate(ctx context.Context) (bool, error) {
	s := m.machine.Session()
	if s.Role != record.RoleTempUsher || s.ExpiresAt == nil {
		return false, nil
	}
	if m.clk.Now().Before(*s.ExpiresAt) {
		return false, nil
	}

	if err := m.st.SetRole(ctx, s.AccountID, record.RoleTeen, nil); err != nil {
		return false, err
	}
	if err := m.machine.GrantExpired(); err != nil {
		// Session moved under us; the store write above is still the
		// correct durable state.
		slog.Debug("expiry raced a session change", "error", err)
		return false, nil
	}

	slog.Info("grant expired", "account_id", s.AccountID, "deadline", s.ExpiresAt)
	if m.reset != nil {
		m.reset(m.machine.Session())
	}
	return true, nil
}

// Run enforces deadlines until ctx is cancelled.
//
// With no deadline in the session it sleeps until a session change.
// With one, it arms a timer for the remaining interval and evaluates
// when it fires. Detection lags the deadline by at most the timer's
// scheduling jitter, well under a second.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if armed := m.armDeadline(timer); !armed {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.rearm:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.rearm:
			drainTimer(timer)
		case <-timer.C:
			if _, err := m.Evaluate(ctx); err != nil {
				slog.Error("expiry evaluation failed", "error", err)
				// Back off briefly so a wedged store is not hammered.
				timer.Reset(time.Second)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
	}
}

// armDeadline points the timer at the session deadline. False when
// the session carries none.
func (m *Monitor) armDeadline(timer *time.Timer) bool {
	s := m.machine.Session()
	if s.Role != record.RoleTempUsher || s.ExpiresAt == nil {
		return false
	}
	drainTimer(timer)
	d := s.ExpiresAt.Sub(m.clk.Now())
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
	return true
}

func drainTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
