package cli

import (
	"context"

	"github.com/congrego/rollcall/internal/checkin"
	"github.com/congrego/rollcall/internal/clock"
	"github.com/congrego/rollcall/internal/expiry"
	"github.com/congrego/rollcall/internal/privilege"
	"github.com/congrego/rollcall/internal/profile"
	"github.com/congrego/rollcall/internal/record"
	"github.com/congrego/rollcall/internal/role"
	"github.com/congrego/rollcall/internal/store"
)

// App is the wired application for one command invocation: the open
// store, the loaded profile, and the domain components on top.
type App struct {
	Store    *store.Store
	Profile  profile.Profile
	Clock    clock.Clock
	Pipeline *checkin.Pipeline
	Manager  *privilege.Manager
	Machine  *role.Machine
	Monitor  *expiry.Monitor
}

// openApp opens the database, loads the profile and builds the
// components. The caller must Close the returned app.
//
// If a session is persisted, its account is signed in on the machine
// and any lapsed grant deadline is settled immediately, so every
// command starts from enforced role state.
func openApp(ctx context.Context, opts *RootOptions) (*App, error) {
	prof := profile.Default()
	if opts.Profile != "" {
		var err error
		prof, err = profile.Load(opts.Profile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load profile", err)
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	clk := clock.System{}
	machine := role.NewMachine()
	app := &App{
		Store:   st,
		Profile: prof,
		Clock:   clk,
		Pipeline: checkin.New(st, clk,
			checkin.WithService(prof.Service),
			checkin.WithLocation(prof.Location),
			checkin.WithUndoWindow(prof.UndoWindow()),
		),
		Manager: privilege.NewManager(st, clk,
			privilege.WithExpiry(prof.ExpiryHour, prof.ExpiryMinute),
		),
		Machine: machine,
		Monitor: expiry.New(st, machine, clk, nil),
	}

	if err := app.resumeSession(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return app, nil
}

// resumeSession signs the persisted session's account back in and
// settles any grant deadline that passed while no command was
// running.
func (a *App) resumeSession(ctx context.Context) error {
	acct, err := a.Store.SessionAccount(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load session", err)
	}
	if acct == nil {
		return nil
	}
	if err := a.Machine.Login(*acct); err != nil {
		return WrapExitError(ExitCommandError, "failed to resume session", err)
	}
	if _, err := a.Monitor.Evaluate(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to settle grant deadline", err)
	}
	return nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	return a.Store.Close()
}

// Session returns the current session.
func (a *App) Session() role.Session {
	return a.Machine.Session()
}

// requireRole fails unless the session holds one of the given roles.
func (a *App) requireRole(roles ...record.Role) error {
	s := a.Session()
	if s.Guest() {
		return NewExitError(ExitCommandError, "not signed in; run 'rollcall login' first")
	}
	for _, r := range roles {
		if s.Role == r {
			return nil
		}
	}
	return NewExitError(ExitCommandError, "signed-in role '"+string(s.Role)+"' may not run this command")
}
