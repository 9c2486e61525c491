package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Email    string
	Password string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Long: `Sign in with an account email and password.

The session is persisted in the database, so later commands run under
this account's role until 'rollcall logout'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *LoginOptions) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	app, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	acct, err := app.Store.AccountByEmail(ctx, opts.Email)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up account", err)
	}
	if acct == nil || acct.Password != opts.Password {
		_ = out.Error(ErrCodeBadLogin, "unknown email or wrong password", nil)
		return NewExitError(ExitFailure, "unknown email or wrong password")
	}

	if err := app.Store.SaveSession(ctx, acct.ID); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist session", err)
	}

	return out.Success(fmt.Sprintf("Signed in as %s (%s)", acct.Email, acct.Role))
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "logout",
		Short:         "Sign out and clear the session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, rootOpts)
		},
	}
	return cmd
}

func runLogout(cmd *cobra.Command, opts *RootOptions) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	app, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Store.ClearSession(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to clear session", err)
	}
	app.Machine.Logout()

	return out.Success("Signed out")
}
