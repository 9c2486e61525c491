package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congrego/rollcall/internal/privilege"
	"github.com/congrego/rollcall/internal/record"
)

// NewGrantCommand creates the grant command group.
func NewGrantCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Manage temporary usher privileges",
		Long: `Manage temporary usher privileges.

A grant elevates a member's account until the next noon. Creation and
revocation are admin operations; activation is done by the member with
the generated credentials.`,
	}

	cmd.AddCommand(newGrantCreateCommand(rootOpts))
	cmd.AddCommand(newGrantListCommand(rootOpts))
	cmd.AddCommand(newGrantActivateCommand(rootOpts))
	cmd.AddCommand(newGrantRevokeCommand(rootOpts))
	return cmd
}

func newGrantCreateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <personal-code>",
		Short: "Grant temporary usher privileges to a member",
		Long: `Grant temporary usher privileges to the member behind a personal
code. Prints the one-time credentials the member activates with. The
grant expires at the next noon; a member can hold only one live grant.

Example:
  rollcall grant create 54321`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrantCreate(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runGrantCreate(cmd *cobra.Command, opts *RootOptions, code string) error {
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

	if err := app.requireRole(record.RoleAdmin); err != nil {
		return err
	}

	member, err := app.Store.MemberByCode(ctx, code)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up member", err)
	}
	if member == nil {
		_ = out.Error(ErrCodeNotFound, "no member under that code", nil)
		return NewExitError(ExitFailure, "no member under that code")
	}

	a, err := app.Manager.CreateAssignment(ctx, member.ID, app.Session().Email)
	switch {
	case privilege.IsConflict(err):
		_ = out.Error(ErrCodeConflict, "member already holds a live grant", err.Error())
		return WrapExitError(ExitFailure, "member already holds a live grant", err)
	case errors.Is(err, privilege.ErrNoAccount):
		_ = out.Error(ErrCodeNoAccount, "member has no registered account", nil)
		return WrapExitError(ExitFailure, "member has no registered account", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to create grant", err)
	}

	if opts.Format == "json" {
		return out.Success(a)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Granted temporary usher privileges to %s\n", a.MemberName)
	fmt.Fprintf(cmd.OutOrStdout(), "  Assignment: %s\n", a.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "  Username:   %s\n", a.Credentials.Username)
	fmt.Fprintf(cmd.OutOrStdout(), "  Password:   %s\n", a.Credentials.Password)
	fmt.Fprintf(cmd.OutOrStdout(), "  Expires:    %s\n", a.ExpiresAt.Format("Mon 15:04"))
	return nil
}

func newGrantListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List live grants",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrantList(cmd, rootOpts)
		},
	}
	return cmd
}

func runGrantList(cmd *cobra.Command, opts *RootOptions) error {
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

	if err := app.requireRole(record.RoleAdmin); err != nil {
		return err
	}

	grants, err := app.Manager.ListActive(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list grants", err)
	}

	if opts.Format == "json" {
		return out.Success(grants)
	}
	if len(grants) == 0 {
		return out.Success("No live grants")
	}
	for _, a := range grants {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s expires %s\n", a.ID, a.MemberName, a.ExpiresAt.Format("Mon 15:04"))
	}
	return nil
}

// GrantActivateOptions holds flags for grant activate.
type GrantActivateOptions struct {
	*RootOptions
	Username string
	Password string
}

func newGrantActivateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GrantActivateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a grant with its generated credentials",
		Long: `Activate the live grant for the signed-in account.

On an exact credential match the account becomes a temporary usher
until the grant's deadline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrantActivate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "generated grant username (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "generated grant password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runGrantActivate(cmd *cobra.Command, opts *GrantActivateOptions) error {
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

	if err := app.requireRole(record.RoleTeen); err != nil {
		return err
	}

	session := app.Session()
	a, err := app.Manager.Activate(ctx, session.Email, opts.Username, opts.Password)
	switch {
	case privilege.IsCredentialMismatch(err):
		_ = out.Error(ErrCodeMismatch, "credentials do not match a live grant", nil)
		return WrapExitError(ExitFailure, "credentials do not match a live grant", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to activate grant", err)
	}

	if err := app.Store.SetRole(ctx, session.AccountID, record.RoleTempUsher, &a.ExpiresAt); err != nil {
		return WrapExitError(ExitCommandError, "failed to elevate account", err)
	}
	if err := app.Machine.GrantActivated(a.ExpiresAt); err != nil {
		return WrapExitError(ExitCommandError, "failed to elevate session", err)
	}

	return out.Success(fmt.Sprintf("Temporary usher until %s", a.ExpiresAt.Format("Mon 15:04")))
}

func newGrantRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "revoke <personal-code>",
		Short:         "Revoke a member's live grant before its deadline",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrantRevoke(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runGrantRevoke(cmd *cobra.Command, opts *RootOptions, code string) error {
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

	if err := app.requireRole(record.RoleAdmin); err != nil {
		return err
	}

	member, err := app.Store.MemberByCode(ctx, code)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up member", err)
	}
	if member == nil {
		_ = out.Error(ErrCodeNotFound, "no member under that code", nil)
		return NewExitError(ExitFailure, "no member under that code")
	}

	a, err := app.Store.LiveAssignmentByMember(ctx, member.ID, app.Clock.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up grant", err)
	}
	if a == nil {
		_ = out.Error(ErrCodeNotFound, "member holds no live grant", nil)
		return NewExitError(ExitFailure, "member holds no live grant")
	}

	if _, err := app.Manager.Revoke(ctx, a.ID); err != nil {
		return WrapExitError(ExitCommandError, "failed to revoke grant", err)
	}

	// If the revoked member's account is already elevated, downgrade
	// it now rather than at the stale deadline.
	acct, err := app.Store.AccountByEmail(ctx, a.MemberEmail)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up account", err)
	}
	if acct != nil && acct.Role == record.RoleTempUsher {
		if err := app.Store.SetRole(ctx, acct.ID, record.RoleTeen, nil); err != nil {
			return WrapExitError(ExitCommandError, "failed to downgrade account", err)
		}
	}

	return out.Success(fmt.Sprintf("Revoked grant %s for %s", a.ID, a.MemberName))
}
