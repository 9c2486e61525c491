package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congrego/rollcall/internal/checkin"
	"github.com/congrego/rollcall/internal/record"
)

// EnrollOptions holds flags for the enroll command.
type EnrollOptions struct {
	*RootOptions
	Name     string
	Code     string
	Area     string
	Guardian string
	Email    string
	Password string
	Role     string
}

// NewEnrollCommand creates the enroll command.
func NewEnrollCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnrollOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a member, optionally with a login account",
		Long: `Enroll a new member under a 5-digit personal code.

With --email and --password an account is created alongside, so the
member can be checked in and can later receive temporary privileges.

Example:
  rollcall enroll --name "Ama Serwaa" --code 54321 --email ama@example.com --password s3cret
  rollcall enroll --name "Afia Mensah" --code 67890`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnroll(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "member name (required)")
	cmd.Flags().StringVar(&opts.Code, "code", "", "5-digit personal code (required)")
	cmd.Flags().StringVar(&opts.Area, "area", "", "residential area")
	cmd.Flags().StringVar(&opts.Guardian, "guardian", "", "guardian name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	cmd.Flags().StringVar(&opts.Role, "role", string(record.RoleTeen), "account role (teen|usher|admin)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("code")

	return cmd
}

func runEnroll(cmd *cobra.Command, opts *EnrollOptions) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := checkin.ValidateCode(opts.Code); err != nil {
		_ = out.Error(ErrCodeRejectedFormat, "invalid personal code", err.Error())
		return WrapExitError(ExitFailure, "invalid personal code", err)
	}
	if (opts.Email == "") != (opts.Password == "") {
		return NewExitError(ExitCommandError, "--email and --password must be given together")
	}
	r := record.Role(opts.Role)
	if !r.Valid() || r == record.RoleGuest || r == record.RoleTempUsher {
		return NewExitError(ExitCommandError, "role must be teen, usher or admin")
	}

	ctx := cmd.Context()
	app, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	member := record.Member{
		ID:           record.NewID(),
		Name:         opts.Name,
		Area:         opts.Area,
		GuardianName: opts.Guardian,
		PersonalCode: opts.Code,
	}
	if err := app.Store.InsertMember(ctx, member); err != nil {
		return WrapExitError(ExitCommandError, "failed to enroll member", err)
	}

	if opts.Email != "" {
		acct := record.Account{
			ID:           record.NewID(),
			Email:        opts.Email,
			Password:     opts.Password,
			Role:         r,
			PersonalCode: opts.Code,
		}
		if err := app.Store.InsertAccount(ctx, acct); err != nil {
			return WrapExitError(ExitCommandError, "failed to create account", err)
		}
	}

	if opts.Format == "json" {
		return out.Success(member)
	}
	msg := fmt.Sprintf("Enrolled %s under code %s", member.Name, member.PersonalCode)
	if opts.Email != "" {
		msg += fmt.Sprintf(" with %s account %s", opts.Role, opts.Email)
	}
	return out.Success(msg)
}
