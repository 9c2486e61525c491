package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congrego/rollcall/internal/record"
)

// AttendanceOptions holds flags for the attendance command.
type AttendanceOptions struct {
	*RootOptions
	Limit int
}

// NewAttendanceCommand creates the attendance command.
func NewAttendanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttendanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "attendance",
		Short:         "List recent attendance records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttendance(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum records to list, newest first")

	return cmd
}

func runAttendance(cmd *cobra.Command, opts *AttendanceOptions) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, "--limit must be positive")
	}

	ctx := cmd.Context()
	app, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireRole(record.RoleAdmin); err != nil {
		return err
	}

	records, err := app.Store.ListAttendance(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list attendance", err)
	}

	if opts.Format == "json" {
		return out.Success(records)
	}
	if len(records) == 0 {
		return out.Success("No attendance records")
	}
	for _, r := range records {
		acct, err := app.Store.AccountByID(ctx, r.AccountID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to resolve account", err)
		}
		who := r.AccountID
		if acct != nil {
			who = acct.Email
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-28s %-14s %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), who, r.Method, r.Service)
	}
	return nil
}
