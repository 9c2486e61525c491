package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/congrego/rollcall/internal/checkin"
	"github.com/congrego/rollcall/internal/record"
)

// CheckinOptions holds flags for the checkin command.
type CheckinOptions struct {
	*RootOptions
	Method string
	Search string
	Yes    bool
}

// NewCheckinCommand creates the checkin command.
func NewCheckinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkin [code]",
		Short: "Check a member in by personal code or name search",
		Long: `Check a member in.

Give a 5-digit personal code directly, or use --search to find the
member by name. The resolved member is shown for confirmation before
anything is written; after the commit, ENTER within the undo window
reverses it.

Requires a signed-in usher, admin, or temporary usher.

Example:
  rollcall checkin 54321
  rollcall checkin 54321 --method "BOL-Key Entry" --yes
  rollcall checkin --search "ama"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ""
			if len(args) == 1 {
				code = args[0]
			}
			return runCheckin(cmd, opts, code)
		},
	}

	cmd.Flags().StringVar(&opts.Method, "method", string(record.MethodKeyEntry), "intake method tag")
	cmd.Flags().StringVar(&opts.Search, "search", "", "find the member by name instead of code")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt and the undo wait")

	return cmd
}

func runCheckin(cmd *cobra.Command, opts *CheckinOptions, code string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if code == "" && opts.Search == "" {
		return NewExitError(ExitCommandError, "give a personal code or --search")
	}
	if code != "" && opts.Search != "" {
		return NewExitError(ExitCommandError, "give either a code or --search, not both")
	}

	ctx := cmd.Context()
	app, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireRole(record.RoleUsher, record.RoleAdmin, record.RoleTempUsher); err != nil {
		return err
	}

	method := record.Method(opts.Method)
	if !method.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown method %q", opts.Method))
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	if opts.Search != "" {
		method = record.MethodSmartSearch
		code, err = resolveSearch(cmd, app, opts, reader)
		if err != nil {
			return err
		}
	}

	member, err := app.Pipeline.Scan(ctx, code, method)
	switch {
	case checkin.IsFormatError(err):
		app.Pipeline.Acknowledge()
		_ = out.Error(ErrCodeRejectedFormat, "invalid personal code", err.Error())
		return WrapExitError(ExitFailure, "invalid personal code", err)
	case checkin.IsNotFound(err):
		app.Pipeline.Acknowledge()
		_ = out.Error(ErrCodeRejectedLookup, "no member under that code", err.Error())
		return WrapExitError(ExitFailure, "no member under that code", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "scan failed", err)
	}

	if !opts.Yes {
		fmt.Fprintf(cmd.OutOrStdout(), "Check in %s (code %s)? [Y/n] ", member.Name, member.PersonalCode)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer != "" && answer != "y" && answer != "yes" {
			_ = app.Pipeline.Cancel()
			return out.Success("Cancelled, nothing written")
		}
	}

	rec, err := app.Pipeline.Confirm(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write attendance record", err)
	}
	if rec == nil {
		return out.Success(fmt.Sprintf("Checked in %s (no registered account, nothing recorded)", member.Name))
	}

	if opts.Format == "json" {
		return out.Success(rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Checked in %s at %s via %s\n",
		member.Name, rec.Timestamp.Format("15:04:05"), rec.Method)

	if !opts.Yes {
		if undone, err := offerUndo(cmd, app, reader); err != nil {
			return err
		} else if undone {
			fmt.Fprintln(cmd.OutOrStdout(), "Check-in undone")
		}
	}
	return nil
}

// resolveSearch finds a single member by folded name match. One hit is
// taken directly; several are listed for the operator to pick.
func resolveSearch(cmd *cobra.Command, app *App, opts *CheckinOptions, reader *bufio.Reader) (string, error) {
	matches, err := checkin.SearchMembers(cmd.Context(), app.Store, opts.Search)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "search failed", err)
	}
	if len(matches) == 0 {
		return "", NewExitError(ExitFailure, fmt.Sprintf("no member matches %q", opts.Search))
	}
	if len(matches) == 1 {
		return matches[0].PersonalCode, nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d members match:\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (code %s)\n", i+1, m.Name, m.PersonalCode)
	}
	fmt.Fprint(cmd.OutOrStdout(), "Pick one: ")
	line, _ := reader.ReadString('\n')
	var pick int
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "%d", &pick); err != nil || pick < 1 || pick > len(matches) {
		return "", NewExitError(ExitFailure, "no valid selection")
	}
	return matches[pick-1].PersonalCode, nil
}

// offerUndo keeps the undo affordance open: ENTER before the window
// closes reverses the commit.
func offerUndo(cmd *cobra.Command, app *App, reader *bufio.Reader) (bool, error) {
	remaining := app.Pipeline.UndoRemaining()
	if remaining <= 0 {
		return false, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Press ENTER within %.0fs to undo... ", remaining.Seconds())

	pressed := make(chan struct{})
	go func() {
		if _, err := reader.ReadString('\n'); err == nil {
			close(pressed)
		}
	}()

	select {
	case <-pressed:
		undone, err := app.Pipeline.Undo(cmd.Context())
		if err != nil {
			return false, WrapExitError(ExitCommandError, "undo failed", err)
		}
		return undone, nil
	case <-time.After(remaining):
		fmt.Fprintln(cmd.OutOrStdout(), "window closed")
		return false, nil
	}
}
