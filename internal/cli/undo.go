package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/autofund/internal/engine"
	"github.com/roach88/autofund/internal/fund"
)

// NewUndoCommand creates the undo command group.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo [execution-id]",
		Short: "Reverse a recent execution",
		Long: `Reverse the transfers of a recent execution.

With no argument the most recent still-reversible execution is undone.
Each execution can be undone at most once.

Example:
  autofund undo
  autofund undo 0198c5b2-7f3a-7000-8000-1234567890ab`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(rootOpts, args, cmd)
		},
	}

	cmd.AddCommand(newUndoListCommand(rootOpts))
	return cmd
}

func runUndo(rootOpts *RootOptions, args []string, cmd *cobra.Command) error {
	a, err := openApp(rootOpts)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	var record fund.ExecutionRecord
	if len(args) == 1 {
		record, err = a.engine.Undo().Undo(ctx, args[0])
	} else {
		record, err = a.engine.Undo().UndoLast(ctx)
	}

	// Partial reversals still moved money; persist before reporting.
	if saveErr := a.saveExecutionState(ctx); saveErr != nil && err == nil {
		err = saveErr
	}
	if err != nil {
		var ue *engine.UndoError
		if errors.As(err, &ue) {
			switch ue.Code {
			case engine.UndoErrPartial:
				return WrapExitError(ExitFailure,
					fmt.Sprintf("undo incomplete: %d transfer(s) reversed, %d remaining", ue.Reversed, ue.Remaining), err)
			default:
				return WrapExitError(ExitFailure, "nothing to undo", err)
			}
		}
		return WrapExitError(ExitCommandError, "undo failed", err)
	}

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
	if rootOpts.Format == "json" {
		return formatter.Success(record)
	}
	return formatter.Success(fmt.Sprintf("Reversed execution %s (%s returned to unassigned cash)",
		record.OriginalExecutionID, record.TotalFunded.Neg().StringFixed(2)))
}

func newUndoListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List executions that can still be undone",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			undoable := a.engine.Undo().Undoable()
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(undoable)
			}

			out := cmd.OutOrStdout()
			if len(undoable) == 0 {
				fmt.Fprintln(out, "Nothing to undo.")
				return nil
			}
			for _, item := range undoable {
				fmt.Fprintf(out, "%s  %s  %-16s %s\n",
					item.ExecutionID,
					item.ExecutedAt.Format("2006-01-02 15:04"),
					item.Trigger,
					item.TotalAmount.StringFixed(2))
			}
			return nil
		},
	}
}
