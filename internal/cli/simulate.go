package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Trigger string
	Income  string
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Preview what a run would do",
		Long: `Plan an execution without moving any money.

The plan uses the same pipeline as a real run, so the transfers shown are
exactly the transfers an immediate run would apply.

Example:
  autofund simulate --trigger payday`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, income, err := parseRunInputs(opts.Trigger, opts.Income)
			if err != nil {
				return err
			}

			a, err := openApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			snap, err := a.store.Snapshot(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read budget", err)
			}
			snap.NewIncomeAmount = income

			plan := a.engine.Simulate(ctx, trigger, snap)

			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			if opts.Format == "json" {
				return formatter.Success(plan)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plan for trigger %s\n", plan.Trigger)
			fmt.Fprintf(out, "  Rules that would run: %d\n", plan.RulesPlanned)
			fmt.Fprintf(out, "  Total planned:        %s\n", plan.TotalPlanned.StringFixed(2))
			fmt.Fprintf(out, "  Cash remaining after: %s\n", plan.RemainingCash.StringFixed(2))
			for _, tr := range plan.Transfers {
				fmt.Fprintf(out, "  %s -> %-20s %s\n", tr.FromEnvelopeID, tr.ToEnvelopeID, tr.Amount.StringFixed(2))
			}
			for _, imp := range plan.Impacts {
				fmt.Fprintf(out, "  %-20s %s -> %s (%s%% -> %s%% of monthly)\n",
					imp.EnvelopeID,
					imp.BalanceBefore.StringFixed(2),
					imp.BalanceAfter.StringFixed(2),
					imp.FillBefore.String(),
					imp.FillAfter.String())
			}
			for _, w := range plan.Warnings {
				fmt.Fprintf(out, "  warning [%s]: %s\n", w.Code, w.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Trigger, "trigger", "manual", "trigger type to simulate")
	cmd.Flags().StringVar(&opts.Income, "income", "", "detected income amount (income_detected runs)")
	return cmd
}
