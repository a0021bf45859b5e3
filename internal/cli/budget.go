package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/autofund/internal/fund"
	"github.com/roach88/autofund/internal/store"
)

// NewBudgetCommand creates the budget command group.
func NewBudgetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect and edit envelopes and unassigned cash",
	}

	cmd.AddCommand(newBudgetShowCommand(rootOpts))
	cmd.AddCommand(newBudgetSetCashCommand(rootOpts))
	cmd.AddCommand(newBudgetEnvelopeCommand(rootOpts))
	return cmd
}

func newBudgetShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show envelopes and unassigned cash",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(rootOpts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			snap, err := st.Snapshot(context.Background())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read budget", err)
			}

			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(snap)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Unassigned cash: %s\n", snap.UnassignedCash.StringFixed(2))
			if len(snap.Envelopes) == 0 {
				fmt.Fprintln(out, "No envelopes.")
				return nil
			}
			fmt.Fprintln(out, "Envelopes:")
			for _, e := range snap.Envelopes {
				name := e.Name
				if name == "" {
					name = e.ID
				}
				fmt.Fprintf(out, "  %-20s %10s / %s monthly\n",
					name, e.CurrentBalance.StringFixed(2), e.MonthlyAmount.StringFixed(2))
			}
			return nil
		},
	}
}

func newBudgetSetCashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set-cash <amount>",
		Short:         "Set the unassigned cash balance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid amount %q", args[0]), err)
			}
			if amount.IsNegative() {
				return NewExitError(ExitCommandError, "unassigned cash cannot be negative")
			}

			st, err := store.Open(rootOpts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			if err := st.SetUnassignedCash(context.Background(), amount); err != nil {
				return WrapExitError(ExitCommandError, "failed to set unassigned cash", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(fmt.Sprintf("Unassigned cash set to %s", amount.StringFixed(2)))
		},
	}
}

// EnvelopeOptions holds flags for envelope add/update.
type EnvelopeOptions struct {
	Name    string
	Balance string
	Monthly string
}

func newBudgetEnvelopeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "Manage envelopes",
	}

	opts := &EnvelopeOptions{}
	add := &cobra.Command{
		Use:           "add <id>",
		Short:         "Create or update an envelope",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" || id == fund.Unassigned {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid envelope id %q", args[0]))
			}

			balance, err := decimal.NewFromString(opts.Balance)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --balance %q", opts.Balance), err)
			}
			monthly, err := decimal.NewFromString(opts.Monthly)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --monthly %q", opts.Monthly), err)
			}

			st, err := store.Open(rootOpts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			envelope := fund.Envelope{ID: id, Name: opts.Name, CurrentBalance: balance, MonthlyAmount: monthly}
			if err := st.UpsertEnvelope(context.Background(), envelope); err != nil {
				return WrapExitError(ExitCommandError, "failed to save envelope", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(fmt.Sprintf("Envelope %s saved", id))
		},
	}
	add.Flags().StringVar(&opts.Name, "name", "", "display name")
	add.Flags().StringVar(&opts.Balance, "balance", "0", "current balance")
	add.Flags().StringVar(&opts.Monthly, "monthly", "0", "monthly funding target")

	rm := &cobra.Command{
		Use:           "rm <id>",
		Short:         "Delete an envelope",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(rootOpts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			if err := st.DeleteEnvelope(context.Background(), args[0]); err != nil {
				return WrapExitError(ExitCommandError, "failed to delete envelope", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(fmt.Sprintf("Envelope %s deleted", args[0]))
		},
	}

	cmd.AddCommand(add)
	cmd.AddCommand(rm)
	return cmd
}
