package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/autofund/internal/fund"
	"github.com/roach88/autofund/internal/rules"
)

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage auto-funding rules",
	}

	cmd.AddCommand(newRulesListCommand(rootOpts))
	cmd.AddCommand(newRulesAddCommand(rootOpts))
	cmd.AddCommand(newRulesRemoveCommand(rootOpts))
	cmd.AddCommand(newRulesToggleCommand(rootOpts))
	cmd.AddCommand(newRulesDuplicateCommand(rootOpts))
	cmd.AddCommand(newRulesStatsCommand(rootOpts))
	return cmd
}

// RulesListOptions holds flags for the rules list command.
type RulesListOptions struct {
	Type        string
	Trigger     string
	Search      string
	EnabledOnly bool
}

func newRulesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesListOptions{}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List rules",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			filter := rules.Filter{
				Type:    fund.RuleType(opts.Type),
				Trigger: fund.TriggerType(opts.Trigger),
				Search:  opts.Search,
			}
			if opts.EnabledOnly {
				enabled := true
				filter.Enabled = &enabled
			}
			matched := a.rules.Filter(filter)

			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(matched)
			}

			out := cmd.OutOrStdout()
			if len(matched) == 0 {
				fmt.Fprintln(out, "No rules.")
				return nil
			}
			for _, r := range matched {
				state := "enabled"
				if !r.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(out, "%-12s p%-4d %-16s %-16s %-8s %s\n",
					r.ID, r.Priority, r.Type, r.Trigger, state, r.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by rule type")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", "", "filter by trigger")
	cmd.Flags().StringVar(&opts.Search, "search", "", "filter by name/description substring")
	cmd.Flags().BoolVar(&opts.EnabledOnly, "enabled", false, "only enabled rules")
	return cmd
}

func newRulesAddCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add -f <file.yaml>",
		Short: "Add rules from a YAML file",
		Long: `Add one or more rules from a YAML file.

The file may hold a single rule document or a list under a "rules" key.
Every rule must pass validation; one invalid rule rejects the file.

Example:
  autofund rules add -f rules.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := LoadRuleFile(file)
			if err != nil {
				return err
			}

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			added := make([]fund.Rule, 0, len(loaded))
			for _, r := range loaded {
				stored, err := a.rules.Add(r)
				if err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("rule %q rejected", r.Name), err)
				}
				added = append(added, stored)
			}
			if err := a.saveRules(context.Background()); err != nil {
				return err
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return formatter.Success(added)
			}
			return formatter.Success(fmt.Sprintf("Added %d rule(s)", len(added)))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with rules (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRulesRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <rule-id>",
		Short:         "Delete a rule",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.rules.Delete(args[0]); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("rule %s", args[0]), err)
			}
			if err := a.saveRules(context.Background()); err != nil {
				return err
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(fmt.Sprintf("Rule %s deleted", args[0]))
		},
	}
}

func newRulesToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "toggle <rule-id>",
		Short:         "Enable or disable a rule",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			enabled, err := a.rules.Toggle(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("rule %s", args[0]), err)
			}
			if err := a.saveRules(context.Background()); err != nil {
				return err
			}

			state := "disabled"
			if enabled {
				state = "enabled"
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(fmt.Sprintf("Rule %s %s", args[0], state))
		},
	}
}

func newRulesDuplicateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "duplicate <rule-id>",
		Short:         "Copy a rule (the copy starts disabled)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			copied, err := a.rules.Duplicate(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("rule %s", args[0]), err)
			}
			if err := a.saveRules(context.Background()); err != nil {
				return err
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return formatter.Success(copied)
			}
			return formatter.Success(fmt.Sprintf("Rule %s duplicated as %s", args[0], copied.ID))
		},
	}
}

func newRulesStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show rule statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			stats := a.rules.Statistics()
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rules: %d total, %d enabled, %d disabled\n", stats.Total, stats.Enabled, stats.Disabled)
			fmt.Fprintf(out, "Total executions: %d\n", stats.TotalExecutions)
			if stats.LastExecuted != nil {
				fmt.Fprintf(out, "Last executed: %s\n", stats.LastExecuted.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}
