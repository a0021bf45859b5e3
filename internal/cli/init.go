package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/autofund/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the budget database",
		Long: `Create the SQLite database (or migrate an existing one) at the path
given by --db.

Example:
  autofund init --db ./budget.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(rootOpts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize database", err)
			}
			defer st.Close()

			formatter := &OutputFormatter{
				Format:  rootOpts.Format,
				Writer:  cmd.OutOrStdout(),
				Verbose: rootOpts.Verbose,
			}
			return formatter.Success(fmt.Sprintf("Database ready at %s", rootOpts.Database))
		},
	}
}
