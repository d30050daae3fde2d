package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tablebook",
		Short:         "Restaurant table reservations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(NewTablesCmd())
	return cmd
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
