package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
)

func NewTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage restaurant tables",
	}
	cmd.AddCommand(newTablesAddCmd())
	cmd.AddCommand(newTablesListCmd())
	return cmd
}

func newTablesAddCmd() *cobra.Command {
	var (
		name  string
		seats int
		price string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			pricePerHour, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := ucReservation.NewAddTable(a.repo).Execute(cmd.Context(), ucReservation.AddTableInput{
				Name:         name,
				Seats:        seats,
				PricePerHour: pricePerHour,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %d created\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "table name")
	cmd.Flags().IntVar(&seats, "seats", 0, "number of seats")
	cmd.Flags().StringVar(&price, "price", "0", "price per hour")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("seats")
	return cmd
}

func newTablesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tables and their occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tables, err := a.repo.ListTables(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSEATS\tSTATUS\tGUEST\tPRICE/H")
			for _, t := range tables {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
					t.ID, t.Name, t.Seats, t.Status, t.Guest, t.PricePerHour.StringFixed(2))
			}
			return w.Flush()
		},
	}
}
