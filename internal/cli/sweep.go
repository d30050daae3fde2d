package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
)

// NewSweepCmd runs a single sweep, for deployments driven by an external cron.
func NewSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one background sweep and exit",
	}
	cmd.AddCommand(newSweepExpireCmd())
	cmd.AddCommand(newSweepNotifyCmd())
	return cmd
}

func newSweepExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Archive and delete reservations whose end has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			uc := ucReservation.NewExpireReservations(a.repo, a.events, a.logger, a.now, a.cfg.ExpireBatchSize)
			out, err := uc.Execute(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newSweepNotifyCmd() *cobra.Command {
	var window, grace int

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send ending-soon alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			in := ucReservation.SweepDueSoonInput{
				WindowMinutes: a.cfg.NotifyWindowMinutes,
				GraceMinutes:  a.cfg.NotifyGraceMinutes,
			}
			if cmd.Flags().Changed("window") {
				in.WindowMinutes = window
			}
			if cmd.Flags().Changed("grace") {
				in.GraceMinutes = grace
			}

			uc := ucReservation.NewSweepDueSoon(a.repo, a.notifier, a.logger, a.now)
			out, err := uc.Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&window, "window", 0, "minutes before the end to alert")
	cmd.Flags().IntVar(&grace, "grace", 0, "minutes past the end still alerted")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
