package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/BruksfildServices01/table-reservations/internal/routes"
	"github.com/BruksfildServices01/table-reservations/internal/scheduler"
	ucReservation "github.com/BruksfildServices01/table-reservations/internal/usecase/reservation"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the background sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := a.migrate(); err != nil {
					return err
				}
			}

			if a.cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run migrations before serving")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	router := routes.NewRouter(routes.Dependencies{
		Config:   a.cfg,
		Repo:     a.repo,
		Events:   a.events,
		Notifier: a.notifier,
		Logger:   a.logger,
		Clock:    a.now,
	})

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("addr", srv.Addr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	for _, job := range sweepJobs(a) {
		g.Go(func() error {
			if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	a.logger.Info("server stopped")
	return err
}

// sweepJobs skips a sweep whose interval is not positive.
func sweepJobs(a *app) []*scheduler.Job {
	expireUC := ucReservation.NewExpireReservations(a.repo, a.events, a.logger, a.now, a.cfg.ExpireBatchSize)
	notifyUC := ucReservation.NewSweepDueSoon(a.repo, a.notifier, a.logger, a.now)

	var jobs []*scheduler.Job

	if a.cfg.ExpireInterval > 0 {
		jobs = append(jobs, &scheduler.Job{
			Name:     "expire",
			Interval: a.cfg.ExpireInterval,
			Locker:   a.locker,
			Logger:   a.logger,
			Task: func(ctx context.Context) error {
				_, err := expireUC.Execute(ctx)
				return err
			},
		})
	}

	if a.cfg.NotifyInterval > 0 {
		in := ucReservation.SweepDueSoonInput{
			WindowMinutes: a.cfg.NotifyWindowMinutes,
			GraceMinutes:  a.cfg.NotifyGraceMinutes,
		}
		jobs = append(jobs, &scheduler.Job{
			Name:     "notify",
			Interval: a.cfg.NotifyInterval,
			Locker:   a.locker,
			Logger:   a.logger,
			Task: func(ctx context.Context) error {
				_, err := notifyUC.Execute(ctx, in)
				return err
			},
		})
	}

	return jobs
}
