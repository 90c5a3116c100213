package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gw-audit/internal/app"
	"gw-audit/internal/audit"
	"gw-audit/internal/groupaudit"
	"gw-audit/internal/scheduler"
	"gw-audit/internal/server"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		listen     string
		runOnStart bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run both audits on their cron schedules and serve health, metrics and checkpoint status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := g.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			ctx := cmd.Context()
			sched, err := newScheduler(ctx, a, logger)
			if err != nil {
				return err
			}

			addr := a.Config.ListenAddr
			if cmd.Flags().Changed("listen") {
				addr = listen
			}
			httpSrv := &http.Server{
				Addr: addr,
				Handler: server.New(server.Options{
					Jobs:        sched,
					Checkpoints: map[string]server.CheckpointLoader{groupaudit.AuditName: a.Groups.Checkpoints()},
					Metrics:     a.Metrics.Handler(),
					Token:       a.Config.APIToken,
					Logger:      logger.With("component", "http"),
					StartedAt:   time.Now().UTC(),
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				logger.Info("http listening", "addr", addr)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			eg.Go(func() error {
				sched.Start()
				if runOnStart {
					for _, st := range sched.Status() {
						if err := sched.RunNow(st.Name); err != nil {
							logger.Error("startup run failed", "audit", st.Name, "error", err)
						}
					}
				}
				<-egCtx.Done()

				// HTTP goes first so no trigger arrives while the scheduler
				// drains.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				shutdownErr := httpSrv.Shutdown(shutdownCtx)
				sched.Stop()
				if shutdownErr != nil {
					return fmt.Errorf("shutdown http server: %w", shutdownErr)
				}
				return nil
			})

			err = eg.Wait()
			logger.Info("daemon stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address override (default from listen_addr)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run every scheduled audit once at startup")
	return cmd
}

// newScheduler registers one job per audit with a non-empty schedule.
func newScheduler(ctx context.Context, a *app.App, logger *slog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(ctx, logger.With("component", "scheduler"))
	jobs := []scheduler.Job{
		{
			Name:     audit.AuditName,
			Schedule: a.Config.Schedule.Users,
			Run: func(ctx context.Context) error {
				_, err := a.Users.Run(ctx)
				return err
			},
		},
		{
			Name:     groupaudit.AuditName,
			Schedule: a.Config.Schedule.Groups,
			Run: func(ctx context.Context) error {
				_, err := a.Groups.Run(ctx)
				return err
			},
		},
	}
	for _, j := range jobs {
		if j.Schedule == "" {
			logger.Info("audit not scheduled", "audit", j.Name)
			continue
		}
		if err := sched.Add(j); err != nil {
			return nil, fmt.Errorf("schedule %s audit: %w", j.Name, err)
		}
	}
	return sched, nil
}
