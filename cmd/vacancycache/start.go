package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/vacancycache/internal/config"
	"github.com/amishk599/vacancycache/internal/httpapi"
	"github.com/amishk599/vacancycache/internal/scheduler"
	"github.com/amishk599/vacancycache/internal/vacancies"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the refresh scheduler and read API",
	Long:  "Start the scheduler and HTTP read API; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, logger := bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Cache)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	svc := buildService(cfg, st, logger)
	logStartup(logger, cfg, svc)

	sched := scheduler.NewScheduler(logger)
	svc.InitScheduler(sched)

	srv := httpapi.NewServer(cfg.Server.Addr, svc, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

func logStartup(logger *slog.Logger, cfg *config.Config, svc *vacancies.Service) {
	logger.Info("config loaded",
		"interval", cfg.RefreshInterval.String(),
		"backend", cfg.Cache.Backend,
		"addr", cfg.Server.Addr,
		"workable_configured", svc.Active(),
	)
}
