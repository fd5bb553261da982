package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/vacancycache/internal/model"
	"github.com/amishk599/vacancycache/internal/store"
)

var refreshDryRun bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle and exit",
	Long:  "Fetch published vacancies and their descriptions once, write the snapshot, exit. With --dry-run nothing is stored.",
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshDryRun, "dry-run", false, "fetch and enrich but do not write the cache")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, logger := bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st model.CacheStore
	if refreshDryRun {
		logger.Info("dry-run mode enabled, the cache will not be written")
		st = store.NewNopStore()
	} else {
		s, closeStore, err := openStore(ctx, cfg.Cache)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer closeStore()
		st = s
	}

	svc := buildService(cfg, st, logger)
	if !svc.Active() {
		logger.Error("workable subdomain and access token are required for refresh")
		os.Exit(1)
	}

	if refreshDryRun {
		list, err := svc.FetchVacancies(ctx)
		if err != nil {
			logger.Error("refresh failed", "error", err)
			os.Exit(1)
		}
		logger.Info("dry-run complete", "vacancies", len(list))
		return nil
	}

	if err := svc.RefreshJob(ctx); err != nil {
		logger.Error("refresh failed", "error", err)
		os.Exit(1)
	}

	logger.Info("refresh complete")
	return nil
}
