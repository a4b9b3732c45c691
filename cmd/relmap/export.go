package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relmap/internal/cache"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Re-export the graph from the cached channel snapshots",
		Long:  "Rebuilds the CSV artifacts from the last run's channel snapshots without fetching message history again. The member list still comes from the API, so a token is required.",
		RunE:  runExport,
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages, err := cache.LoadAll(cfg.ChannelCacheDir())
	if err != nil {
		return fmt.Errorf("load channel snapshots: %w", err)
	}
	if len(messages) == 0 {
		return fmt.Errorf("no channel snapshots under %s, run `relmap run` first", cfg.ChannelCacheDir())
	}
	logger.Info("messages loaded from snapshots", "count", len(messages))

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	participants, err := src.ListParticipants(ctx)
	if err != nil {
		return err
	}
	logger.Info("active members under investigation", "count", len(participants))

	return aggregateAndExport(ctx, cfg, participants, messages)
}
