package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"relmap/internal/cache"
	"relmap/internal/config"
	"relmap/internal/domain"
	"relmap/internal/slacksrc"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch messages and export the relationship graph",
		RunE:  runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := newSource(cfg)
	if err != nil {
		return err
	}

	channels, err := src.ListChannels(ctx)
	if err != nil {
		return err
	}
	logger.Info("channels under investigation", "count", len(channels))

	participants, err := src.ListParticipants(ctx)
	if err != nil {
		return err
	}
	logger.Info("active members under investigation", "count", len(participants))

	cacheDir := cfg.ChannelCacheDir()
	if err := cache.Reset(cacheDir); err != nil {
		return err
	}

	oldest := time.Now().AddDate(0, 0, -cfg.General.WindowDays)
	logger.Info("fetching messages", "since", oldest.Format(time.RFC3339), "window_days", cfg.General.WindowDays)

	messages := src.FetchAll(ctx, channels, oldest, func(ch domain.Channel, msgs []domain.Message) {
		if err := cache.WriteChannel(cacheDir, ch.Name, msgs); err != nil {
			logger.Warn("cannot snapshot channel", "channel", ch.Name, "err", err)
		}
	})
	logger.Info("messages under investigation", "count", len(messages))

	return aggregateAndExport(ctx, cfg, participants, messages)
}

// newSource resolves the Slack token and builds the API source. A missing
// token is a fatal configuration error.
func newSource(cfg *config.Config) (*slacksrc.Source, error) {
	token, err := config.ResolveSecret(config.EnvSlackToken, cfg.Slack.TokenFile, cfg.Slack.Token)
	if err != nil {
		return nil, fmt.Errorf("slack token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("slack token is not configured: set %s or %s", config.EnvSlackToken, cfg.Slack.TokenFile)
	}
	return slacksrc.New(slacksrc.Config{
		Token:              token,
		Logger:             logger,
		PageLimit:          cfg.Slack.PageLimit,
		ChannelConcurrency: cfg.Slack.ChannelConcurrency,
		ThreadConcurrency:  cfg.Slack.ThreadConcurrency,
	}), nil
}
