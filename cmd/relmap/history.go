package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relmap/internal/store"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List archived runs and diff the two most recent",
		RunE:  runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if !cfg.History.Enabled {
		return fmt.Errorf("run history is disabled in the config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.History.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %6s  %8s  %8s  %5s\n", "RUN", "STARTED", "WINDOW", "CHANNELS", "MESSAGES", "EDGES")
	for _, r := range runs {
		fmt.Printf("%-36s  %-19s  %5dd  %8d  %8d  %5d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.WindowDays, r.ChannelCount, r.MessageCount, r.EdgeCount)
	}

	if len(runs) < 2 {
		return nil
	}

	// ListRuns is newest first, so runs[0] is current and runs[1] previous.
	current, err := st.RunEdges(ctx, runs[0].ID)
	if err != nil {
		return err
	}
	previous, err := st.RunEdges(ctx, runs[1].ID)
	if err != nil {
		return err
	}

	added, removed := store.DiffEdges(previous, current)
	fmt.Printf("\ndiff %s -> %s: %d added, %d removed\n", runs[1].ID, runs[0].ID, len(added), len(removed))
	for _, e := range added {
		fmt.Printf("  + %s -> %s (%d messages, strength %d)\n", e.FromID, e.ToID, e.MessageCount, e.Strength)
	}
	for _, e := range removed {
		fmt.Printf("  - %s -> %s (%d messages, strength %d)\n", e.FromID, e.ToID, e.MessageCount, e.Strength)
	}
	return nil
}
