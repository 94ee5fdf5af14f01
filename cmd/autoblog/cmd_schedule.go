package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"AutoBlog/internal/app"
	"AutoBlog/internal/config"
	"AutoBlog/internal/domain"
	"AutoBlog/internal/usecase"
)

var scheduleFlags struct {
	mode     string
	interval time.Duration
	dryRun   bool
	count    int
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline now and then on a fixed interval until interrupted",
	RunE:  runSchedule,
}

func init() {
	f := scheduleCmd.Flags()
	f.StringVar(&scheduleFlags.mode, "mode", "", "once, seed or dynamic (default: scheduler.mode)")
	f.DurationVar(&scheduleFlags.interval, "interval", 0, "time between runs (default: scheduler.interval)")
	f.BoolVar(&scheduleFlags.dryRun, "dry-run", false, "generate content but do not publish")
	f.IntVar(&scheduleFlags.count, "count", 0, "posts per run")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, app.Options{DryRun: scheduleFlags.dryRun}, func(c *config.Config) {
		if scheduleFlags.interval > 0 {
			c.Scheduler.Interval = scheduleFlags.interval
		}
		if scheduleFlags.mode != "" {
			c.Scheduler.Mode = scheduleFlags.mode
		}
	})
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	mode, ok := domain.ParseMode(s.cfg.Scheduler.Mode)
	if !ok {
		return fmt.Errorf("invalid mode %q: want once, seed or dynamic", s.cfg.Scheduler.Mode)
	}
	if err := s.cfg.Validate(scheduleFlags.dryRun); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scheduling %s runs every %s (Ctrl+C to stop)\n", mode, s.cfg.Scheduler.Interval)
	return s.app.Schedule(ctx, usecase.RunRequest{Mode: mode, Target: scheduleFlags.count, DryRun: scheduleFlags.dryRun})
}
