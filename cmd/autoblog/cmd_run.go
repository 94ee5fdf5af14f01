package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"AutoBlog/internal/app"
	"AutoBlog/internal/domain"
	"AutoBlog/internal/usecase"
)

// errNoPosts makes the process exit with status 1 after the summary was
// already printed.
var errNoPosts = errors.New("no posts were published")

var runFlags struct {
	mode   string
	dryRun bool
	count  int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long:  "Modes: once (one curated topic), seed (5-10 curated topics), dynamic (collect ideas, research and generate).",
	RunE:  runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.mode, "mode", string(domain.ModeOnce), "once, seed or dynamic")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "generate content but do not publish")
	f.IntVar(&runFlags.count, "count", 0, "posts to generate (default: mode default or site.postsPerRun)")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	mode, ok := domain.ParseMode(runFlags.mode)
	if !ok {
		return fmt.Errorf("invalid --mode %q: want once, seed or dynamic", runFlags.mode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, app.Options{DryRun: runFlags.dryRun})
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	if err := s.cfg.Validate(runFlags.dryRun); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	result, runErr := s.app.Run(ctx, usecase.RunRequest{Mode: mode, Target: runFlags.count, DryRun: runFlags.dryRun})
	printSummary(cmd.OutOrStdout(), result)
	if runErr != nil {
		return runErr
	}
	if result.SuccessCount == 0 {
		return errNoPosts
	}
	return nil
}
