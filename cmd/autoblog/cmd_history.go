package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"AutoBlog/internal/app"
)

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs from the database",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 10, "number of runs to show")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, app.Options{DryRun: true, Offline: true})
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	runs, err := s.app.History(ctx, historyFlags.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	loc := s.cfg.Site.Location()
	for _, r := range runs {
		dry := ""
		if r.DryRun {
			dry = " (dry run)"
		}
		fmt.Fprintf(out, "%s  %-8s %d/%d published, %d issues, %s%s\n",
			r.StartedAt.In(loc).Format(time.DateTime), r.Mode, r.SuccessCount, r.TotalCount, r.ErrorCount,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second), dry)
	}
	return nil
}
