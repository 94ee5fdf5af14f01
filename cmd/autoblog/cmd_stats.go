package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"AutoBlog/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show published post and curated topic statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, app.Options{DryRun: true, Offline: true})
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	corpus, topicStats, err := s.app.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Published posts: %d\n", corpus.TotalPosts)
	fmt.Fprintf(out, "Last 7 days:     %d\n", len(corpus.RecentPosts))
	for _, p := range corpus.RecentPosts {
		fmt.Fprintf(out, "  %s  %s\n", p.Date, truncateTitle(p.Title))
	}

	fmt.Fprintf(out, "\nCurated topics:  %d\n", topicStats.Total)
	for _, name := range sortedKeys(topicStats.Categories) {
		fmt.Fprintf(out, "  %-20s %d\n", name, topicStats.Categories[name])
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
