package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"AutoBlog/internal/app"
)

var checkCmd = &cobra.Command{
	Use:   "check <title>",
	Short: "Check whether a title duplicates a published post",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, app.Options{DryRun: true, Offline: true})
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	title := strings.Join(args, " ")
	out := cmd.OutOrStdout()
	match, dup := s.app.CheckTitle(ctx, title)
	if !dup {
		color.New(color.FgGreen).Fprintf(out, "OK: %q is not a duplicate\n", title)
		return nil
	}
	color.New(color.FgYellow, color.Bold).Fprintf(out, "DUPLICATE: %q\n", title)
	fmt.Fprintf(out, "  matches: %s\n", match.Existing)
	fmt.Fprintf(out, "  gate:    %s (%.2f)\n", match.Gate, match.Score)
	return nil
}
