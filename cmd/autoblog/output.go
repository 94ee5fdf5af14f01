package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"AutoBlog/internal/domain"
)

// titleWidth is the display width titles are cut to; Korean titles take two
// columns per rune.
const titleWidth = 60

func truncateTitle(title string) string {
	return runewidth.Truncate(title, titleWidth, "…")
}

func shortCommit(hash string) string {
	if hash == "" {
		return "N/A"
	}
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// printSummary writes the end-of-run report.
func printSummary(w io.Writer, result domain.RunResult) {
	ok := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed, color.Bold)

	if result.SuccessCount > 0 {
		ok.Fprintf(w, "SUCCESS: generated and published %d of %d posts (%.1f%%)\n",
			result.SuccessCount, result.TotalCount, result.SuccessRate())
	} else {
		bad.Fprintf(w, "FAILED: no posts were published (%d generated)\n", result.TotalCount)
	}

	for _, p := range result.Posts {
		if !p.Success {
			continue
		}
		fmt.Fprintf(w, "  - %s\n", truncateTitle(p.Title))
		if !result.DryRun {
			fmt.Fprintf(w, "    File: %s\n", p.FilePath)
			fmt.Fprintf(w, "    Commit: %s\n", shortCommit(p.CommitHash))
		}
	}

	if len(result.Errors) > 0 {
		warn.Fprintf(w, "\nErrors/skips (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}
