package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"

	"AutoBlog/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestPrintSummary(t *testing.T) {
	result := domain.RunResult{
		SuccessCount: 1,
		TotalCount:   2,
		Posts: []domain.PostOutcome{
			{Title: "Remote Work Tips", Success: true, FilePath: "_posts/2025-03-01-remote-work-tips.md", CommitHash: "0123456789abcdef"},
			{Title: "Broken", Error: "Failed to publish 'Broken': rejected"},
		},
		Errors: []string{"Skipped duplicate: Home Office", "Failed to publish 'Broken': rejected"},
	}

	var buf bytes.Buffer
	printSummary(&buf, result)

	want := strings.Join([]string{
		"SUCCESS: generated and published 1 of 2 posts (50.0%)",
		"  - Remote Work Tips",
		"    File: _posts/2025-03-01-remote-work-tips.md",
		"    Commit: 01234567",
		"",
		"Errors/skips (2):",
		"  - Skipped duplicate: Home Office",
		"  - Failed to publish 'Broken': rejected",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintSummaryDryRunAndFailure(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, domain.RunResult{DryRun: true, SuccessCount: 1, TotalCount: 1,
		Posts: []domain.PostOutcome{{Title: "Dry", Success: true, FilePath: domain.DryRunFile}}})
	if strings.Contains(buf.String(), "File:") {
		t.Errorf("dry run summary should not list files:\n%s", buf.String())
	}

	buf.Reset()
	printSummary(&buf, domain.RunResult{TotalCount: 0})
	if got := buf.String(); got != "FAILED: no posts were published (0 generated)\n" {
		t.Errorf("unexpected failure summary %q", got)
	}
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("가", 40)
	got := truncateTitle(long)
	if w := runewidth.StringWidth(got); w > titleWidth || !strings.HasSuffix(got, "…") {
		t.Errorf("truncated title %q has width %d", got, w)
	}
	if got := truncateTitle("short"); got != "short" {
		t.Errorf("short title changed: %q", got)
	}
	if got := shortCommit(""); got != "N/A" {
		t.Errorf("shortCommit empty = %q", got)
	}
}
