package domain

import "time"

// Mode selects how a pipeline run sources its topics.
type Mode string

const (
	ModeOnce    Mode = "once"
	ModeSeed    Mode = "seed"
	ModeDynamic Mode = "dynamic"
)

// ParseMode resolves a CLI mode string.
func ParseMode(value string) (Mode, bool) {
	switch Mode(value) {
	case ModeOnce, ModeSeed, ModeDynamic:
		return Mode(value), true
	default:
		return "", false
	}
}

// Dry-run placeholders recorded instead of a file path and commit hash.
const (
	DryRunFile   = "DRY_RUN_NO_FILE"
	DryRunCommit = "DRY_RUN_NO_COMMIT"
)

// PostOutcome is the per-post entry of a run result.
type PostOutcome struct {
	Title      string
	Success    bool
	FilePath   string
	CommitHash string
	Error      string
}

// RunResult accumulates the outcome of one pipeline run.
type RunResult struct {
	RunID        string
	Mode         Mode
	DryRun       bool
	SuccessCount int
	TotalCount   int
	Posts        []PostOutcome
	Errors       []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// SuccessRate returns the published share of generated posts in percent.
func (r RunResult) SuccessRate() float64 {
	if r.TotalCount == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.TotalCount) * 100
}

// Succeeded lists outcomes that were published.
func (r RunResult) Succeeded() []PostOutcome {
	var out []PostOutcome
	for _, p := range r.Posts {
		if p.Success {
			out = append(out, p)
		}
	}
	return out
}

// RunSummary is the persisted view of a finished run.
type RunSummary struct {
	RunID        string
	Mode         Mode
	DryRun       bool
	SuccessCount int
	TotalCount   int
	ErrorCount   int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Summary condenses r for the run history.
func (r RunResult) Summary() RunSummary {
	return RunSummary{
		RunID:        r.RunID,
		Mode:         r.Mode,
		DryRun:       r.DryRun,
		SuccessCount: r.SuccessCount,
		TotalCount:   r.TotalCount,
		ErrorCount:   len(r.Errors),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
}
