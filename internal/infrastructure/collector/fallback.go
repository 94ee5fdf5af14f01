package collector

import (
	"context"
	"math/rand/v2"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/scanner"
)

const defaultFallbackSample = 3

var evergreenIdeas = []domain.Idea{
	{Title: "The Future of Remote Work Technologies", Score: 70},
	{Title: "Artificial Intelligence in Healthcare 2025", Score: 85},
	{Title: "Sustainable Technology Trends", Score: 75},
	{Title: "Cybersecurity Best Practices for Small Businesses", Score: 80},
	{Title: "5G Technology Impact on IoT Devices", Score: 78},
	{Title: "Cloud Computing Cost Optimization Strategies", Score: 72},
	{Title: "Machine Learning Applications in Marketing", Score: 82},
	{Title: "Digital Transformation in Traditional Industries", Score: 76},
	{Title: "Blockchain Beyond Cryptocurrency", Score: 74},
	{Title: "Virtual Reality in Education and Training", Score: 71},
}

// FallbackScanner samples a static pool of evergreen ideas so a run has
// material even when every feed is down.
type FallbackScanner struct {
	pool    []domain.Idea
	shuffle func(n int, swap func(i, j int))
}

var _ scanner.Scanner = (*FallbackScanner)(nil)

// NewFallbackScanner uses the built-in pool.
func NewFallbackScanner() *FallbackScanner {
	return &FallbackScanner{pool: evergreenIdeas, shuffle: rand.Shuffle}
}

// Name identifies the strategy inside the registry.
func (f *FallbackScanner) Name() string { return "fallback" }

// Scan returns a random sample of the pool sized by the "sample" option.
func (f *FallbackScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Idea, error) {
	n := min(optionInt(req.Options, "sample", defaultFallbackSample), len(f.pool))

	picked := make([]domain.Idea, len(f.pool))
	copy(picked, f.pool)
	f.shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	picked = picked[:n]
	for i := range picked {
		picked[i].Source = "fallback"
	}
	return picked, nil
}
