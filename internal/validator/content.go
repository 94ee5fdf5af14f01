// Package validator provides the structural checks applied to generated posts.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
)

// DefaultMinLength is the minimum trimmed length, in characters, of a post.
const DefaultMinLength = 500

const (
	headingMarker    = "#"
	subsectionMarker = "\n##"
	minSubsections   = 2
)

// ContentValidator checks generated Markdown. Its result is advisory: callers
// log the warnings and carry on.
type ContentValidator struct {
	minLength int
}

var _ ports.ContentValidator = (*ContentValidator)(nil)

// NewContentValidator creates a validator; non-positive minLength means
// DefaultMinLength.
func NewContentValidator(minLength int) *ContentValidator {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &ContentValidator{minLength: minLength}
}

// Validate runs every check and collects a warning for each failure.
func (v *ContentValidator) Validate(content string) domain.ValidationResult {
	var warnings []string
	trimmed := strings.TrimSpace(content)

	if n := utf8.RuneCountInString(trimmed); n < v.minLength {
		warnings = append(warnings, fmt.Sprintf("content too short: %d characters (minimum %d)", n, v.minLength))
	}
	if !strings.HasPrefix(trimmed, headingMarker) {
		warnings = append(warnings, "content does not start with a heading")
	}
	if n := strings.Count(content, subsectionMarker); n < minSubsections {
		warnings = append(warnings, fmt.Sprintf("content has too few sections: %d (minimum %d)", n, minSubsections))
	}

	return domain.ValidationResult{
		IsValid:  len(warnings) == 0,
		Warnings: warnings,
	}
}
