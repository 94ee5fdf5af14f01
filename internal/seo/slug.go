package seo

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

const (
	maxSlugLength = 50
	minSlugCut    = 20
	fallbackSlug  = "blog-post"
)

var (
	slugStrip     = regexp.MustCompile(`[^\w\s-]`)
	slugSeparator = regexp.MustCompile(`[\s_]+`)
	slugDashes    = regexp.MustCompile(`-+`)
)

// Slug turns a title into an ASCII URL slug. Non-Latin scripts are
// transliterated first, so Korean titles still produce readable slugs.
func Slug(title string) string {
	slug := strings.ToLower(unidecode.Unidecode(title))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSeparator.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		if cut := strings.LastIndex(slug, "-"); cut > minSlugCut {
			slug = slug[:cut]
		}
	}

	if slug == "" {
		return fallbackSlug
	}
	return slug
}
