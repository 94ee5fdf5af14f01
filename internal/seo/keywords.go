package seo

import (
	"strings"
	"unicode"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"AutoBlog/internal/similarity"
)

const (
	maxKeywords         = 8
	keywordsPerHeading  = 2
	minHangulKeywordLen = 2
	minLatinKeywordLen  = 3
)

// Headings returns the text of every heading in a Markdown document, in
// document order.
func Headings(content string) []string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := markdown.Parse([]byte(content), p)

	var headings []string
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		heading, ok := node.(*ast.Heading)
		if !ok || !entering {
			return ast.GoToNext
		}
		if text := strings.TrimSpace(nodeText(heading)); text != "" {
			headings = append(headings, text)
		}
		return ast.SkipChildren
	})
	return headings
}

func nodeText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch leaf := n.(type) {
		case *ast.Text:
			sb.Write(leaf.Literal)
		case *ast.Code:
			sb.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return sb.String()
}

// Keywords merges the existing keywords with up to two words taken from each
// heading of content. Hangul words of two or more syllables are preferred;
// headings without any fall back to significant English words.
func Keywords(content string, existing []string) []string {
	keywords := append([]string(nil), existing...)
	for _, heading := range Headings(content) {
		words := headingWords(heading)
		if len(words) > keywordsPerHeading {
			words = words[:keywordsPerHeading]
		}
		keywords = append(keywords, words...)
	}

	seen := make(map[string]struct{}, len(keywords))
	unique := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if len([]rune(kw)) < minHangulKeywordLen {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		unique = append(unique, kw)
		if len(unique) == maxKeywords {
			break
		}
	}
	return unique
}

func headingWords(heading string) []string {
	tokens := strings.FieldsFunc(heading, func(r rune) bool {
		return !(r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r))
	})

	var hangul, latin []string
	for _, tok := range tokens {
		switch {
		case isHangulWord(tok):
			hangul = append(hangul, tok)
		case isLatinKeyword(tok):
			latin = append(latin, strings.ToLower(tok))
		}
	}
	if len(hangul) > 0 {
		return hangul
	}
	return latin
}

func isHangulWord(tok string) bool {
	n := 0
	for _, r := range tok {
		if r < '가' || r > '힣' {
			return false
		}
		n++
	}
	return n >= minHangulKeywordLen
}

func isLatinKeyword(tok string) bool {
	if len(tok) < minLatinKeywordLen || similarity.IsStopWord(tok) {
		return false
	}
	for _, r := range tok {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
