package seo

import (
	"strings"
	"unicode"

	"AutoBlog/internal/similarity"
)

// DefaultCategory is used when no category keyword matches.
const DefaultCategory = "general"

type categoryRule struct {
	name     string
	keywords []string
}

// Order matters: ties go to the earlier category.
var categoryRules = []categoryRule{
	{"productivity", []string{"생산성", "효율", "업무", "일", "도구", "앱", "시간관리", "productivity", "efficiency", "workflow", "tools", "time management"}},
	{"technology", []string{"기술", "개발", "프로그래밍", "ai", "인공지능", "소프트웨어", "technology", "software", "programming", "developer", "machine learning"}},
	{"lifestyle", []string{"라이프스타일", "생활", "건강", "취미", "여행", "음식", "lifestyle", "health", "hobby", "travel", "food"}},
	{"business", []string{"비즈니스", "사업", "창업", "마케팅", "경영", "투자", "business", "startup", "marketing", "management"}},
	{"education", []string{"교육", "학습", "공부", "강의", "책", "지식", "education", "learning", "study", "course", "books"}},
	{"finance", []string{"금융", "돈", "투자", "재테크", "경제", "주식", "finance", "money", "investing", "economy", "stocks"}},
}

// Categorize scores the title and keywords against the category table and
// returns the best match, or DefaultCategory when nothing matches. English
// terms must match whole words; Korean terms match anywhere.
func Categorize(title string, keywords []string) string {
	text := strings.ToLower(title + " " + strings.Join(keywords, " "))
	words := " " + similarity.Normalize(text) + " "

	best, bestScore := DefaultCategory, 0
	for _, rule := range categoryRules {
		score := 0
		for _, key := range rule.keywords {
			if isASCII(key) {
				if strings.Contains(words, " "+key+" ") {
					score++
				}
			} else if strings.Contains(text, key) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = rule.name, score
		}
	}
	return best
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
