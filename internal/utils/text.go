package utils

import (
	"math"
	"strings"
	"unicode"
)

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Tokenize lowercases s and splits it into words. Apostrophes stay inside
// words so "don't" is one token.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// CountKeywords counts token matches against keywords. Multi-word keywords
// are matched as substrings of the lowercased text.
func CountKeywords(text string, keywords []string) int {
	lower := strings.ToLower(text)
	tokens := make(map[string]int)
	for _, tok := range Tokenize(text) {
		tokens[tok]++
	}

	count := 0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(kw, " ") {
			count += strings.Count(lower, kw)
			continue
		}
		count += tokens[kw]
	}
	return count
}

// ContainsAny reports whether any keyword occurs in text, case-insensitively.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
