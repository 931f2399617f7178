package domain

import (
	"strings"
	"unicode"
)

// Heuristic token cost of one whitespace-delimited word, as a ratio.
const (
	tokensPerWordNum   = 13
	tokensPerWordDenom = 10
)

// EstimateTokens approximates the embedding token cost of text.
// Words cost 1.3 tokens each, rounded up. Han, Hiragana, Katakana and Hangul runes
// are not whitespace-delimited, so each one is counted as a token.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	ideographs := 0
	for _, r := range text {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			ideographs++
		}
	}
	return (words*tokensPerWordNum+tokensPerWordDenom-1)/tokensPerWordDenom + ideographs
}
