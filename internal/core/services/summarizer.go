package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/logger"
)

const (
	// summaryContextChars is how much chunk text the prompt includes.
	summaryContextChars = 1000

	// summaryMaxTokens bounds the generated summary.
	summaryMaxTokens = 100

	// summaryTimeout is the hard ceiling for one summary request.
	summaryTimeout = 20 * time.Second

	// summaryAttempts caps LLM calls per summary. Only rate-limited
	// calls are retried; any other error falls back at once.
	summaryAttempts = 2

	// summaryRetryDelay is the wait before a rate-limited retry.
	summaryRetryDelay = time.Second

	// Fallback sentence thresholds, in characters.
	minSentenceChars         = 10
	substantialSentenceChars = 20
	fallbackPrefixChars      = 100

	ellipsis = "..."
)

// sentenceBoundary splits on Latin and CJK sentence terminators.
var sentenceBoundary = regexp.MustCompile(`[.!?。！？]+`)

// Summarizer describes why a chunk matched a query. It asks the LLM
// when one is configured and falls back to key-sentence extraction.
type Summarizer struct {
	llm         driven.LLMService
	prompts     driven.PromptStore
	maxLength   int
	temperature float64
	retryDelay  time.Duration
}

// NewSummarizer creates a summarizer. llm may be nil.
func NewSummarizer(llm driven.LLMService, maxLength int, temperature float64) *Summarizer {
	if maxLength <= len(ellipsis) {
		maxLength = domain.DefaultSummaryMaxLength
	}
	return &Summarizer{
		llm:         llm,
		maxLength:   maxLength,
		temperature: temperature,
		retryDelay:  summaryRetryDelay,
	}
}

// SetPromptStore makes the summarizer read templates from prompts.
func (s *Summarizer) SetPromptStore(prompts driven.PromptStore) {
	s.prompts = prompts
}

// Summarize returns a short description of what in chunkText relates to
// query. It never fails; the result is at most maxLength characters.
func (s *Summarizer) Summarize(ctx context.Context, chunkText, query string) string {
	if s.llm != nil {
		summary, err := s.generate(ctx, chunkText, query)
		if err == nil && summary != "" {
			return truncateRunes(summary, s.maxLength)
		}
		logger.Debug("LLM summary unavailable, using key sentence: %v", err)
	}
	return truncateRunes(KeySentence(chunkText, query), s.maxLength)
}

func (s *Summarizer) generate(ctx context.Context, chunkText, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	name := driven.PromptSummaryLatin
	if domain.DetectScript(query) == domain.ScriptCJK {
		name = driven.PromptSummaryCJK
	}
	prompt := fmt.Sprintf(s.template(name), query, prefixRunes(chunkText, summaryContextChars))

	opts := driven.GenerateOptions{
		MaxTokens:   summaryMaxTokens,
		Temperature: s.temperature,
	}

	var err error
	for attempt := 1; attempt <= summaryAttempts; attempt++ {
		var out string
		out, err = s.llm.Generate(ctx, prompt, opts)
		if err == nil {
			return cleanSummary(out), nil
		}
		if !errors.Is(err, domain.ErrRateLimited) || attempt == summaryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return "", fmt.Errorf("generate summary: %w", err)
}

// template returns the named prompt, preferring the prompt store.
func (s *Summarizer) template(name string) string {
	if s.prompts != nil {
		t, err := s.prompts.Load(name)
		if err == nil && strings.Count(t, "%s") == 2 {
			return t
		}
		logger.Debug("Prompt %s unusable, using built-in: %v", name, err)
	}
	return driven.DefaultPrompts[name]
}

// cleanSummary normalises whitespace and strips invalid UTF-8 and
// surrounding quotes.
func cleanSummary(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'`「」『』“”‘’")
	return strings.TrimSpace(s)
}

// KeySentence picks the sentence of text sharing the most words with
// query (characters, for CJK queries). Without any overlap it returns the
// first substantial sentence, and failing that a prefix of text.
// It is deterministic and needs no network access.
func KeySentence(text, query string) string {
	var sentences []string
	for _, raw := range sentenceBoundary.Split(text, -1) {
		sentence := strings.TrimSpace(raw)
		if utf8.RuneCountInString(sentence) >= minSentenceChars {
			sentences = append(sentences, sentence)
		}
	}

	score := wordOverlap
	if domain.DetectScript(query) == domain.ScriptCJK {
		score = charOverlap
	}

	best, bestScore := "", 0
	for _, sentence := range sentences {
		if sc := score(sentence, query); sc > bestScore {
			best, bestScore = sentence, sc
		}
	}
	if best != "" {
		return best
	}

	for _, sentence := range sentences {
		if utf8.RuneCountInString(sentence) > substantialSentenceChars {
			return sentence
		}
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= fallbackPrefixChars {
		return text
	}
	return prefixRunes(text, fallbackPrefixChars) + ellipsis
}

// wordOverlap counts distinct query words present in sentence.
func wordOverlap(sentence, query string) int {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(sentence), isWordSeparator) {
		words[w] = struct{}{}
	}
	seen := make(map[string]struct{})
	count := 0
	for _, w := range strings.FieldsFunc(strings.ToLower(query), isWordSeparator) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := words[w]; ok {
			count++
		}
	}
	return count
}

// charOverlap counts distinct non-space query characters present in sentence.
func charOverlap(sentence, query string) int {
	chars := make(map[rune]struct{})
	for _, r := range sentence {
		chars[r] = struct{}{}
	}
	seen := make(map[rune]struct{})
	count := 0
	for _, r := range query {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if _, ok := chars[r]; ok {
			count++
		}
	}
	return count
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

// truncateRunes shortens s to at most n characters, ending in an ellipsis
// when cut.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return prefixRunes(s, n-len(ellipsis)) + ellipsis
}

// prefixRunes returns the first n characters of s.
func prefixRunes(s string, n int) string {
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
