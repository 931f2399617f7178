package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

const sampleChunk = "Welcome back to the channel. Today we discuss goroutines and channels in depth. Thanks for watching."

func TestSummarize_UsesLLM(t *testing.T) {
	llm := &mockLLM{response: "  \"Explains  goroutines and channels.\"\n"}
	s := NewSummarizer(llm, 150, 0.1)

	summary := s.Summarize(context.Background(), sampleChunk, "goroutines")

	assert.Equal(t, "Explains goroutines and channels.", summary)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], `"goroutines"`)
	assert.Contains(t, llm.prompts[0], sampleChunk)
}

func TestSummarize_CJKPrompt(t *testing.T) {
	llm := &mockLLM{response: "並行処理の説明"}
	s := NewSummarizer(llm, 150, 0.1)

	s.Summarize(context.Background(), "今日は並行処理について話します。", "並行処理")

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "以下のテキスト")
}

func TestSummarize_FallsBackOnLLMError(t *testing.T) {
	s := NewSummarizer(&mockLLM{err: assert.AnError}, 150, 0.1)

	summary := s.Summarize(context.Background(), sampleChunk, "goroutines")

	assert.Equal(t, "Today we discuss goroutines and channels in depth", summary)
}

func TestSummarize_RetriesRateLimitedCall(t *testing.T) {
	tests := []struct {
		name        string
		failFirst   int
		failErr     error
		wantCalls   int
		wantSummary string
	}{
		{
			name:        "recovers after one rate limit",
			failFirst:   1,
			failErr:     fmt.Errorf("openai: %w", domain.ErrRateLimited),
			wantCalls:   2,
			wantSummary: "Covers goroutines.",
		},
		{
			name:        "gives up after the attempt budget",
			failFirst:   summaryAttempts,
			failErr:     domain.ErrRateLimited,
			wantCalls:   summaryAttempts,
			wantSummary: "Today we discuss goroutines and channels in depth",
		},
		{
			name:        "other errors are not retried",
			failFirst:   1,
			failErr:     assert.AnError,
			wantCalls:   1,
			wantSummary: "Today we discuss goroutines and channels in depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockLLM{response: "Covers goroutines.", failFirst: tt.failFirst, failErr: tt.failErr}
			if tt.failFirst >= summaryAttempts {
				llm.err = tt.failErr
			}
			s := NewSummarizer(llm, 150, 0.1)
			s.retryDelay = 0

			summary := s.Summarize(context.Background(), sampleChunk, "goroutines")

			assert.Equal(t, tt.wantSummary, summary)
			assert.Len(t, llm.prompts, tt.wantCalls)
		})
	}
}

func TestSummarize_FallsBackOnEmptyResponse(t *testing.T) {
	s := NewSummarizer(&mockLLM{response: "  \"\" "}, 150, 0.1)

	summary := s.Summarize(context.Background(), sampleChunk, "goroutines")

	assert.Equal(t, "Today we discuss goroutines and channels in depth", summary)
}

func TestSummarize_WithoutLLM(t *testing.T) {
	s := NewSummarizer(nil, 150, 0.1)

	summary := s.Summarize(context.Background(), sampleChunk, "thanks")

	assert.Equal(t, "Thanks for watching", summary)
}

func TestSummarize_Truncates(t *testing.T) {
	s := NewSummarizer(&mockLLM{response: strings.Repeat("word ", 50)}, 20, 0.1)

	summary := s.Summarize(context.Background(), sampleChunk, "goroutines")

	assert.Equal(t, 20, utf8.RuneCountInString(summary))
	assert.True(t, strings.HasSuffix(summary, "..."))
}

func TestNewSummarizer_InvalidLength(t *testing.T) {
	s := NewSummarizer(nil, 2, 0)

	assert.Equal(t, 150, s.maxLength)
}

func TestKeySentence(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  string
	}{
		{
			name:  "best word overlap",
			text:  sampleChunk,
			query: "Goroutines channels",
			want:  "Today we discuss goroutines and channels in depth",
		},
		{
			name:  "cjk character overlap",
			text:  "今日は天気の話をします。次にプログラミング言語について説明します。",
			query: "プログラミング",
			want:  "次にプログラミング言語について説明します",
		},
		{
			name:  "no overlap uses first substantial sentence",
			text:  "Short one here. This sentence is definitely longer than twenty. End.",
			query: "zebra",
			want:  "This sentence is definitely longer than twenty",
		},
		{
			name:  "short text returned whole",
			text:  " Hi. Ok. Yes. ",
			query: "zebra",
			want:  "Hi. Ok. Yes.",
		},
		{
			name:  "long text without sentences is cut",
			text:  strings.Repeat("a. ", 50),
			query: "zebra",
			want:  strings.Repeat("a. ", 33) + "a" + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeySentence(tt.text, tt.query))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "abcdefg...", truncateRunes("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語日本語日...", truncateRunes(strings.Repeat("日本語", 5), 10))
}

func TestPrefixRunes(t *testing.T) {
	assert.Equal(t, "", prefixRunes("abc", 0))
	assert.Equal(t, "ab", prefixRunes("abc", 2))
	assert.Equal(t, "abc", prefixRunes("abc", 5))
	assert.Equal(t, "日本", prefixRunes("日本語", 2))
}

type stubPrompts map[string]string

func (p stubPrompts) Load(name string) (string, error) {
	t, ok := p[name]
	if !ok {
		return "", assert.AnError
	}
	return t, nil
}

func TestSummarize_CustomPrompt(t *testing.T) {
	llm := &mockLLM{response: "ok"}
	s := NewSummarizer(llm, 150, 0.1)
	s.SetPromptStore(stubPrompts{driven.PromptSummaryLatin: "Q=%s T=%s"})

	s.Summarize(context.Background(), "body", "query")

	require.Len(t, llm.prompts, 1)
	assert.Equal(t, "Q=query T=body", llm.prompts[0])
}

func TestSummarize_BrokenCustomPromptUsesDefault(t *testing.T) {
	llm := &mockLLM{response: "ok"}
	s := NewSummarizer(llm, 150, 0.1)
	s.SetPromptStore(stubPrompts{driven.PromptSummaryLatin: "no placeholders"})

	s.Summarize(context.Background(), "body", "query")

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Description:")
}
