package driven

// Prompt names.
const (
	// PromptSummaryLatin describes a chunk's topic for space-separated queries.
	PromptSummaryLatin = "summary_latin"

	// PromptSummaryCJK describes a chunk's topic for Chinese, Japanese or Korean queries.
	PromptSummaryCJK = "summary_cjk"
)

// PromptStore loads user-editable LLM prompt templates.
// Templates take the query then the chunk text as %s placeholders.
type PromptStore interface {
	// Load returns the template for name.
	Load(name string) (string, error)
}

// DefaultPrompts are the built-in templates served when no user file exists.
var DefaultPrompts = map[string]string{
	PromptSummaryLatin: `Describe in one or two sentences what specific topic in the following text relates to "%s".

Text:
%s

Description:`,

	PromptSummaryCJK: `以下のテキストから、「%s」に関連する具体的なトピックや内容を1〜2文で簡潔に説明してください。

テキスト:
%s

説明:`,
}
