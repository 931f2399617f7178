package domain

import "unicode"

// Script is a coarse writing-system class used to pick summary prompts
// and the fallback scoring strategy. It is a character-range heuristic,
// not language identification.
type Script string

// Script classes.
const (
	ScriptCJK   Script = "cjk"
	ScriptLatin Script = "latin"
	ScriptOther Script = "other"
)

// DetectScript classifies text. Any Han, Hiragana, Katakana or Hangul
// rune makes the text CJK; otherwise any Latin letter makes it Latin.
func DetectScript(text string) Script {
	hasLatin := false
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
			return ScriptCJK
		case unicode.Is(unicode.Latin, r):
			hasLatin = true
		}
	}
	if hasLatin {
		return ScriptLatin
	}
	return ScriptOther
}

// UsesWordBoundaries reports whether whitespace separates words in the script.
func (s Script) UsesWordBoundaries() bool {
	return s != ScriptCJK
}
