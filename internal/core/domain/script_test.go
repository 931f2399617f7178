package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectScript(t *testing.T) {
	tests := []struct {
		text string
		want Script
	}{
		{"machine learning basics", ScriptLatin},
		{"機械学習の基礎", ScriptCJK},
		{"カタカナ", ScriptCJK},
		{"ひらがな", ScriptCJK},
		{"한국어", ScriptCJK},
		{"mixed 日本 text", ScriptCJK},
		{"12345 !?", ScriptOther},
		{"Привет", ScriptOther},
		{"", ScriptOther},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectScript(tt.text))
		})
	}
}

func TestScript_UsesWordBoundaries(t *testing.T) {
	assert.True(t, ScriptLatin.UsesWordBoundaries())
	assert.True(t, ScriptOther.UsesWordBoundaries())
	assert.False(t, ScriptCJK.UsesWordBoundaries())
}
