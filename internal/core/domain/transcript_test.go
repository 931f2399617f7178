package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Validate(t *testing.T) {
	t.Run("valid unit", func(t *testing.T) {
		u := &Unit{
			ID: "vid1",
			Segments: []TranscriptSegment{
				{StartSeconds: 0, EndSeconds: 2, Text: "a"},
				{StartSeconds: 2, EndSeconds: 4, Text: "b"},
				{StartSeconds: 2, EndSeconds: 5, Text: "c"},
			},
		}
		require.NoError(t, u.Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		u := &Unit{}
		assert.ErrorIs(t, u.Validate(), ErrInvalidInput)
	})

	t.Run("segment ends before it starts", func(t *testing.T) {
		u := &Unit{ID: "v", Segments: []TranscriptSegment{{StartSeconds: 5, EndSeconds: 4}}}
		assert.ErrorIs(t, u.Validate(), ErrInvalidInput)
	})

	t.Run("segments out of order", func(t *testing.T) {
		u := &Unit{ID: "v", Segments: []TranscriptSegment{
			{StartSeconds: 5, EndSeconds: 6},
			{StartSeconds: 1, EndSeconds: 2},
		}}
		assert.ErrorIs(t, u.Validate(), ErrInvalidInput)
	})
}

func TestUnit_Metadata(t *testing.T) {
	u := &Unit{ID: "v", TenantID: "t", Title: "T", Uploader: "U", Channel: "C", SourceURL: "url", Duration: 42}
	md := u.Metadata()
	assert.Equal(t, UnitMetadata{
		UnitID: "v", TenantID: "t", Title: "T", Uploader: "U", Channel: "C", SourceURL: "url", Duration: 42,
	}, md)
}
