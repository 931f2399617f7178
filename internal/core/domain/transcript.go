package domain

import "fmt"

// TranscriptSegment is one timestamped line of speech.
// Segments are immutable once produced by the upstream collaborator.
type TranscriptSegment struct {
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text"`
}

// Validate checks the segment's own time bounds.
func (s TranscriptSegment) Validate() error {
	if s.StartSeconds < 0 {
		return fmt.Errorf("%w: negative start %.3f", ErrInvalidInput, s.StartSeconds)
	}
	if s.StartSeconds > s.EndSeconds {
		return fmt.Errorf("%w: start %.3f after end %.3f", ErrInvalidInput, s.StartSeconds, s.EndSeconds)
	}
	return nil
}

// Unit is one transcribed recording, identified by ID.
type Unit struct {
	// ID is the stable unit identifier (the video id).
	ID string

	// TenantID is the channel the unit belongs to. Empty for flat layouts.
	TenantID string

	Title     string
	Uploader  string
	Channel   string
	SourceURL string

	// Duration is the recording length in seconds, zero if unknown.
	Duration float64

	// Segments are ordered by non-decreasing StartSeconds.
	Segments []TranscriptSegment
}

// Validate checks the identifier and segment ordering.
func (u *Unit) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("%w: unit id is empty", ErrInvalidInput)
	}
	for i, seg := range u.Segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if i > 0 && seg.StartSeconds < u.Segments[i-1].StartSeconds {
			return fmt.Errorf("%w: segment %d starts before segment %d", ErrInvalidInput, i, i-1)
		}
	}
	return nil
}

// Metadata returns the unit's descriptive fields.
func (u *Unit) Metadata() UnitMetadata {
	return UnitMetadata{
		UnitID:    u.ID,
		TenantID:  u.TenantID,
		Title:     u.Title,
		Uploader:  u.Uploader,
		Channel:   u.Channel,
		SourceURL: u.SourceURL,
		Duration:  u.Duration,
	}
}

// UnitRef identifies a candidate unit before its segments are loaded.
// DISCOVER produces refs; only refs surviving DIFF are loaded.
type UnitRef struct {
	ID       string
	TenantID string

	// Locator is adapter-specific (a file path for the filesystem source).
	Locator string
}

// UnitMetadata is the lookup record kept by the unit catalog.
type UnitMetadata struct {
	UnitID    string  `json:"unit_id"`
	TenantID  string  `json:"tenant_id,omitempty"`
	Title     string  `json:"title"`
	Uploader  string  `json:"uploader"`
	Channel   string  `json:"channel"`
	SourceURL string  `json:"url"`
	Duration  float64 `json:"duration"`
}
