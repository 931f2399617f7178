package domain

import (
	"strconv"
	"strings"
)

// ChunkTypeTranscript marks chunks cut from transcript segments.
const ChunkTypeTranscript = "transcript_segment"

// Metadata keys persisted alongside each vector.
const (
	MetaUnitID       = "video_id"
	MetaTitle        = "title"
	MetaUploader     = "uploader"
	MetaURL          = "url"
	MetaTimestampURL = "timestamp_url"
	MetaStartTime    = "start_time"
	MetaEndTime      = "end_time"
	MetaStartSeconds = "start_seconds"
	MetaEndSeconds   = "end_seconds"
	MetaSegmentCount = "segment_count"
	MetaChunkType    = "chunk_type"
	MetaTenantID     = "channel_id"
	MetaPosition     = "position"
)

// Chunk is a contiguous run of segments concatenated into Content.
// StartSeconds is the first constituent segment's start and EndSeconds
// is the last constituent segment's end.
type Chunk struct {
	ID       string
	UnitID   string
	TenantID string

	// Position is the chunk's ordinal within its unit.
	Position int

	Title        string
	Uploader     string
	SourceURL    string
	TimestampURL string

	StartTime    string
	EndTime      string
	StartSeconds float64
	EndSeconds   float64
	SegmentCount int

	Content string
}

// Metadata returns the persisted metadata map for the chunk.
func (c *Chunk) Metadata() map[string]any {
	md := map[string]any{
		MetaUnitID:       c.UnitID,
		MetaTitle:        c.Title,
		MetaUploader:     c.Uploader,
		MetaURL:          c.SourceURL,
		MetaTimestampURL: c.TimestampURL,
		MetaStartTime:    c.StartTime,
		MetaEndTime:      c.EndTime,
		MetaStartSeconds: c.StartSeconds,
		MetaEndSeconds:   c.EndSeconds,
		MetaSegmentCount: c.SegmentCount,
		MetaChunkType:    ChunkTypeTranscript,
		MetaPosition:     c.Position,
	}
	if c.TenantID != "" {
		md[MetaTenantID] = c.TenantID
	}
	return md
}

// ChunkFromMetadata rebuilds a chunk from stored metadata.
// Numeric values may arrive as float64 or int depending on the store codec.
func ChunkFromMetadata(id, content string, md map[string]any) Chunk {
	return Chunk{
		ID:           id,
		UnitID:       metaString(md, MetaUnitID),
		TenantID:     metaString(md, MetaTenantID),
		Position:     int(metaFloat(md, MetaPosition)),
		Title:        metaString(md, MetaTitle),
		Uploader:     metaString(md, MetaUploader),
		SourceURL:    metaString(md, MetaURL),
		TimestampURL: metaString(md, MetaTimestampURL),
		StartTime:    metaString(md, MetaStartTime),
		EndTime:      metaString(md, MetaEndTime),
		StartSeconds: metaFloat(md, MetaStartSeconds),
		EndSeconds:   metaFloat(md, MetaEndSeconds),
		SegmentCount: int(metaFloat(md, MetaSegmentCount)),
		Content:      content,
	}
}

func metaString(md map[string]any, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}

func metaFloat(md map[string]any, key string) float64 {
	switch v := md[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// IndexedDocument is a chunk plus its embedding vector.
type IndexedDocument struct {
	Chunk     Chunk
	Embedding []float32
}

// TimestampURL appends a t=<seconds>s parameter to sourceURL.
// Fractional seconds are truncated. The URL is returned unchanged when
// startSeconds is zero or negative.
func TimestampURL(sourceURL string, startSeconds float64) string {
	if startSeconds <= 0 {
		return sourceURL
	}
	seconds := strconv.Itoa(int(startSeconds))
	if strings.Contains(sourceURL, "?") {
		return sourceURL + "&t=" + seconds + "s"
	}
	return sourceURL + "?t=" + seconds + "s"
}
