// Package filesystem reads enhanced transcript documents from a directory
// tree and watches it for new ones.
//
// Two layouts are recognised:
//
//	<dir>/<unit_id>_enhanced.json            (flat, tenant "")
//	<dir>/<tenant_id>/<unit_id>_enhanced.json
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.TranscriptSource = (*Source)(nil)

// FileSuffix marks transcript documents.
const FileSuffix = "_enhanced.json"

// documentSchema describes the subset of an enhanced document we rely on.
// Descriptive fields may be null in older exports.
const documentSchema = `{
  "type": "object",
  "required": ["transcript"],
  "properties": {
    "video_id":   {"type": ["string", "null"]},
    "title":      {"type": ["string", "null"]},
    "uploader":   {"type": ["string", "null"]},
    "channel":    {"type": ["string", "null"]},
    "channel_id": {"type": ["string", "null"]},
    "url":        {"type": ["string", "null"]},
    "duration":   {"type": ["number", "null"]},
    "transcript": {
      "type": "object",
      "required": ["segments"],
      "properties": {
        "segments": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["text", "start_seconds", "end_seconds"],
            "properties": {
              "start_time":    {"type": "string"},
              "end_time":      {"type": "string"},
              "start_seconds": {"type": "number", "minimum": 0},
              "end_seconds":   {"type": "number", "minimum": 0},
              "text":          {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

var compiledSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		panic(fmt.Sprintf("compile transcript schema: %v", err))
	}
	return s
}()

type document struct {
	VideoID   *string  `json:"video_id"`
	Title     *string  `json:"title"`
	Uploader  *string  `json:"uploader"`
	Channel   *string  `json:"channel"`
	ChannelID *string  `json:"channel_id"`
	URL       *string  `json:"url"`
	Duration  *float64 `json:"duration"`

	Transcript struct {
		Segments []domain.TranscriptSegment `json:"segments"`
	} `json:"transcript"`
}

// Source is a driven.TranscriptSource over a transcripts directory.
type Source struct {
	dir string
}

// NewSource creates a source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Dir returns the transcripts directory.
func (s *Source) Dir() string {
	return s.dir
}

// Discover lists transcript files sorted by tenant then unit id. A missing
// root directory yields no refs. Hidden directories are skipped.
func (s *Source) Discover(ctx context.Context, tenantID string) ([]domain.UnitRef, error) {
	if tenantID != "" {
		return s.scan(ctx, filepath.Join(s.dir, tenantID), tenantID)
	}

	refs, err := s.scan(ctx, s.dir, "")
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return refs, nil
		}
		return nil, fmt.Errorf("read transcripts dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		tenantRefs, err := s.scan(ctx, filepath.Join(s.dir, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		refs = append(refs, tenantRefs...)
	}
	return refs, nil
}

func (s *Source) scan(ctx context.Context, dir, tenantID string) ([]domain.UnitRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var refs []domain.UnitRef
	for _, e := range entries {
		id, ok := unitIDFromName(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		refs = append(refs, domain.UnitRef{
			ID:       id,
			TenantID: tenantID,
			Locator:  filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// Load reads and validates one transcript document. Documents failing the
// schema are reported as domain.ErrInvalidInput.
func (s *Source) Load(ctx context.Context, ref domain.UnitRef) (*domain.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: transcript %s", domain.ErrNotFound, ref.ID)
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidInput, filepath.Base(path), err)
	}

	id := ref.ID
	if id == "" {
		id, _ = unitIDFromName(filepath.Base(path))
	}
	if v := deref(doc.VideoID); v != "" && v != id {
		return nil, fmt.Errorf("%w: %s holds video_id %q", domain.ErrInvalidInput, filepath.Base(path), v)
	}

	tenantID := ref.TenantID
	if tenantID == "" {
		tenantID = tenantFromPath(s.dir, path)
	}

	unit := &domain.Unit{
		ID:        id,
		TenantID:  tenantID,
		Title:     deref(doc.Title),
		Uploader:  deref(doc.Uploader),
		Channel:   deref(doc.Channel),
		SourceURL: deref(doc.URL),
		Segments:  doc.Transcript.Segments,
	}
	if doc.Duration != nil {
		unit.Duration = *doc.Duration
	}
	if unit.Channel == "" {
		unit.Channel = deref(doc.ChannelID)
	}
	if err := unit.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return unit, nil
}

// resolve finds the file for ref. Refs from Discover carry their path;
// bare refs are looked up by tenant, then flat, then in every tenant dir.
func (s *Source) resolve(ref domain.UnitRef) (string, error) {
	if ref.Locator != "" {
		return ref.Locator, nil
	}
	if ref.ID == "" || strings.ContainsAny(ref.ID, `/\`) {
		return "", fmt.Errorf("%w: unit id %q", domain.ErrInvalidInput, ref.ID)
	}

	name := ref.ID + FileSuffix
	if ref.TenantID != "" {
		return filepath.Join(s.dir, ref.TenantID, name), nil
	}

	flat := filepath.Join(s.dir, name)
	if _, err := os.Stat(flat); err == nil {
		return flat, nil
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, "*", name))
	if err != nil {
		return "", fmt.Errorf("find transcript: %w", err)
	}
	sort.Strings(matches)
	if len(matches) > 0 {
		return matches[0], nil
	}
	return flat, nil
}

func validate(data []byte) error {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

// unitIDFromName returns the unit id encoded in a transcript file name.
func unitIDFromName(name string) (string, bool) {
	if isHidden(name) || !strings.HasSuffix(name, FileSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(name, FileSuffix)
	return id, id != ""
}

// tenantFromPath returns the tenant directory between root and path, or "".
func tenantFromPath(root, path string) string {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
