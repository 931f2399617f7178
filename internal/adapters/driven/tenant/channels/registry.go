// Package channels reads the tenant registry from a channels.json file.
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.TenantRegistry = (*Registry)(nil)

// DefaultFileName is the registry file name inside the data directory.
const DefaultFileName = "channels.json"

type entry struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	URL      string         `json:"url"`
	Enabled  *bool          `json:"enabled"`
	Settings map[string]any `json:"settings"`
}

type file struct {
	Channels json.RawMessage `json:"channels"`
}

// Registry is a read-only driven.TenantRegistry over channels.json.
// The file is re-read on every call so edits by other tools are seen.
type Registry struct {
	path string
}

// NewRegistry creates a registry reading path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the registry file path.
func (r *Registry) Path() string {
	return r.path
}

// List returns every tenant in file order. A missing file is an empty registry.
func (r *Registry) List(_ context.Context) ([]domain.Tenant, error) {
	if r.path == "" {
		return []domain.Tenant{}, nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Tenant{}, nil
		}
		return nil, fmt.Errorf("read channels: %w", err)
	}

	tenants, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return tenants, nil
}

// Get returns one tenant or domain.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	tenants, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		if tenants[i].ID == id {
			return &tenants[i], nil
		}
	}
	return nil, fmt.Errorf("%w: tenant %s", domain.ErrNotFound, id)
}

// parse accepts {"channels": [...]} and {"channels": {"<id>": {...}}}.
// Object entries without an id take their key; enabled defaults to true.
func parse(data []byte) ([]domain.Tenant, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	raw := bytes.TrimSpace(f.Channels)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []domain.Tenant{}, nil
	}

	var entries []entry
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("%w: channels: %v", domain.ErrInvalidInput, err)
		}
	case '{':
		var byID map[string]entry
		if err := json.Unmarshal(raw, &byID); err != nil {
			return nil, fmt.Errorf("%w: channels: %v", domain.ErrInvalidInput, err)
		}
		keys := make([]string, 0, len(byID))
		for k := range byID {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e := byID[k]
			if e.ID == "" {
				e.ID = k
			}
			entries = append(entries, e)
		}
	default:
		return nil, fmt.Errorf("%w: channels must be a list or object", domain.ErrInvalidInput)
	}

	tenants := make([]domain.Tenant, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: channel %d has no id", domain.ErrInvalidInput, i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: duplicate channel %s", domain.ErrInvalidInput, e.ID)
		}
		seen[e.ID] = true

		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		tenants = append(tenants, domain.Tenant{
			ID:       e.ID,
			Name:     e.Name,
			URL:      e.URL,
			Enabled:  enabled,
			Settings: e.Settings,
		})
	}
	return tenants, nil
}
