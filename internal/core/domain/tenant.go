package domain

// Tenant is one channel with its own isolated store.
type Tenant struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	URL      string         `json:"url"`
	Enabled  bool           `json:"enabled"`
	Settings map[string]any `json:"settings,omitempty"`
}

// DisplayName returns Name, or ID when no name is set.
func (t Tenant) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
