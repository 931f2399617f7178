package cli

import "errors"

// Command errors.
var (
	errNoIndexBuilder  = errors.New("index builder not configured")
	errNoSearchService = errors.New("search service not configured")
	errNoSettings      = errors.New("settings service not configured")
	errNoWatcher       = errors.New("transcript watcher not configured")
	errBuildFailed     = errors.New("build failed")
)
