// Package mcp exposes topic search over the Model Context Protocol so AI
// assistants can query indexed transcripts.
package mcp

import "errors"

var (
	// ErrMissingSearchService means Ports carried no SearchService.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrIndexUnavailable is returned by index_status when the server
	// was started without an IndexBuilder.
	ErrIndexUnavailable = errors.New("mcp: index status not available")
)
