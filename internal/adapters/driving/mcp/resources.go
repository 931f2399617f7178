package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "topicseek://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "tenants",
		Name:        "tenants",
		Description: "Configured channels and whether they take part in unified search",
		MIMEType:    "application/json",
	}, s.handleTenantsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "stores/{storeId}/status",
		Name:        "store-status",
		Description: "Status of one similarity store",
		MIMEType:    "application/json",
	}, s.handleStoreStatusResource)
}

func (s *Server) handleTenantsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type tenantInfo struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		URL     string `json:"url,omitempty"`
		Enabled bool   `json:"enabled"`
	}

	infos := []tenantInfo{}
	if s.ports.Tenants != nil {
		tenants, err := s.ports.Tenants.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tenants: %w", err)
		}
		for _, t := range tenants {
			infos = append(infos, tenantInfo{
				ID:      t.ID,
				Name:    t.DisplayName(),
				URL:     t.URL,
				Enabled: t.Enabled,
			})
		}
	}

	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleStoreStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	storeID := extractStoreID(req.Params.URI)
	if storeID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Index.Status(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("store status: %w", err)
	}
	return jsonResource(req.Params.URI, newIndexStatusOutput(status))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractStoreID extracts the store id from topicseek://stores/{storeId}/status.
func extractStoreID(uri string) string {
	const prefix = uriScheme + "stores/"
	const suffix = "/status"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(rest, suffix) {
		return ""
	}
	id := strings.TrimSuffix(rest, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
