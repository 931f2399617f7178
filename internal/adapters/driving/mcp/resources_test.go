package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/topicseek/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/topicseek/internal/core/domain"
)

func TestExtractStoreID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid", "topicseek://stores/UC123/status", "UC123"},
		{"global", "topicseek://stores/global/status", "global"},
		{"invalid prefix", "file://stores/UC123/status", ""},
		{"missing suffix", "topicseek://stores/UC123", ""},
		{"nested", "topicseek://stores/a/b/status", ""},
		{"bare status", "topicseek://stores/status", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractStoreID(tt.uri))
		})
	}
}

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleTenantsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists tenants", func(t *testing.T) {
		registry := memory.NewTenantRegistry(
			domain.Tenant{ID: "UC1", Name: "First", Enabled: true},
			domain.Tenant{ID: "UC2", Enabled: false},
		)
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Tenants: registry})
		require.NoError(t, err)

		result, err := server.handleTenantsResource(ctx, readRequest("topicseek://tenants"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var infos []map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
		require.Len(t, infos, 2)
		assert.Equal(t, "First", infos[0]["name"])
		assert.Equal(t, "UC2", infos[1]["name"])
		assert.Equal(t, false, infos[1]["enabled"])
	})

	t.Run("no registry gives empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		result, err := server.handleTenantsResource(ctx, readRequest("topicseek://tenants"))
		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}

func TestServer_handleStoreStatusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns status", func(t *testing.T) {
		index := &mockIndexBuilder{status: &domain.IndexStatus{StoreID: "UC1", Exists: true, StoredChunks: 4}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Index: index})
		require.NoError(t, err)

		result, err := server.handleStoreStatusResource(ctx, readRequest("topicseek://stores/UC1/status"))
		require.NoError(t, err)

		var out IndexStatusOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &out))
		assert.Equal(t, "UC1", out.StoreID)
		assert.Equal(t, 4, out.StoredChunks)
	})

	t.Run("malformed uri", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Index: &mockIndexBuilder{}})
		require.NoError(t, err)

		_, err = server.handleStoreStatusResource(ctx, readRequest("topicseek://stores/UC1"))
		assert.Error(t, err)
	})

	t.Run("without index port", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, err = server.handleStoreStatusResource(ctx, readRequest("topicseek://stores/UC1/status"))
		assert.Error(t, err)
	})
}
