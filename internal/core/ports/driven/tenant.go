package driven

import (
	"context"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// TenantRegistry lists the configured channels. It is read-only here;
// registry CRUD belongs to other tooling.
type TenantRegistry interface {
	// List returns every tenant, enabled or not.
	List(ctx context.Context) ([]domain.Tenant, error)

	// Get returns one tenant or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Tenant, error)
}
