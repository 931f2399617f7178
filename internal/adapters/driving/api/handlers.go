package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/topicseek/internal/core/domain"
	"github.com/custodia-labs/topicseek/internal/core/ports/driven"
	"github.com/custodia-labs/topicseek/internal/core/ports/driving"
)

// SearchResponse is the body of both search routes.
type SearchResponse struct {
	Query   string                `json:"query"`
	Count   int                   `json:"count"`
	Results []domain.SearchResult `json:"results"`
}

// CheckHandler answers liveness probes.
type CheckHandler struct{}

// HandleHealthy reports the process is up.
func (CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// SearchHandler serves topic queries.
type SearchHandler struct {
	search driving.SearchService
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(search driving.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// HandleSearch serves GET /api/v1/search.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var params SearchParams
	if c.QueryParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := validateParams(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	results, err := h.search.Search(c.UserContext(), params.Query, domain.SearchOptions{
		Limit:       params.Limit,
		Scope:       params.Scope,
		SkipSummary: params.NoSummary,
	})
	if err != nil {
		return err
	}
	return c.JSON(newSearchResponse(params.Query, results))
}

// HandleUnified serves GET /api/v1/unified.
func (h *SearchHandler) HandleUnified(c *fiber.Ctx) error {
	var params UnifiedParams
	if c.QueryParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := validateParams(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	results, err := h.search.UnifiedSearch(c.UserContext(), params.Query, domain.SearchOptions{
		Limit:        params.Limit,
		TenantFilter: params.Tenant,
		SkipSummary:  params.NoSummary,
	})
	if err != nil {
		return err
	}
	return c.JSON(newSearchResponse(params.Query, results))
}

// StoreHandler reports on and rebuilds similarity stores.
type StoreHandler struct {
	index driving.IndexBuilder
}

// NewStoreHandler creates a store handler. index may be nil.
func NewStoreHandler(index driving.IndexBuilder) *StoreHandler {
	return &StoreHandler{index: index}
}

// HandleStatus serves GET /api/v1/stores/:store/status.
func (h *StoreHandler) HandleStatus(c *fiber.Ctx) error {
	if h.index == nil {
		return errNotConfigured("index")
	}
	status, err := h.index.Status(c.UserContext(), c.Params("store"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// HandleBuild serves POST /api/v1/stores/:store/build. The build runs to
// completion before the response is written.
func (h *StoreHandler) HandleBuild(c *fiber.Ctx) error {
	if h.index == nil {
		return errNotConfigured("index")
	}

	var params BuildParams
	if c.QueryParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := validateParams(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	mode := domain.BuildModeIncremental
	if params.Mode != "" {
		mode = domain.BuildMode(params.Mode)
	}

	report := h.index.Build(c.UserContext(), domain.BuildRequest{StoreID: c.Params("store"), Mode: mode})
	if !report.Success {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return c.JSON(report)
}

// TenantHandler lists channels.
type TenantHandler struct {
	tenants driven.TenantRegistry
}

// NewTenantHandler creates a tenant handler. tenants may be nil.
func NewTenantHandler(tenants driven.TenantRegistry) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// HandleList serves GET /api/v1/tenants.
func (h *TenantHandler) HandleList(c *fiber.Ctx) error {
	if h.tenants == nil {
		return c.JSON([]domain.Tenant{})
	}
	tenants, err := h.tenants.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(tenants)
}

func newSearchResponse(query string, results []domain.SearchResult) SearchResponse {
	if results == nil {
		results = []domain.SearchResult{}
	}
	return SearchResponse{Query: query, Count: len(results), Results: results}
}
