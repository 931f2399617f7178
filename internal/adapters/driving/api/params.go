package api

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SearchParams are the query parameters of GET /api/v1/search.
type SearchParams struct {
	Query     string `query:"q" validate:"max=2000"`
	Limit     int    `query:"limit" validate:"gte=0,lte=20"`
	Scope     string `query:"scope" validate:"max=256"`
	NoSummary bool   `query:"no_summary"`
}

// UnifiedParams are the query parameters of GET /api/v1/unified.
type UnifiedParams struct {
	Query     string `query:"q" validate:"max=2000"`
	Limit     int    `query:"limit" validate:"gte=0,lte=20"`
	Tenant    string `query:"tenant" validate:"max=256"`
	NoSummary bool   `query:"no_summary"`
}

// BuildParams are the query parameters of POST /api/v1/stores/:store/build.
type BuildParams struct {
	Mode string `query:"mode" validate:"omitempty,oneof=full incremental"`
}

// validateParams returns field errors keyed by field name, or nil.
func validateParams(params any) map[string]string {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return map[string]string{"request": err.Error()}
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
	}
	return out
}
