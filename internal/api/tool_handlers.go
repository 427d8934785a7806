package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/findaly/findaly/internal/alternatives"
	"github.com/findaly/findaly/internal/validate"
)

// AlternativesRanker ranks the alternatives of a tool.
type AlternativesRanker interface {
	Rank(ctx context.Context, slug string) (*alternatives.Result, error)
}

// ToolHandlers holds dependencies for tool HTTP handlers.
type ToolHandlers struct {
	ranker AlternativesRanker
}

// NewToolHandlers creates a new ToolHandlers instance.
func NewToolHandlers(ranker AlternativesRanker) *ToolHandlers {
	return &ToolHandlers{ranker: ranker}
}

// GetAlternatives handles GET /tools/{slug}/alternatives.
// Malformed slugs return 400; unknown and inactive tools return 404.
func (h *ToolHandlers) GetAlternatives(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	slug, err := validate.Slug(r.PathValue("slug"))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid tool slug")
		return
	}

	result, err := h.ranker.Rank(r.Context(), slug)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to rank alternatives", "slug", slug, "error", err)
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load alternatives")
		return
	}
	if result == nil {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "Tool not found")
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}
