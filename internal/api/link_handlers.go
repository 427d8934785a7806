package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/findaly/findaly/internal/linking"
	"github.com/findaly/findaly/internal/validate"
)

// LinkAssembler builds the internal-link bundle of each page kind.
type LinkAssembler interface {
	ForItem(ctx context.Context, slug string) (*linking.Bundle, error)
	ForAlternatives(ctx context.Context, slug string) (*linking.Bundle, error)
	ForComparison(ctx context.Context, token string) (*linking.Bundle, error)
	ForCategory(ctx context.Context, slug string) (*linking.Bundle, error)
	ForBest(ctx context.Context, token string) (*linking.Bundle, error)
}

// LinkHandlers serves link bundles. Unknown pages get an empty bundle with
// 200 so page renderers never have to special-case missing links.
type LinkHandlers struct {
	assembler LinkAssembler
}

// NewLinkHandlers creates a new LinkHandlers instance.
func NewLinkHandlers(assembler LinkAssembler) *LinkHandlers {
	return &LinkHandlers{assembler: assembler}
}

// ForItem handles GET /links/tools/{slug}.
func (h *LinkHandlers) ForItem(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, linking.PageItem, r.PathValue("slug"), h.assembler.ForItem)
}

// ForAlternatives handles GET /links/alternatives/{slug}.
func (h *LinkHandlers) ForAlternatives(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, linking.PageAlternatives, r.PathValue("slug"), h.assembler.ForAlternatives)
}

// ForComparison handles GET /links/compare/{pair}.
func (h *LinkHandlers) ForComparison(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, linking.PageComparison, r.PathValue("pair"), h.assembler.ForComparison)
}

// ForCategory handles GET /links/categories/{slug}.
func (h *LinkHandlers) ForCategory(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, linking.PageCategory, r.PathValue("slug"), h.assembler.ForCategory)
}

// ForBest handles GET /links/best/{token}.
func (h *LinkHandlers) ForBest(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, linking.PageBest, r.PathValue("token"), h.assembler.ForBest)
}

func (h *LinkHandlers) serve(w http.ResponseWriter, r *http.Request, kind linking.PageKind, token string,
	build func(context.Context, string) (*linking.Bundle, error)) {
	if !requireGET(w, r) {
		return
	}
	// Malformed tokens cannot name a page; skip the store and the cache.
	if _, err := validate.Token(token); err != nil {
		writeJSON(w, r, http.StatusOK, linking.EmptyBundle())
		return
	}
	bundle, err := build(r.Context(), token)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build link bundle",
			"kind", string(kind), "token", token, "error", err)
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load links")
		return
	}
	if bundle == nil {
		bundle = linking.EmptyBundle()
	}
	writeJSON(w, r, http.StatusOK, bundle)
}
