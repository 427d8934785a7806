package api

import (
	"net/http"
)

// ServiceInfo is returned from the root path.
type ServiceInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// Handlers groups every handler served by the API.
type Handlers struct {
	Tools   *ToolHandlers
	Links   *LinkHandlers
	Health  *HealthHandlers
	Metrics http.Handler
	Info    ServiceInfo
}

// NewRouter registers all API routes on a new ServeMux. A nil Metrics
// handler leaves /metrics unregistered.
//
// Patterns carry no method so the catch-all 404 does not shadow 405
// responses; handlers check the method themselves.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/tools/{slug}/alternatives", h.Tools.GetAlternatives)

	mux.HandleFunc("/links/tools/{slug}", h.Links.ForItem)
	mux.HandleFunc("/links/alternatives/{slug}", h.Links.ForAlternatives)
	mux.HandleFunc("/links/compare/{pair}", h.Links.ForComparison)
	mux.HandleFunc("/links/categories/{slug}", h.Links.ForCategory)
	mux.HandleFunc("/links/best/{token}", h.Links.ForBest)

	mux.HandleFunc("/health", h.Health.Health)
	mux.HandleFunc("/ready", h.Health.Ready)

	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}

	// Everything unmatched gets the JSON 404 envelope.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		if !requireGET(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, h.Info)
	})

	return mux
}
