package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// ETFHandler handles instrument lookup endpoints
type ETFHandler struct {
	catalog contracts.InstrumentCatalog
	logger  *logger.Logger
}

// NewETFHandler creates a new ETF handler
func NewETFHandler(catalog contracts.InstrumentCatalog, log *logger.Logger) *ETFHandler {
	return &ETFHandler{
		catalog: catalog,
		logger:  log,
	}
}

// List returns instruments filtered by asset class and sector
// GET /api/etf?asset_class=&sector=&limit=
func (h *ETFHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	candidates, err := h.catalog.ListInstruments(r.Context(), q.Get("asset_class"), q.Get("sector"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Instrument list failed")
		respondDomainError(w, err, "Failed to list instruments")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"instruments": candidates,
		"count":       len(candidates),
	})
}

// Search returns instruments matching a keyword
// GET /api/etf/search?q=&limit=
func (h *ETFHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	candidates, err := h.catalog.SearchInstruments(r.Context(), keyword, limit)
	if err != nil {
		h.logger.WithError(err).Error("Instrument search failed")
		respondDomainError(w, err, "Failed to search instruments")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"instruments": candidates,
		"count":       len(candidates),
	})
}

// Get returns one instrument by code
// GET /api/etf/{code}
func (h *ETFHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	candidate, err := h.catalog.GetInstrument(r.Context(), code)
	if err != nil {
		respondDomainError(w, err, "Failed to retrieve instrument")
		return
	}

	respondJSON(w, http.StatusOK, candidate)
}
