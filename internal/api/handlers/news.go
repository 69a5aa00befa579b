package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/yichen/compass/backend/internal/external/sina"
	"github.com/yichen/compass/backend/pkg/logger"
)

// NewsService is the slice of the news client the API needs
type NewsService interface {
	FetchNews(ctx context.Context, category string, limit int) ([]sina.NewsItem, error)
	SectorNews(ctx context.Context, sector string, limit int) ([]sina.NewsItem, error)
}

// NewsHandler handles market news endpoints
type NewsHandler struct {
	news   NewsService
	logger *logger.Logger
}

// NewNewsHandler creates a new news handler
func NewNewsHandler(news NewsService, log *logger.Logger) *NewsHandler {
	return &NewsHandler{
		news:   news,
		logger: log,
	}
}

// List returns the latest market news
// GET /api/news?category=&limit=
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "finance"
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	items, err := h.news.FetchNews(r.Context(), category, limit)
	if err != nil {
		// 资讯属于增强功能, 源站失败返回空列表而不是 5xx
		h.logger.WithError(err).Warn("News fetch failed")
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"news":  []sina.NewsItem{},
			"count": 0,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"news":  items,
		"count": len(items),
	})
}

// Sector returns news for a named sector
// GET /api/news/sector/{sector}
func (h *NewsHandler) Sector(w http.ResponseWriter, r *http.Request) {
	sector := mux.Vars(r)["sector"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	items, err := h.news.SectorNews(r.Context(), sector, limit)
	if err != nil {
		h.logger.WithError(err).Warn("Sector news fetch failed")
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"news":  []sina.NewsItem{},
			"count": 0,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"news":  items,
		"count": len(items),
	})
}
