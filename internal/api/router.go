package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/yichen/compass/backend/internal/api/handlers"
	"github.com/yichen/compass/backend/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 路由配置只在这个函数
func NewRouter(
	strategyHandler *handlers.StrategyHandler,
	etfHandler *handlers.ETFHandler,
	newsHandler *handlers.NewsHandler,
	conversation http.Handler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// WebSocket conversation
	r.Handle("/ws/conversation", conversation)

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Strategy endpoints
	api.HandleFunc("/strategies", strategyHandler.Generate).Methods("POST")
	api.HandleFunc("/strategies", strategyHandler.List).Methods("GET")
	api.HandleFunc("/strategies/{id:[0-9]+}", strategyHandler.Get).Methods("GET")
	api.HandleFunc("/strategies/{id:[0-9]+}/feedback", strategyHandler.Feedback).Methods("POST")
	api.HandleFunc("/strategies/{id:[0-9]+}/backtest", strategyHandler.RunBacktest).Methods("POST")
	api.HandleFunc("/strategies/{id:[0-9]+}/backtest", strategyHandler.GetBacktest).Methods("GET")

	// Instrument endpoints
	api.HandleFunc("/etf", etfHandler.List).Methods("GET")
	api.HandleFunc("/etf/search", etfHandler.Search).Methods("GET")
	api.HandleFunc("/etf/{code}", etfHandler.Get).Methods("GET")

	// Market news endpoints
	api.HandleFunc("/news", newsHandler.List).Methods("GET")
	api.HandleFunc("/news/sector/{sector}", newsHandler.Sector).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "compass-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
