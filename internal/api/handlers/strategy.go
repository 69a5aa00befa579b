package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// StrategyService is the slice of the strategy workflow the API needs
type StrategyService interface {
	Generate(ctx context.Context, userID int64, name string, elements *contracts.InvestmentElements) (*contracts.StrategyConfig, error)
	Optimize(ctx context.Context, strategyID int64, feedbackText string) (*contracts.StrategyConfig, []contracts.WeightChange, error)
	Backtest(ctx context.Context, strategyID int64, days int) (*contracts.BacktestResult, error)
	Get(ctx context.Context, strategyID int64) (*contracts.StrategyConfig, error)
	List(ctx context.Context, userID int64, limit int) ([]contracts.StrategyConfig, error)
	GetBacktest(ctx context.Context, strategyID int64) (*contracts.BacktestResult, error)
}

// StrategyHandler handles strategy API endpoints
// ⭐ SSOT: 策略 API 处理只在这个结构体
type StrategyHandler struct {
	service StrategyService
	logger  *logger.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(service StrategyService, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{
		service: service,
		logger:  log,
	}
}

// GenerateRequest is the payload for strategy generation
type GenerateRequest struct {
	UserID   int64                        `json:"user_id"`
	Name     string                       `json:"name"`
	Elements contracts.InvestmentElements `json:"elements"`
}

// Generate builds and persists a new strategy
// POST /api/strategies
func (h *StrategyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !req.Elements.RiskLevel.IsValid() {
		respondError(w, http.StatusBadRequest, "invalid risk_level")
		return
	}

	config, err := h.service.Generate(r.Context(), req.UserID, req.Name, &req.Elements)
	if err != nil {
		h.logger.WithError(err).Error("Strategy generation failed")
		respondDomainError(w, err, "Failed to generate strategy")
		return
	}

	respondJSON(w, http.StatusCreated, config)
}

// FeedbackRequest carries free-form user feedback on a strategy
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// FeedbackResponse reports the adjusted strategy and what moved
type FeedbackResponse struct {
	Strategy *contracts.StrategyConfig `json:"strategy"`
	Changes  []contracts.WeightChange  `json:"changes"`
}

// Feedback adjusts a strategy from natural-language feedback
// POST /api/strategies/{id}/feedback
func (h *StrategyHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Feedback == "" {
		respondError(w, http.StatusBadRequest, "feedback is required")
		return
	}

	config, changes, err := h.service.Optimize(r.Context(), id, req.Feedback)
	if err != nil {
		h.logger.WithError(err).WithStrategy(id).Error("Strategy optimization failed")
		respondDomainError(w, err, "Failed to optimize strategy")
		return
	}

	respondJSON(w, http.StatusOK, FeedbackResponse{
		Strategy: config,
		Changes:  changes,
	})
}

// BacktestRequest sets the simulation window
type BacktestRequest struct {
	Days int `json:"days"`
}

// RunBacktest simulates the strategy and stores the result
// POST /api/strategies/{id}/backtest
func (h *StrategyHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	// 请求体可以为空, 用默认窗口
	var req BacktestRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.service.Backtest(r.Context(), id, req.Days)
	if err != nil {
		h.logger.WithError(err).WithStrategy(id).Error("Backtest failed")
		respondDomainError(w, err, "Failed to run backtest")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get returns one strategy with its allocation
// GET /api/strategies/{id}
func (h *StrategyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	config, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err, "Failed to retrieve strategy")
		return
	}

	respondJSON(w, http.StatusOK, config)
}

// List returns a user's strategies, newest first
// GET /api/strategies?user_id=&limit=
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	configs, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Strategy list failed")
		respondDomainError(w, err, "Failed to list strategies")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": configs,
		"count":      len(configs),
	})
}

// GetBacktest returns the stored backtest of a strategy
// GET /api/strategies/{id}/backtest
func (h *StrategyHandler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetBacktest(r.Context(), id)
	if err != nil {
		respondDomainError(w, err, "Failed to retrieve backtest")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// pathID parses the {id} path variable, writing a 400 on failure
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid strategy id")
		return 0, false
	}
	return id, true
}
