package conversation

import (
	"context"

	"github.com/yichen/compass/backend/internal/contracts"
)

// Advisor is the strategy pipeline surface the conversation layer drives
type Advisor interface {
	Generate(ctx context.Context, userID int64, name string, elements *contracts.InvestmentElements) (*contracts.StrategyConfig, error)
	Optimize(ctx context.Context, strategyID int64, feedbackText string) (*contracts.StrategyConfig, []contracts.WeightChange, error)
	Backtest(ctx context.Context, strategyID int64, days int) (*contracts.BacktestResult, error)
}

// MessageChecker screens inbound text for compliance violations
type MessageChecker interface {
	Check(text string) []string
}

// ClientMessage is one inbound frame from the user's client.
// 要素以结构化形式传入, 文本只用于触发词和反馈分类
type ClientMessage struct {
	Type     string                        `json:"type"` // message | elements
	Text     string                        `json:"text,omitempty"`
	Elements *contracts.InvestmentElements `json:"elements,omitempty"`
}

// ServerMessage is one outbound frame to the user's client.
// 只携带结构化数据, 自然语言渲染在客户端完成
type ServerMessage struct {
	Type       string                    `json:"type"` // stage | strategy | changes | backtest | error
	Stage      Stage                     `json:"stage,omitempty"`
	Progress   float64                   `json:"progress,omitempty"`
	Strategy   *contracts.StrategyConfig `json:"strategy,omitempty"`
	Changes    []contracts.WeightChange  `json:"changes,omitempty"`
	Backtest   *contracts.BacktestResult `json:"backtest,omitempty"`
	Violations []string                  `json:"violations,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// sessionState is the per-connection conversation state
type sessionState struct {
	userID     int64
	stage      Stage
	elements   contracts.InvestmentElements
	strategyID int64
}

// mergeElements folds a structured elements update into the session.
// 只覆盖提供了的字段, 未提供的保持原值
func (s *sessionState) mergeElements(update *contracts.InvestmentElements) {
	if update == nil {
		return
	}
	if update.RiskLevel != "" {
		s.elements.RiskLevel = update.RiskLevel
	}
	if update.TargetReturn > 0 {
		s.elements.TargetReturn = update.TargetReturn
	}
	if update.MaxDrawdownTolerance > 0 {
		s.elements.MaxDrawdownTolerance = update.MaxDrawdownTolerance
	}
	if update.InvestmentAmount > 0 {
		s.elements.InvestmentAmount = update.InvestmentAmount
	}
	if len(update.PreferredAssetClasses) > 0 {
		s.elements.PreferredAssetClasses = update.PreferredAssetClasses
	}
	if len(update.ForbiddenAssets) > 0 {
		s.elements.ForbiddenAssets = update.ForbiddenAssets
	}
	if update.Constraints != (contracts.UniverseConstraints{}) {
		s.elements.Constraints = update.Constraints
	}
}
