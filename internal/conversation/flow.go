package conversation

import (
	"strings"

	"github.com/yichen/compass/backend/internal/contracts"
)

// Stage is one state of the advisory conversation
type Stage string

const (
	StageNewUserIntroduction Stage = "new_user_introduction"
	StageOldUserWelcome      Stage = "old_user_welcome"
	StageElementCollection   Stage = "element_collection"
	StageStrategyGeneration  Stage = "strategy_generation"
	StageStrategyPresent     Stage = "strategy_presentation"
	StageStrategyOptimize    Stage = "strategy_optimization"
	StageStrategyReview      Stage = "strategy_review"
	StageMarketRecommend     Stage = "market_recommendation"
	StageStrategySave        Stage = "strategy_save"
	StageConversationEnd     Stage = "conversation_end"
)

// stageDefinition describes one stage's trigger keywords and allowed exits
type stageDefinition struct {
	// Triggers pull the conversation INTO this stage when the user's message
	// contains one of them and the transition is allowed.
	Triggers []string
	// Next lists the stages reachable from this one. 空列表表示终态
	Next []Stage
	// Default is taken when no trigger matches
	Default Stage
}

// Flow is the keyword-driven conversation stage machine.
// 固定规则, 不做自然语言理解; 要素以结构化形式从外部传入.
// ⭐ SSOT: 会话阶段流转只在这里
type Flow struct {
	stages map[Stage]stageDefinition
}

// NewFlow creates the stage machine with the standard advisory flow
func NewFlow() *Flow {
	return &Flow{stages: map[Stage]stageDefinition{
		StageNewUserIntroduction: {
			Next:    []Stage{StageElementCollection, StageMarketRecommend, StageConversationEnd},
			Default: StageElementCollection,
		},
		StageOldUserWelcome: {
			Next:    []Stage{StageElementCollection, StageMarketRecommend, StageStrategyReview, StageConversationEnd},
			Default: StageElementCollection,
		},
		StageElementCollection: {
			Triggers: []string{"开始", "投资", "配置", "理财"},
			Next:     []Stage{StageStrategyGeneration, StageMarketRecommend, StageConversationEnd},
			Default:  StageElementCollection,
		},
		StageStrategyGeneration: {
			Triggers: []string{"生成策略", "帮我配置", "出个方案"},
			Next:     []Stage{StageStrategyPresent},
			Default:  StageStrategyPresent,
		},
		StageStrategyPresent: {
			Next:    []Stage{StageStrategyOptimize, StageStrategySave, StageStrategyReview, StageConversationEnd},
			Default: StageStrategyOptimize,
		},
		StageStrategyOptimize: {
			Triggers: []string{"调整", "修改", "优化", "风险太高", "收益太低"},
			Next:     []Stage{StageStrategyPresent, StageStrategySave, StageConversationEnd},
			Default:  StageStrategyPresent,
		},
		StageStrategyReview: {
			Triggers: []string{"看看", "回顾", "我的策略"},
			Next:     []Stage{StageStrategyOptimize, StageMarketRecommend, StageConversationEnd},
			Default:  StageConversationEnd,
		},
		StageMarketRecommend: {
			Triggers: []string{"行情", "市场", "推荐", "热点"},
			Next:     []Stage{StageElementCollection, StageStrategyReview, StageConversationEnd},
			Default:  StageConversationEnd,
		},
		StageStrategySave: {
			Triggers: []string{"保存", "就这个", "确定"},
			Next:     []Stage{StageMarketRecommend, StageConversationEnd},
			Default:  StageConversationEnd,
		},
		StageConversationEnd: {
			Triggers: []string{"再见", "谢谢", "结束"},
		},
	}}
}

// InitialStage picks the entry stage by user history
func (f *Flow) InitialStage(returningUser bool) Stage {
	if returningUser {
		return StageOldUserWelcome
	}
	return StageNewUserIntroduction
}

// IsValidTransition reports whether current → target is allowed
func (f *Flow) IsValidTransition(current, target Stage) bool {
	def, ok := f.stages[current]
	if !ok {
		return false
	}
	for _, next := range def.Next {
		if next == target {
			return true
		}
	}
	return false
}

// NextStage advances the machine on one user message.
// 触发词命中且转移合法时进入对应阶段; 进入策略生成额外要求要素齐备;
// 否则走默认出口.
func (f *Flow) NextStage(current Stage, message string, elements *contracts.InvestmentElements) Stage {
	def, ok := f.stages[current]
	if !ok || len(def.Next) == 0 {
		return current
	}

	for _, candidate := range def.Next {
		if !f.triggered(candidate, message) {
			continue
		}
		if candidate == StageStrategyGeneration && !ShouldGenerateStrategy(elements) {
			continue
		}
		return candidate
	}

	// 要素一旦齐备, 收集阶段自动推进到策略生成
	if current == StageElementCollection && ShouldGenerateStrategy(elements) {
		return StageStrategyGeneration
	}

	if def.Default == current || f.IsValidTransition(current, def.Default) {
		return def.Default
	}
	return current
}

// triggered reports whether the message contains one of the stage's triggers
func (f *Flow) triggered(stage Stage, message string) bool {
	def, ok := f.stages[stage]
	if !ok || message == "" {
		return false
	}
	for _, trigger := range def.Triggers {
		if strings.Contains(message, trigger) {
			return true
		}
	}
	return false
}

// ShouldGenerateStrategy gates strategy generation on element completeness.
// 风险等级 / 目标收益 / 偏好类别三要素至少齐两个
func ShouldGenerateStrategy(elements *contracts.InvestmentElements) bool {
	if elements == nil {
		return false
	}
	have := 0
	if elements.RiskLevel.IsValid() {
		have++
	}
	if elements.HasTargetReturn() {
		have++
	}
	if len(elements.PreferredAssetClasses) > 0 {
		have++
	}
	return have >= 2
}

// progressOrder is the nominal happy path used for progress display
var progressOrder = []Stage{
	StageNewUserIntroduction,
	StageElementCollection,
	StageStrategyGeneration,
	StageStrategyPresent,
	StageStrategyOptimize,
	StageStrategySave,
	StageConversationEnd,
}

// Progress reports the position of a stage on the nominal path, 0.0 to 1.0.
// 不在主路径上的阶段按收集中处理
func (f *Flow) Progress(stage Stage) float64 {
	if stage == StageOldUserWelcome {
		stage = StageNewUserIntroduction
	}
	for i, s := range progressOrder {
		if s == stage {
			return float64(i) / float64(len(progressOrder)-1)
		}
	}
	return float64(1) / float64(len(progressOrder)-1)
}
