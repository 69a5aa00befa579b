package contracts

// FeedbackCategory is the classification of one round of user feedback
type FeedbackCategory string

const (
	FeedbackRiskReduction     FeedbackCategory = "risk_reduction"
	FeedbackReturnEnhancement FeedbackCategory = "return_enhancement"
	FeedbackRebalance         FeedbackCategory = "rebalance"
	FeedbackNone              FeedbackCategory = "none"
)

// FeedbackDirective is the output of feedback classification.
// 一次性消费: 优化器用完即弃, 不跨轮累积.
type FeedbackDirective struct {
	Category FeedbackCategory `json:"category"`
	Notes    string           `json:"notes,omitempty"` // 原始反馈文本
}

// WeightChange records one instrument's weight move for user display.
// 只报告超过可见阈值 (1 个百分点) 的变化.
type WeightChange struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	OldWeight float64 `json:"old_weight"`
	NewWeight float64 `json:"new_weight"`
	Delta     float64 `json:"delta"`
}
