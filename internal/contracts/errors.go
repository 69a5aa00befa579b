package contracts

import "errors"

// Failure taxonomy of the strategy core. Callers classify with errors.Is.
// ⭐ SSOT: 策略核心的错误分类只在这里定义
var (
	// ErrEmptyUniverse means no instrument survived filtering.
	// 可恢复: 建议调用方放宽约束后重试.
	ErrEmptyUniverse = errors.New("no eligible instruments after filtering")

	// ErrInsufficientHistory means the price history is shorter than the
	// minimum window. Metrics are still returned with a low-confidence flag.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrInvalidWeights means an allocation broke the sum-to-100 invariant.
	// 程序级缺陷, 正常运行不应出现, 测试中必须大声失败.
	ErrInvalidWeights = errors.New("allocation violates weight invariant")

	// ErrStrategyNotFound means the requested strategy does not exist in storage.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrInstrumentNotFound means the requested instrument is not in the catalog.
	ErrInstrumentNotFound = errors.New("instrument not found")
)
