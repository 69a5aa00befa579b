package safety

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func TestCheckCleanText(t *testing.T) {
	f := NewFilter(testLogger())

	assert.Empty(t, f.Check("帮我配置一个稳健型的组合"))
	assert.Empty(t, f.Check(""))
}

func TestCheckFinancialViolation(t *testing.T) {
	f := NewFilter(testLogger())

	matched := f.Check("这个策略保证收益吗")

	require.Len(t, matched, 1)
	assert.Equal(t, "保证收益", matched[0])
}

func TestCheckMultipleViolations(t *testing.T) {
	f := NewFilter(testLogger())

	violations := f.CheckDetailed("听说零风险还能稳赚不赔")

	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Equal(t, "financial_violations", v.Category)
		assert.GreaterOrEqual(t, v.Position, 0)
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		name       string
		violations []Violation
		want       string
	}{
		{"none", nil, SeverityNone},
		{"single high", []Violation{{Category: "financial_violations"}}, SeverityHigh},
		{"medium only", []Violation{{Category: "misleading_claims"}}, SeverityMedium},
		{"mixed takes highest", []Violation{
			{Category: "misleading_claims"},
			{Category: "sensitive_topics"},
		}, SeverityHigh},
		{"unknown category defaults low", []Violation{{Category: "custom"}}, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Severity(tt.violations))
		})
	}
}

func TestSanitize(t *testing.T) {
	f := NewFilter(testLogger())

	out := f.Sanitize("这个产品稳赚不赔, 而且零风险")

	assert.NotContains(t, out, "稳赚不赔")
	assert.NotContains(t, out, "零风险")
	assert.Contains(t, out, "****")
}

func TestSanitizeLongKeywordFirst(t *testing.T) {
	f := NewFilter(testLogger())
	f.merge("financial_violations", []string{"无风险"})

	// 长词 "无风险套利" 必须整体被替换, 不能被短词 "无风险" 截断
	out := f.Sanitize("所谓无风险套利都是骗局")

	assert.NotContains(t, out, "套利都是")
	assert.Contains(t, out, strings.Repeat("*", 5))
}

func TestNewFilterFromDir(t *testing.T) {
	dir := t.TempDir()
	content := "# 自定义违规词\n虚假宣传\n\n保证收益\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "financial_violations.txt"), []byte(content), 0o644))

	f, err := NewFilterFromDir(dir, testLogger())
	require.NoError(t, err)

	// 文件里的新词与内置词都生效, 重复词不会重复命中
	assert.Len(t, f.Check("这是虚假宣传"), 1)
	assert.Len(t, f.Check("保证收益"), 1)
}

func TestNewFilterFromDirMissing(t *testing.T) {
	_, err := NewFilterFromDir("/nonexistent/keyword-dir", testLogger())
	assert.Error(t, err)
}
