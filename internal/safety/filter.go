package safety

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yichen/compass/backend/pkg/logger"
)

// Violation is one keyword hit in scanned text
type Violation struct {
	Category string `json:"category"`
	Keyword  string `json:"keyword"`
	Position int    `json:"position"` // 字节偏移
}

// Severity levels, ordered
const (
	SeverityNone   = "none"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// defaultCategories are the built-in compliance keyword sets.
// 金融违规词是硬红线, 其余类别按敏感度分级
var defaultCategories = map[string][]string{
	"financial_violations": {
		"保证收益", "稳赚不赔", "零风险", "保本保息", "无风险套利",
		"必涨", "内幕消息", "包赚", "承诺回报",
	},
	"misleading_claims": {
		"历史最高收益", "绝对安全", "百分百", "稳定翻倍",
	},
	"sensitive_topics": {
		"代客操盘", "场外配资", "非法集资",
	},
}

// categorySeverity ranks each category
var categorySeverity = map[string]string{
	"financial_violations": SeverityHigh,
	"misleading_claims":    SeverityMedium,
	"sensitive_topics":     SeverityHigh,
}

// Filter screens text against category keyword sets
// ⭐ SSOT: 合规词表只在这里维护
type Filter struct {
	categories map[string][]string
	logger     *logger.Logger
}

// NewFilter creates a filter with the built-in keyword sets
func NewFilter(log *logger.Logger) *Filter {
	categories := make(map[string][]string, len(defaultCategories))
	for category, keywords := range defaultCategories {
		categories[category] = append([]string(nil), keywords...)
	}
	return &Filter{
		categories: categories,
		logger:     log,
	}
}

// NewFilterFromDir creates a filter merging keyword files over the defaults.
// 目录下每个 <category>.txt 一行一个词, 与内置词表合并去重
func NewFilterFromDir(dir string, log *logger.Logger) (*Filter, error) {
	f := NewFilter(log)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read keyword dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		category := strings.TrimSuffix(entry.Name(), ".txt")
		keywords, err := readKeywordFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		f.merge(category, keywords)
	}

	f.logger.WithField("categories", len(f.categories)).Info("Compliance keyword sets loaded")
	return f, nil
}

func readKeywordFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyword file: %w", err)
	}
	defer file.Close()

	var keywords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan keyword file %s: %w", path, err)
	}
	return keywords, nil
}

func (f *Filter) merge(category string, keywords []string) {
	seen := make(map[string]bool, len(f.categories[category]))
	for _, k := range f.categories[category] {
		seen[k] = true
	}
	for _, k := range keywords {
		if !seen[k] {
			f.categories[category] = append(f.categories[category], k)
			seen[k] = true
		}
	}
}

// Check returns the matched keywords in category order.
// 会话层据此拒收消息
func (f *Filter) Check(text string) []string {
	var matched []string
	for _, v := range f.CheckDetailed(text) {
		matched = append(matched, v.Keyword)
	}
	return matched
}

// CheckDetailed returns every keyword hit with its category and position
func (f *Filter) CheckDetailed(text string) []Violation {
	if text == "" {
		return nil
	}

	var violations []Violation
	for _, category := range f.sortedCategories() {
		for _, keyword := range f.categories[category] {
			if pos := strings.Index(text, keyword); pos >= 0 {
				violations = append(violations, Violation{
					Category: category,
					Keyword:  keyword,
					Position: pos,
				})
			}
		}
	}
	return violations
}

// Severity reports the highest severity across violations
func Severity(violations []Violation) string {
	result := SeverityNone
	rank := map[string]int{SeverityNone: 0, SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3}
	for _, v := range violations {
		s, ok := categorySeverity[v.Category]
		if !ok {
			s = SeverityLow
		}
		if rank[s] > rank[result] {
			result = s
		}
	}
	return result
}

// Sanitize replaces every keyword occurrence with asterisks.
// 按词长降序替换, 避免短词先替换拆散长词
func (f *Filter) Sanitize(text string) string {
	if text == "" {
		return text
	}

	var all []string
	for _, keywords := range f.categories {
		all = append(all, keywords...)
	}
	sort.Slice(all, func(i, j int) bool { return len(all[i]) > len(all[j]) })

	for _, keyword := range all {
		if strings.Contains(text, keyword) {
			text = strings.ReplaceAll(text, keyword, strings.Repeat("*", len([]rune(keyword))))
		}
	}
	return text
}

// sortedCategories gives deterministic iteration order
func (f *Filter) sortedCategories() []string {
	out := make([]string, 0, len(f.categories))
	for category := range f.categories {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}
