package sina

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yichen/compass/backend/pkg/redis"
)

// 滚动新闻栏目 ID, 来自新浪财经滚动页
var categoryColumns = map[string]string{
	"finance": "56588",
	"stock":   "56589",
	"fund":    "56601",
}

// sectorKeywords maps a sector to its search keywords
var sectorKeywords = map[string][]string{
	"科技":  {"科技", "人工智能", "芯片", "5G", "互联网"},
	"医药":  {"医药", "生物", "疫苗", "医疗", "健康"},
	"新能源": {"新能源", "电池", "光伏", "风电", "储能"},
	"消费":  {"消费", "零售", "品牌", "食品", "饮料"},
	"金融":  {"银行", "保险", "证券", "金融科技", "支付"},
	"地产":  {"房地产", "建筑", "基建", "城市化", "土地"},
}

// FetchNews fetches the latest market news for a category
// ⭐ SSOT: 新浪滚动新闻抓取只在这个函数
func (c *Client) FetchNews(ctx context.Context, category string, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		limit = 20
	}

	if c.cache != nil {
		var items []NewsItem
		err := c.cache.GetOrSet(ctx, redis.NewsKey(category, limit), &items, redis.TTLShort, func() (interface{}, error) {
			return c.fetchNews(ctx, category, limit)
		})
		if err != nil {
			return nil, err
		}
		return items, nil
	}

	return c.fetchNews(ctx, category, limit)
}

func (c *Client) fetchNews(ctx context.Context, category string, limit int) ([]NewsItem, error) {
	column, ok := categoryColumns[category]
	if !ok {
		column = categoryColumns["finance"]
	}

	params := url.Values{}
	params.Set("cid", column)
	params.Set("page", "1")

	doc, err := c.fetchDocument(ctx, "/roll/index.d.html", params)
	if err != nil {
		return nil, fmt.Errorf("fetch news page: %w", err)
	}

	items := c.parseRollList(doc, category)
	if len(items) > limit {
		items = items[:limit]
	}

	c.logger.WithFields(map[string]interface{}{
		"category": category,
		"count":    len(items),
	}).Debug("Fetched market news")
	return items, nil
}

// SearchNews returns recent news whose titles contain the keyword
func (c *Client) SearchNews(ctx context.Context, keyword string, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		limit = 10
	}

	// 滚动页没有搜索端点, 拉全量后按标题过滤
	all, err := c.FetchNews(ctx, "finance", 50)
	if err != nil {
		return nil, err
	}

	var matched []NewsItem
	for _, item := range all {
		if strings.Contains(item.Title, keyword) || strings.Contains(item.Summary, keyword) {
			matched = append(matched, item)
			if len(matched) >= limit {
				break
			}
		}
	}
	return matched, nil
}

// SectorNews returns news for a named sector using its keyword set
func (c *Client) SectorNews(ctx context.Context, sector string, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		limit = 10
	}

	keywords, ok := sectorKeywords[sector]
	if !ok {
		keywords = []string{sector}
	}

	var collected []NewsItem
	for _, keyword := range keywords {
		items, err := c.SearchNews(ctx, keyword, limit/len(keywords)+1)
		if err != nil {
			// 单个关键词失败不影响其余关键词
			c.logger.WithError(err).WithField("keyword", keyword).Warn("Sector keyword search failed")
			continue
		}
		collected = append(collected, items...)
	}

	unique := dedupeByTitle(collected)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].PublishTime.After(unique[j].PublishTime)
	})
	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique, nil
}

// parseRollList extracts news entries from the roll page list
func (c *Client) parseRollList(doc *goquery.Document, category string) []NewsItem {
	now := time.Now()

	var items []NewsItem
	doc.Find("ul.list_009 li").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}

		publishTime := parseRollTime(strings.TrimSpace(sel.Find("span").First().Text()), now)

		items = append(items, NewsItem{
			Title:       title,
			URL:         href,
			PublishTime: publishTime,
			Source:      "sina",
			Category:    category,
		})
	})
	return items
}

// parseRollTime parses the "(08月29日 10:23)" stamp next to each entry.
// 页面不带年份, 月份大于当前月说明是去年
func parseRollTime(raw string, now time.Time) time.Time {
	raw = strings.Trim(raw, "()")
	var month, day, hour, minute int
	if _, err := fmt.Sscanf(raw, "%d月%d日 %d:%d", &month, &day, &hour, &minute); err != nil {
		return now
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return now
	}

	year := now.Year()
	if month > int(now.Month()) {
		year--
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, now.Location())
}

func dedupeByTitle(items []NewsItem) []NewsItem {
	seen := make(map[string]bool, len(items))
	var unique []NewsItem
	for _, item := range items {
		if !seen[item.Title] {
			seen[item.Title] = true
			unique = append(unique, item)
		}
	}
	return unique
}
