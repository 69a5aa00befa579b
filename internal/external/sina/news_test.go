package sina

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/httputil"
	"github.com/yichen/compass/backend/pkg/logger"
)

const rollPageHTML = `
<html><body>
<ul class="list_009">
  <li><a href="https://finance.sina.com.cn/a/1.shtml">央行宣布降准0.5个百分点</a><span>(08月29日 10:23)</span></li>
  <li><a href="https://finance.sina.com.cn/a/2.shtml">新能源ETF资金净流入创新高</a><span>(08月29日 09:50)</span></li>
  <li><a href="">空链接条目</a><span>(08月29日 09:00)</span></li>
  <li><a href="https://finance.sina.com.cn/a/3.shtml">债券市场周报</a><span>(12月30日 18:00)</span></li>
</ul>
</body></html>`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
	cfg := config.NewsConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		RatePerSecond:  100,
	}
	return NewClient(cfg, httputil.New(log).DisableRetry(), nil, log)
}

func TestParseRollList(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rollPageHTML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	c := newTestClient(t, "https://finance.sina.com.cn")
	items := c.parseRollList(doc, "finance")

	// 空链接条目被跳过
	if len(items) != 3 {
		t.Fatalf("parseRollList() got %d items, want 3", len(items))
	}
	if items[0].Title != "央行宣布降准0.5个百分点" {
		t.Errorf("Title = %s", items[0].Title)
	}
	if items[0].URL != "https://finance.sina.com.cn/a/1.shtml" {
		t.Errorf("URL = %s", items[0].URL)
	}
	if items[0].Source != "sina" || items[0].Category != "finance" {
		t.Errorf("Source/Category = %s/%s", items[0].Source, items[0].Category)
	}
}

func TestParseRollTime(t *testing.T) {
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "same year",
			raw:  "(08月29日 10:23)",
			want: time.Date(2026, time.August, 29, 10, 23, 0, 0, time.UTC),
		},
		{
			name: "future month rolls to previous year",
			raw:  "(12月30日 18:00)",
			want: time.Date(2025, time.December, 30, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "garbage falls back to now",
			raw:  "昨天",
			want: now,
		},
		{
			name: "out of range month falls back to now",
			raw:  "(13月01日 00:00)",
			want: now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRollTime(tt.raw, now); !got.Equal(tt.want) {
				t.Errorf("parseRollTime(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFetchNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/roll/index.d.html" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("cid") != "56588" {
			t.Errorf("cid = %s, want 56588", r.URL.Query().Get("cid"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(rollPageHTML))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	items, err := c.FetchNews(context.Background(), "finance", 2)
	if err != nil {
		t.Fatalf("FetchNews() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("FetchNews() got %d items, want 2 (limit)", len(items))
	}
}

func TestFetchNewsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	if _, err := c.FetchNews(context.Background(), "finance", 5); err == nil {
		t.Fatal("FetchNews() expected error on 503")
	}
}

func TestSearchNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(rollPageHTML))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	items, err := c.SearchNews(context.Background(), "新能源", 10)
	if err != nil {
		t.Fatalf("SearchNews() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("SearchNews() got %d items, want 1", len(items))
	}
	if !strings.Contains(items[0].Title, "新能源") {
		t.Errorf("Title = %s", items[0].Title)
	}
}

func TestDedupeByTitle(t *testing.T) {
	items := []NewsItem{
		{Title: "a"},
		{Title: "b"},
		{Title: "a"},
	}
	unique := dedupeByTitle(items)
	if len(unique) != 2 {
		t.Errorf("dedupeByTitle() got %d, want 2", len(unique))
	}
}
