package sina

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/httputil"
	"github.com/yichen/compass/backend/pkg/logger"
	"github.com/yichen/compass/backend/pkg/redis"
)

// NewsItem is one market news entry
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	PublishTime time.Time `json:"publish_time"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
}

// Client handles communication with Sina Finance
// ⭐ SSOT: 新浪财经抓取只走这个客户端
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	limiter    *rate.Limiter
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Sina Finance client.
// cache 可以为 nil, 此时每次都直连源站
func NewClient(cfg config.NewsConfig, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Client{
		httpClient: httpClient,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:     log,
		baseURL:    cfg.BaseURL,
	}
}

// fetchDocument fetches a page and parses it into a goquery document
func (c *Client) fetchDocument(ctx context.Context, path string, params url.Values) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}
	return doc, nil
}
