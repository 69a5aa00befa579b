package jobs

import (
	"context"
	"fmt"

	"github.com/yichen/compass/backend/internal/external/sina"
	"github.com/yichen/compass/backend/pkg/logger"
)

// NewsFetcher pulls news into the shared cache
type NewsFetcher interface {
	FetchNews(ctx context.Context, category string, limit int) ([]sina.NewsItem, error)
}

// NewsRefreshJob keeps the market news cache fresh during trading hours
type NewsRefreshJob struct {
	fetcher    NewsFetcher
	logger     *logger.Logger
	categories []string
}

// NewNewsRefreshJob creates a new news refresh job
func NewNewsRefreshJob(fetcher NewsFetcher, log *logger.Logger) *NewsRefreshJob {
	return &NewsRefreshJob{
		fetcher:    fetcher,
		logger:     log,
		categories: []string{"finance", "fund"},
	}
}

// Name returns the job name
func (j *NewsRefreshJob) Name() string {
	return "news_refresh"
}

// Schedule returns the cron schedule (every 30 minutes, 9 AM - 4 PM weekdays)
func (j *NewsRefreshJob) Schedule() string {
	return "0 */30 9-16 * * 1-5"
}

// Run refreshes each category through the caching fetch path
func (j *NewsRefreshJob) Run(ctx context.Context) error {
	for _, category := range j.categories {
		items, err := j.fetcher.FetchNews(ctx, category, 20)
		if err != nil {
			return fmt.Errorf("refresh %s news: %w", category, err)
		}
		j.logger.WithFields(map[string]interface{}{
			"category": category,
			"count":    len(items),
		}).Debug("News cache refreshed")
	}
	return nil
}
