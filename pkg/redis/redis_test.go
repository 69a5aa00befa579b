package redis

import (
	"context"
	"testing"

	"github.com/yichen/compass/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}

	// Ping on a disabled client reports healthy
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	// Close on a disabled client should be a no-op
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	limiter := NewRateLimiter(client, "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), NewsRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != NewsRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", NewsRateLimit.Limit, remaining)
	}
}

func TestRateLimiterWait_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	limiter := NewRateLimiter(client, "test")

	// Wait must return immediately when Redis is disabled
	if err := limiter.Wait(context.Background(), NewsRateLimit); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(context.Background(), "key", "value", TTLShort); err != nil {
		t.Errorf("Set() error = %v", err)
	}
}

func TestCacheGetOrSet_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// With Redis disabled, GetOrSet should fall through to fn every time
	calls := 0
	var result []string
	err := cache.GetOrSet(context.Background(), "codes", &result, TTLMedium, func() (interface{}, error) {
		calls++
		return []string{"510300", "511010"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrSet() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected fn to be called once, got %d", calls)
	}
	if len(result) != 2 || result[0] != "510300" {
		t.Errorf("Expected fn result in dest, got %v", result)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "InstrumentListKey",
			fn:       func() string { return InstrumentListKey("股票", "科技", 20) },
			expected: "etf:list:股票:科技:20",
		},
		{
			name:     "InstrumentListKey defaults",
			fn:       func() string { return InstrumentListKey("", "", 20) },
			expected: "etf:list:all:all:20",
		},
		{
			name:     "InstrumentKey",
			fn:       func() string { return InstrumentKey("510300") },
			expected: "etf:info:510300",
		},
		{
			name:     "PriceSeriesKey",
			fn:       func() string { return PriceSeriesKey("510300", "2025-01-01", "2025-12-31") },
			expected: "etf:prices:510300:2025-01-01:2025-12-31",
		},
		{
			name:     "NewsKey",
			fn:       func() string { return NewsKey("finance", 10) },
			expected: "news:finance:10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
