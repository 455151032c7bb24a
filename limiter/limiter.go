package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 整体速率限制，令牌桶
type RateLimiter interface {
	Wait(ctx context.Context) error
	Limit() rate.Limit
}

// Per 每duration时间内允许eventCount个事件
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

type MultiLimiter struct {
	limiters []RateLimiter
}

// NewMultiLimiter 多层限速器，如"每秒1个且每分钟20个"
func NewMultiLimiter(limiters ...RateLimiter) *MultiLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &MultiLimiter{limiters: limiters}
}

func (m *MultiLimiter) Wait(ctx context.Context) error {
	for _, l := range m.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiLimiter) Limit() rate.Limit {
	return m.limiters[0].Limit()
}
