package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// AnalyticsEngine computes the aggregate views.
type AnalyticsEngine interface {
	CategoryBreakdown(ctx context.Context, userID string, w core.Window) ([]analytics.CategoryBreakdown, error)
	SpendingTrends(ctx context.Context, userID string, w core.Window) ([]analytics.TrendPoint, error)
	TopCategories(ctx context.Context, userID string, w core.Window, limit int) ([]analytics.TopCategory, error)
	MonthlyComparison(ctx context.Context, userID string) (analytics.MonthlyComparison, error)
	Dashboard(ctx context.Context, userID string, w core.Window) (analytics.Dashboard, error)
}

// CacheStats is reported on /metrics.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// AnalyticsService serves analytics views through a per-user cache.
// Entries are keyed by day as well, so windows roll over at midnight.
type AnalyticsService struct {
	engine AnalyticsEngine
	cache  cache.Cache[any]
	now    func() time.Time
	logger *log.Logger

	hits   atomic.Int64
	misses atomic.Int64

	// mu orders cache writes against invalidations. generations counts
	// invalidations per user so a load that raced one is not stored.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewAnalyticsService wraps engine. A nil cache disables caching.
func NewAnalyticsService(engine AnalyticsEngine, c cache.Cache[any], logger *log.Logger) *AnalyticsService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AnalyticsService{
		engine: engine,
		cache:  c,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentAnalytics),

		generations: make(map[string]uint64),
	}
}

func (s *AnalyticsService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

func userPrefix(userID string) string {
	return fmt.Sprintf("%q|", userID)
}

func (s *AnalyticsService) key(userID, view string, period core.Period, limit int) string {
	return fmt.Sprintf("%s%s|%s|%s|%d", userPrefix(userID), core.NewDate(s.now()).String(), view, period, limit)
}

// cached returns the cached value for key or computes and stores it.
// Failures are never cached, nor are results whose user was invalidated
// while they were loading.
func cached[T any](s *AnalyticsService, userID, key string, load func() (T, error)) (T, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if typed, ok := v.(T); ok {
				s.hits.Add(1)
				return typed, nil
			}
		}
	}
	s.misses.Add(1)

	gen := s.generation(userID)
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	if s.cache != nil {
		s.mu.Lock()
		if s.generations[userID] == gen {
			s.cache.Set(key, v)
		}
		s.mu.Unlock()
	}
	return v, nil
}

func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID string, w core.Window) ([]analytics.CategoryBreakdown, error) {
	return cached(s, userID, s.key(userID, "category_breakdown", w.Period, 0), func() ([]analytics.CategoryBreakdown, error) {
		return s.engine.CategoryBreakdown(ctx, userID, w)
	})
}

func (s *AnalyticsService) SpendingTrends(ctx context.Context, userID string, w core.Window) ([]analytics.TrendPoint, error) {
	return cached(s, userID, s.key(userID, "trends", w.Period, 0), func() ([]analytics.TrendPoint, error) {
		return s.engine.SpendingTrends(ctx, userID, w)
	})
}

func (s *AnalyticsService) TopCategories(ctx context.Context, userID string, w core.Window, limit int) ([]analytics.TopCategory, error) {
	return cached(s, userID, s.key(userID, "top_categories", w.Period, limit), func() ([]analytics.TopCategory, error) {
		return s.engine.TopCategories(ctx, userID, w, limit)
	})
}

func (s *AnalyticsService) MonthlyComparison(ctx context.Context, userID string) (analytics.MonthlyComparison, error) {
	return cached(s, userID, s.key(userID, "monthly_comparison", "", 0), func() (analytics.MonthlyComparison, error) {
		return s.engine.MonthlyComparison(ctx, userID)
	})
}

func (s *AnalyticsService) Dashboard(ctx context.Context, userID string, w core.Window) (analytics.Dashboard, error) {
	return cached(s, userID, s.key(userID, "dashboard", w.Period, 0), func() (analytics.Dashboard, error) {
		return s.engine.Dashboard(ctx, userID, w)
	})
}

// InvalidateUser drops every cached view of userID.
func (s *AnalyticsService) InvalidateUser(ctx context.Context, userID string) int {
	if s.cache == nil {
		return 0
	}
	s.mu.Lock()
	s.generations[userID]++
	n := s.cache.DeletePrefix(userPrefix(userID))
	s.mu.Unlock()
	if n > 0 {
		s.logger.DebugContext(ctx, "Analytics cache invalidated", log.FieldUserID, userID, "entries", n)
	}
	return n
}

func (s *AnalyticsService) Stats() CacheStats {
	stats := CacheStats{Hits: s.hits.Load(), Misses: s.misses.Load()}
	if s.cache != nil {
		stats.Entries = s.cache.Size()
	}
	return stats
}
