package services

import (
	"context"
	"time"

	"inventar-backend/internal/cache"
	"inventar-backend/internal/models"
	"inventar-backend/internal/store"
)

type StatsService struct {
	store    store.Store
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewStatsService(st store.Store, c cache.Cache, cacheTTL time.Duration) *StatsService {
	return &StatsService{store: st, cache: c, cacheTTL: cacheTTL, now: time.Now}
}

// Get returns inventory counts, cached until the next change or the TTL
func (s *StatsService) Get(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if cache.GetJSON(ctx, s.cache, cache.StatsKey, &stats) {
		return &stats, nil
	}

	var err error
	if stats.Items, err = s.store.Items().Count(ctx); err != nil {
		return nil, err
	}
	if stats.Locations, err = s.store.Locations().Count(ctx); err != nil {
		return nil, err
	}
	if stats.ChangelogTotal, err = s.store.Changelog().Count(ctx); err != nil {
		return nil, err
	}
	if stats.ChangesLast7d, err = s.store.Changelog().CountSince(ctx, s.now().Add(-7*24*time.Hour)); err != nil {
		return nil, err
	}

	cache.SetJSON(ctx, s.cache, cache.StatsKey, stats, s.cacheTTL)
	return &stats, nil
}
