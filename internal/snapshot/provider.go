// Package snapshot assembles the policy state one evaluation runs
// against: global settings plus the closed-date list, read at a single
// point in time.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gearbook/internal/events"
	"gearbook/internal/metrics"
	"gearbook/internal/models"
)

// Store is the subset of the database the provider reads.
type Store interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	ListClosedDates(ctx context.Context) ([]models.ClosedDate, error)
}

// Snapshot is one consistent view of the admin-editable policy state.
type Snapshot struct {
	Settings    models.Settings     `json:"settings"`
	ClosedDates []models.ClosedDate `json:"closed_dates"`
	FetchedAt   time.Time           `json:"fetched_at"`
}

const cacheKey = "gearbook:snapshot:policy"

// Provider fetches snapshots, optionally keeping a short-lived copy in
// Redis so bursts of evaluations share one database read.
type Provider struct {
	store  Store
	logger *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

func NewProvider(store Store, logger *zerolog.Logger) *Provider {
	return &Provider{store: store, logger: logger}
}

// UseRedisCache configures optional Redis caching of snapshots.
func (p *Provider) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	p.redis = redisClient
	p.cacheTTL = ttl
}

// Current returns the latest snapshot, from cache when fresh.
func (p *Provider) Current(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if p.readCache(ctx, &snap) {
		metrics.IncSnapshotCache("hit")
		return &snap, nil
	}
	metrics.IncSnapshotCache("miss")

	settings, err := p.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}
	closedDates, err := p.store.ListClosedDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch closed dates: %w", err)
	}

	snap = Snapshot{Settings: settings, ClosedDates: closedDates, FetchedAt: time.Now()}
	p.writeCache(ctx, snap)
	return &snap, nil
}

// Invalidate drops the cached snapshot so the next read hits the store.
func (p *Provider) Invalidate(ctx context.Context) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Del(ctx, cacheKey).Err(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to invalidate snapshot cache")
	}
}

// BindInvalidation drops the cache whenever admins change policy state.
func (p *Provider) BindInvalidation(bus *events.Bus) {
	invalidate := func(events.Event) error {
		p.Invalidate(context.Background())
		return nil
	}
	bus.Subscribe(events.TopicSettingsUpdated, invalidate)
	bus.Subscribe(events.TopicClosedDatesChanged, invalidate)
}

func (p *Provider) readCache(ctx context.Context, out *Snapshot) bool {
	if p.redis == nil || p.cacheTTL <= 0 {
		return false
	}
	val, err := p.redis.Get(ctx, cacheKey).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (p *Provider) writeCache(ctx context.Context, val Snapshot) {
	if p.redis == nil || p.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = p.redis.Set(ctx, cacheKey, data, p.cacheTTL).Err()
}
