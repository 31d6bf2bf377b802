package service

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/cache"
	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
	rediscommon "github.com/playforge/remoteconfig/common/redis"
	"github.com/playforge/remoteconfig/common/targeting"
	"github.com/playforge/remoteconfig/common/telemetry"
)

// SnapshotConfig is one config's resolvable state inside the snapshot
type SnapshotConfig struct {
	ID       uuid.UUID
	KeyName  string
	IsActive bool
	// Published value, or the config's default before the first publish
	Value models.Value
}

// ResolutionSnapshot is an immutable, point-in-time view served to the
// resolve hot path. Campaigns are pre-filtered to runnable ones and
// pre-sorted by priority (ties broken by id for determinism).
type ResolutionSnapshot struct {
	BuiltAt   time.Time
	Configs   map[string]SnapshotConfig
	Campaigns []*models.Campaign
	Model     *targeting.ContextModel
}

// SnapshotService maintains the in-memory resolution snapshot. Reads are a
// single atomic pointer load; rebuilds happen on every mutation, on redis
// invalidation messages from other instances, and on a periodic safety tick.
type SnapshotService struct {
	store   Store
	redis   *rediscommon.Client
	cache   cache.Cache
	tel     *telemetry.Telemetry
	log     *logger.Logger
	channel string

	current atomic.Pointer[ResolutionSnapshot]
}

// NewSnapshotService creates a snapshot service. redis and cache may be nil
// in single-instance setups.
func NewSnapshotService(store Store, redis *rediscommon.Client, c cache.Cache, tel *telemetry.Telemetry, channel string, log *logger.Logger) *SnapshotService {
	return &SnapshotService{
		store:   store,
		redis:   redis,
		cache:   c,
		tel:     tel,
		log:     log,
		channel: channel,
	}
}

// Current returns the latest snapshot, or nil before the first refresh
func (s *SnapshotService) Current() *ResolutionSnapshot {
	return s.current.Load()
}

// Refresh rebuilds the snapshot from storage and swaps it in atomically
func (s *SnapshotService) Refresh(ctx context.Context) error {
	start := time.Now()

	configs, err := s.store.Configs().ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active configs: %w", err)
	}

	snapConfigs := make(map[string]SnapshotConfig, len(configs))
	for _, cfg := range configs {
		published, err := s.store.Versions().ByStatus(ctx, cfg.ID, models.StatusPublished)
		if err != nil {
			return fmt.Errorf("load published version for %s: %w", cfg.KeyName, err)
		}
		value := cfg.DefaultValue
		if published != nil {
			value = published.Value
		}
		snapConfigs[cfg.KeyName] = SnapshotConfig{
			ID:       cfg.ID,
			KeyName:  cfg.KeyName,
			IsActive: cfg.IsActive,
			Value:    value,
		}
	}

	campaigns, err := s.store.Campaigns().ListRunnable(ctx)
	if err != nil {
		return fmt.Errorf("list runnable campaigns: %w", err)
	}
	sort.SliceStable(campaigns, func(i, j int) bool {
		if campaigns[i].Priority != campaigns[j].Priority {
			return campaigns[i].Priority < campaigns[j].Priority
		}
		return campaigns[i].ID.String() < campaigns[j].ID.String()
	})

	fields, err := s.store.ContextFields().List(ctx)
	if err != nil {
		return fmt.Errorf("list context fields: %w", err)
	}
	defs := make([]models.ContextFieldDefinition, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, *f)
	}

	snapshot := &ResolutionSnapshot{
		BuiltAt:   time.Now().UTC(),
		Configs:   snapConfigs,
		Campaigns: campaigns,
		Model:     targeting.NewContextModel(defs),
	}
	s.current.Store(snapshot)

	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			s.log.Warn("resolve cache flush failed", "error", err)
		}
	}

	s.tel.RecordSnapshotLoad()
	s.log.Debug("resolution snapshot refreshed",
		"configs", len(snapConfigs),
		"campaigns", len(campaigns),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// NotifyChanged refreshes the local snapshot and broadcasts an invalidation
// message so other instances refresh too
func (s *SnapshotService) NotifyChanged(ctx context.Context, reason string) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Error("snapshot refresh failed", "reason", reason, "error", err)
	}
	if s.redis != nil {
		if err := s.redis.Publish(ctx, s.channel, reason); err != nil {
			s.log.Warn("snapshot invalidation broadcast failed", "error", err)
		}
	}
}

// StartListener subscribes to the invalidation channel and refreshes on
// every message. It also runs the periodic safety refresh. Blocks until the
// context is cancelled.
func (s *SnapshotService) StartListener(ctx context.Context, refreshInterval time.Duration) {
	if refreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := s.Refresh(ctx); err != nil {
						s.log.Warn("periodic snapshot refresh failed", "error", err)
					}
				}
			}
		}()
	}

	if s.redis == nil {
		<-ctx.Done()
		return
	}

	err := s.redis.Subscribe(ctx, s.channel, func(payload string) {
		s.log.Debug("snapshot invalidation received", "reason", payload)
		if err := s.Refresh(ctx); err != nil {
			s.log.Warn("snapshot refresh after invalidation failed", "error", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		s.log.Error("snapshot invalidation listener stopped", "error", err)
	}
}
