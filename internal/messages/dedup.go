package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JaRodriguez97/back-adviser/pkg/logging"
)

// fingerprintChecker is the durable side of duplicate detection.
type fingerprintChecker interface {
	Exists(ctx context.Context, tenantID uuid.UUID, fingerprint string) (bool, error)
}

// Deduplicator answers "was this message already handled" for at-least-once
// delivery from the upstream channel. Redis is a fast path only; the unique
// (tenant, fingerprint) index behind the checker remains the source of truth,
// so cache evictions or Redis outages degrade to a database lookup instead
// of letting duplicates through.
type Deduplicator struct {
	redis  *redis.Client
	store  fingerprintChecker
	ttl    time.Duration
	logger *logging.Logger
}

// NewDeduplicator wires the Redis fast path over the durable checker. The
// redis client may be nil, in which case every check hits the store.
func NewDeduplicator(rdb *redis.Client, store fingerprintChecker, ttl time.Duration, logger *logging.Logger) *Deduplicator {
	if store == nil {
		panic("messages: fingerprint checker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduplicator{redis: rdb, store: store, ttl: ttl, logger: logger}
}

// Seen reports whether the fingerprint was already processed for this tenant.
func (d *Deduplicator) Seen(ctx context.Context, tenantID uuid.UUID, fingerprint string) (bool, error) {
	if d.redis != nil {
		cached, err := d.redis.Exists(ctx, dedupKey(tenantID, fingerprint)).Result()
		if err == nil && cached > 0 {
			return true, nil
		}
		if err != nil {
			d.logger.Warn("dedup cache read failed, falling back to store", "error", err)
		}
	}
	return d.store.Exists(ctx, tenantID, fingerprint)
}

// Mark records the fingerprint in the fast path after a turn is persisted.
// Failures are logged and swallowed; the durable index already holds the row.
func (d *Deduplicator) Mark(ctx context.Context, tenantID uuid.UUID, fingerprint string) {
	if d.redis == nil {
		return
	}
	if err := d.redis.Set(ctx, dedupKey(tenantID, fingerprint), 1, d.ttl).Err(); err != nil {
		d.logger.Warn("dedup cache write failed", "error", err)
	}
}

func dedupKey(tenantID uuid.UUID, fingerprint string) string {
	return fmt.Sprintf("dedup:%s:%s", tenantID, fingerprint)
}
