package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// OverrideCacheTTL bounds how long an override lookup outcome (hit or miss)
// is reused before the store is consulted again.
const OverrideCacheTTL = 60 * time.Second

// cachedOverride wraps a lookup outcome so that "no override" is cacheable
// alongside a real record.
type cachedOverride struct {
	record *OverrideRecord
}

// OverrideResolver answers "is there an operator override for this raw key"
// with a bounded-lifetime cache in front of the store. Negative answers are
// cached too, so an absent override costs one store query per TTL window.
type OverrideResolver struct {
	store  OverrideStore
	cache  *expirable.LRU[string, cachedOverride]
	logger *zap.Logger
}

func NewOverrideResolver(store OverrideStore, logger *zap.Logger) *OverrideResolver {
	return &OverrideResolver{
		store:  store,
		cache:  expirable.NewLRU[string, cachedOverride](0, nil, OverrideCacheTTL),
		logger: logger,
	}
}

// Resolve returns the most recent override for rawKey, or nil when none
// applies. A blank key returns nil without touching the store. Store failures
// propagate: an override must never be silently skipped because the store
// was unreachable.
func (r *OverrideResolver) Resolve(ctx context.Context, rawKey string) (*OverrideRecord, error) {
	if strings.TrimSpace(rawKey) == "" {
		return nil, nil
	}

	if entry, ok := r.cache.Get(rawKey); ok {
		return entry.record, nil
	}

	record, err := r.store.FindOverride(ctx, rawKey)
	if err != nil {
		return nil, fmt.Errorf("find override: %w", err)
	}

	r.cache.Add(rawKey, cachedOverride{record: record})

	if record != nil {
		r.logger.Debug("Override resolved",
			zap.String("raw", rawKey),
			zap.Int64("override_id", record.ID))
	}

	return record, nil
}
