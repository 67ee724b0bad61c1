package ports

import (
    "context"
    "errors"
    "time"

    "maturity/internal/domain"
)

// Catalog resolves pillars loaded at startup.
type Catalog interface {
    Pillars() []domain.Pillar
    Pillar(id string) (domain.FullPillar, bool)
    ByCode(code string) (domain.FullPillar, bool)
}

// ErrCacheMiss is returned by KVStore.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the snapshot cache used by the overview service.
type KVStore interface {
    Get(ctx context.Context, key string) (string, error)
    Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
