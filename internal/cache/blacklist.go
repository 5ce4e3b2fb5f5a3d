// Package cache puts Redis in front of the blacklist ledger. Only positive
// answers are cached: the ledger is append-only, so "revoked" never turns
// back into "not revoked", while a negative answer could go stale.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/utils"
)

const keyPrefix = "blacklist:"

// Ledger is the durable store of revoked tokens.
type Ledger interface {
	Contains(ctx context.Context, token string) (bool, error)
	Add(ctx context.Context, userID, token string) error
}

// Blacklist is a read-through cache over a Ledger. It satisfies Ledger.
type Blacklist struct {
	ledger Ledger
	rdb    *redis.Client
	ttl    time.Duration
	log    logging.Logger
}

// NewBlacklist wraps ledger. A nil rdb disables caching. ttl bounds how long
// a revoked token is remembered in Redis; it should cover the refresh token
// lifetime since older tokens fail on expiry anyway.
func NewBlacklist(ledger Ledger, rdb *redis.Client, ttl time.Duration, log logging.Logger) *Blacklist {
	if log == nil {
		log = logging.Nop()
	}
	return &Blacklist{ledger: ledger, rdb: rdb, ttl: ttl, log: log}
}

func key(token string) string { return keyPrefix + utils.TokenDigest(token) }

// Contains checks Redis first and falls back to the ledger.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b.rdb != nil {
		n, err := b.rdb.Exists(ctx, key(token)).Result()
		switch {
		case err != nil:
			b.log.Warn(ctx, "blacklist cache read failed", "error", err)
		case n > 0:
			return true, nil
		}
	}
	ok, err := b.ledger.Contains(ctx, token)
	if err != nil {
		return false, err
	}
	if ok {
		b.remember(ctx, token)
	}
	return ok, nil
}

// Add writes to the ledger, then to Redis. The ledger write is what counts.
func (b *Blacklist) Add(ctx context.Context, userID, token string) error {
	if err := b.ledger.Add(ctx, userID, token); err != nil {
		return err
	}
	b.remember(ctx, token)
	return nil
}

func (b *Blacklist) remember(ctx context.Context, token string) {
	if b.rdb == nil {
		return
	}
	if err := b.rdb.Set(ctx, key(token), 1, b.ttl).Err(); err != nil {
		b.log.Warn(ctx, "blacklist cache write failed", "error", err)
	}
}
