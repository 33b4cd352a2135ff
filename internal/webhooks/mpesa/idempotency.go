package mpesawebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikrcommerce/ikr-backend/pkg/redis"
)

// IdempotencyGuard fences duplicate callback deliveries before they reach
// the reconciliation workflow. Daraja retries aggressively, so the guard
// answers repeats without touching the database.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark claims the correlation id. It returns true when another
// delivery already claimed it.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, checkoutRequestID string) (bool, error) {
	if checkoutRequestID == "" {
		return false, errors.New("checkout request id is required")
	}
	key := g.store.IdempotencyKey(g.scope, checkoutRequestID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release frees the claim so a failed delivery can be retried.
func (g *IdempotencyGuard) Release(ctx context.Context, checkoutRequestID string) error {
	if checkoutRequestID == "" {
		return errors.New("checkout request id is required")
	}
	key := g.store.IdempotencyKey(g.scope, checkoutRequestID)
	return g.store.Del(ctx, key)
}
