package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"intentd/internal/domain"

	"golang.org/x/sync/singleflight"
)

// TokenCache deduplicates concurrent issuance for an identical
// (plan hash, validity) pair. Callers racing on the same key block on
// one in-flight issuance and share its outcome; distinct keys proceed
// in parallel. Failed issuance is propagated to every waiter and the
// cache entry is never populated from a failure.
type TokenCache struct {
	Store  TokenCacheStore
	Issuer TokenIssuer
	Crypto CryptoService
	Now    func() time.Time

	group singleflight.Group
}

func (c *TokenCache) GetOrIssue(ctx context.Context, req IssueTokenRequest) (*domain.IntentToken, bool, error) {
	planHash, err := c.Crypto.PlanHash(req.Plan)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrCacheIssuance, err)
	}
	key := cacheKey(planHash, req.Validity)

	if token, ok := c.freshHit(ctx, key); ok {
		return token, true, nil
	}

	value, err, shared := c.group.Do(key, func() (any, error) {
		// a waiter that lost the race may find the winner's token
		if token, ok := c.freshHit(ctx, key); ok {
			return token, nil
		}
		token, err := c.Issuer.Issue(ctx, req)
		if err != nil {
			return nil, err
		}
		if c.Store != nil {
			ttl := time.Until(token.ExpiresAt)
			if c.Now != nil {
				ttl = token.ExpiresAt.Sub(c.Now())
			}
			if err := c.Store.Put(ctx, key, *token, ttl); err != nil {
				return nil, err
			}
		}
		return token, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrCacheIssuance, err)
	}
	return value.(*domain.IntentToken), shared, nil
}

// freshHit returns a cached token only while it is still valid. A
// stale entry falls through to re-issuance, never out to the caller.
func (c *TokenCache) freshHit(ctx context.Context, key string) (*domain.IntentToken, bool) {
	if c.Store == nil {
		return nil, false
	}
	token, ok, err := c.Store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	if now.After(token.ExpiresAt) {
		return nil, false
	}
	return token, true
}

func cacheKey(planHash string, validity time.Duration) string {
	return planHash + ":" + strconv.FormatInt(int64(validity/time.Second), 10)
}
