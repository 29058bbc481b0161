package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/micahela/debug-the-graduate/internal/bank"
	"github.com/micahela/debug-the-graduate/internal/domain"
)

// BankCache caches validated question banks in Redis (one JSON value per
// bank) and falls back to a loader on miss, so several service instances
// share one warm copy.
type BankCache struct {
	client *redis.Client
	loader bank.Loader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewBankCache(client *redis.Client, loader bank.Loader, ttl time.Duration) *BankCache {
	return &BankCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func bankKey(bankID string) string { return "dtg:bank:" + bankID }

func (c *BankCache) GetBank(ctx context.Context, bankID string) (domain.Bank, error) {
	if b, ok, err := c.cached(ctx, bankID); err == nil && ok {
		return b, nil
	}

	result, err, _ := c.sf.Do(bankID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if b, ok, err := c.cached(ctx, bankID); err == nil && ok {
			return b, nil
		}

		b, err := c.loader.LoadBank(ctx, bankID)
		if err != nil {
			return domain.Bank{}, err
		}
		if err := bank.Validate(b); err != nil {
			return domain.Bank{}, err
		}

		raw, err := json.Marshal(b)
		if err != nil {
			return domain.Bank{}, fmt.Errorf("marshal bank: %w", err)
		}
		_ = c.client.Set(ctx, bankKey(bankID), raw, c.ttlWithJitter()).Err()
		return b, nil
	})
	if err != nil {
		return domain.Bank{}, err
	}
	return result.(domain.Bank), nil
}

func (c *BankCache) cached(ctx context.Context, bankID string) (domain.Bank, bool, error) {
	raw, err := c.client.Get(ctx, bankKey(bankID)).Bytes()
	if err == redis.Nil {
		return domain.Bank{}, false, nil
	}
	if err != nil {
		return domain.Bank{}, false, err
	}
	var b domain.Bank
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.Bank{}, false, err
	}
	return b, true, nil
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// The global source is locked, so concurrent loads for different banks
	// stay race-free.
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
