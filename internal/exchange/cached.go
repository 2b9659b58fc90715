package exchange

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fincycle/internal/cache"
	applog "fincycle/internal/log"
)

// CachedProvider memoizes rates for a TTL and collapses concurrent lookups of
// the same pair into one upstream call. Failed lookups are never cached.
type CachedProvider struct {
	next  RateProvider
	cache *cache.LRUCache[decimal.Decimal]
	group singleflight.Group
}

const maxCachedPairs = 256

func NewCachedProvider(next RateProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache.NewLRUCache[decimal.Decimal](maxCachedPairs, ttl),
	}
}

// Cache exposes the underlying cache so it can be registered with a janitor.
func (p *CachedProvider) Cache() *cache.LRUCache[decimal.Decimal] {
	return p.cache
}

func (p *CachedProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := strings.ToUpper(from) + ":" + strings.ToUpper(to)
	if rate, ok := p.cache.Get(key); ok {
		return rate, nil
	}

	v, err, shared := p.group.Do(key, func() (any, error) {
		rate, err := p.next.Rate(ctx, from, to)
		if err != nil {
			return decimal.Zero, err
		}
		p.cache.Set(key, rate)
		return rate, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	if shared {
		slog.DebugContext(ctx, "Exchange rate lookup shared", applog.FieldComponent, applog.ComponentExchange, "pair", key)
	}
	return v.(decimal.Decimal), nil
}
