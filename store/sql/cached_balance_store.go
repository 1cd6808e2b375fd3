package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-treasury/core"
)

const balanceCacheKeyPrefix = "go-treasury::balance::v1"

// CachedBalanceStore serves balance reads through a cache and invalidates
// on every applied delta. Dashboards poll balances far more often than the
// engine writes them.
type CachedBalanceStore struct {
	base  core.BalanceStore
	cache repositorycache.CacheService
}

func NewCachedBalanceStore(
	base core.BalanceStore,
	cacheService repositorycache.CacheService,
) (*CachedBalanceStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base balance store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: balance cache service is required")
	}
	return &CachedBalanceStore{base: base, cache: cacheService}, nil
}

// BalanceCacheKey returns the deterministic cache key for one
// counterparty: go-treasury::balance::v1::<account>, account URL-path
// escaped.
func BalanceCacheKey(account string) (string, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return "", fmt.Errorf("%w: account is required", core.ErrInvalidAccount)
	}
	return balanceCacheKeyPrefix + "::" + url.PathEscape(account), nil
}

func (s *CachedBalanceStore) Get(ctx context.Context, account string) (core.Balance, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Balance{}, fmt.Errorf("sqlstore: cached balance store is not configured")
	}
	cacheKey, err := BalanceCacheKey(account)
	if err != nil {
		return core.Balance{}, err
	}

	balance, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Balance, error) {
		return s.base.Get(ctx, strings.TrimSpace(account))
	})
	if err != nil {
		return core.Balance{}, err
	}
	return balance, nil
}

func (s *CachedBalanceStore) Apply(ctx context.Context, account string, delta int64) (core.Balance, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Balance{}, fmt.Errorf("sqlstore: cached balance store is not configured")
	}
	balance, err := s.base.Apply(ctx, account, delta)
	if err != nil {
		return core.Balance{}, err
	}

	cacheKey, err := BalanceCacheKey(account)
	if err != nil {
		return core.Balance{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.Balance{}, err
	}
	return balance, nil
}

func (s *CachedBalanceStore) List(ctx context.Context) ([]core.Balance, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached balance store is not configured")
	}
	return s.base.List(ctx)
}

var _ core.BalanceStore = (*CachedBalanceStore)(nil)
