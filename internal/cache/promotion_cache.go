package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/redis/go-redis/v9"
)

const promotionsOnSaleKey = "promotions:on_sale"

// PromotionStore tracks which SKUs are currently discounted.
type PromotionStore interface {
	IsOnSale(ctx context.Context, sku string) (bool, error)
	MarkOnSale(ctx context.Context, sku string) error
	ClearSale(ctx context.Context, sku string) error
	ListOnSale(ctx context.Context) ([]string, error)
	Close() error
}

type redisPromotionStore struct {
	client *redis.Client
	key    string
}

// memoryPromotionStore keeps promotions in process. They are lost on restart.
type memoryPromotionStore struct {
	mu   sync.RWMutex
	skus map[string]struct{}
}

// NewPromotionStore returns a redis-backed store, or an in-process store when
// the cache is disabled.
func NewPromotionStore(cfg config.CacheConfig) (PromotionStore, error) {
	if !cfg.Enabled {
		return NewMemoryPromotionStore(), nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisPromotionStore(client), nil
}

// NewRedisPromotionStore wraps an existing client.
func NewRedisPromotionStore(client *redis.Client) PromotionStore {
	return &redisPromotionStore{client: client, key: promotionsOnSaleKey}
}

func NewMemoryPromotionStore() PromotionStore {
	return &memoryPromotionStore{skus: make(map[string]struct{})}
}

func (s *redisPromotionStore) IsOnSale(ctx context.Context, sku string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, normalizeSKU(sku)).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember failed: %w", err)
	}
	return ok, nil
}

func (s *redisPromotionStore) MarkOnSale(ctx context.Context, sku string) error {
	if err := s.client.SAdd(ctx, s.key, normalizeSKU(sku)).Err(); err != nil {
		return fmt.Errorf("redis sadd failed: %w", err)
	}
	return nil
}

func (s *redisPromotionStore) ClearSale(ctx context.Context, sku string) error {
	if err := s.client.SRem(ctx, s.key, normalizeSKU(sku)).Err(); err != nil {
		return fmt.Errorf("redis srem failed: %w", err)
	}
	return nil
}

func (s *redisPromotionStore) ListOnSale(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

func (s *redisPromotionStore) Close() error {
	return s.client.Close()
}

func (m *memoryPromotionStore) IsOnSale(ctx context.Context, sku string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.skus[normalizeSKU(sku)]
	return ok, nil
}

func (m *memoryPromotionStore) MarkOnSale(ctx context.Context, sku string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skus[normalizeSKU(sku)] = struct{}{}
	return nil
}

func (m *memoryPromotionStore) ClearSale(ctx context.Context, sku string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.skus, normalizeSKU(sku))
	return nil
}

func (m *memoryPromotionStore) ListOnSale(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.skus))
	for sku := range m.skus {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryPromotionStore) Close() error {
	return nil
}

func normalizeSKU(sku string) string {
	return strings.TrimSpace(sku)
}
