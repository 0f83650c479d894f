package redis_cache

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	listingKeyPrefix = "backoffice:listing:"
	searchKeyPrefix  = "backoffice:listings:search:"
	// searchGenKey - поколение кэша поиска. Любое изменение объявления увеличивает его,
	// и все ранее сохраненные страницы поиска перестают читаться.
	searchGenKey = "backoffice:listings:search-gen"
)

// KV - команды Redis, которые использует кэш.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// ListingCache - кэш чтения объявлений в Redis.
type ListingCache struct {
	kv  KV
	ttl time.Duration
}

var _ port.ListingCachePort = (*ListingCache)(nil)

func NewListingCache(kv KV, ttl time.Duration) (*ListingCache, error) {
	if kv == nil {
		return nil, errors.New("redis cache: client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ListingCache{kv: kv, ttl: ttl}, nil
}

// NewClient создает клиент Redis и проверяет соединение.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func listingKey(id string) string {
	return listingKeyPrefix + id
}

func (c *ListingCache) searchKey(ctx context.Context, keyword string, page, limit int) (string, error) {
	gen, err := c.kv.Get(ctx, searchGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s:%d:%d", searchKeyPrefix, gen, url.QueryEscape(keyword), page, limit), nil
}

func (c *ListingCache) GetSearch(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, bool, error) {
	key, err := c.searchKey(ctx, keyword, page, limit)
	if err != nil {
		return domain.ListingPage{}, false, fmt.Errorf("redis cache: failed to read search generation: %w", err)
	}
	var result domain.ListingPage
	found, err := c.read(ctx, key, &result)
	return result, found, err
}

func (c *ListingCache) SetSearch(ctx context.Context, keyword string, page, limit int, result domain.ListingPage) error {
	key, err := c.searchKey(ctx, keyword, page, limit)
	if err != nil {
		return fmt.Errorf("redis cache: failed to read search generation: %w", err)
	}
	return c.write(ctx, key, result)
}

func (c *ListingCache) GetListing(ctx context.Context, listingID string) (domain.Listing, bool, error) {
	var listing domain.Listing
	found, err := c.read(ctx, listingKey(listingID), &listing)
	return listing, found, err
}

func (c *ListingCache) SetListing(ctx context.Context, listing domain.Listing) error {
	if listing.ID == "" {
		return nil
	}
	return c.write(ctx, listingKey(listing.ID), listing)
}

// InvalidateListing удаляет запись и сбрасывает страницы поиска, в которых она могла быть.
func (c *ListingCache) InvalidateListing(ctx context.Context, listingID string) error {
	var errs []error
	if listingID != "" {
		if err := c.kv.Del(ctx, listingKey(listingID)).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.kv.Incr(ctx, searchGenKey).Err(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("redis cache: failed to invalidate listing %s: %w", listingID, err)
	}
	return nil
}

func (c *ListingCache) read(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.kv.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis cache: failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// битая запись равносильна промаху
		contextkeys.LoggerFromContext(ctx).Warn("Dropping undecodable cache entry", port.Fields{"key": key, "error": err.Error()})
		_ = c.kv.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *ListingCache) write(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis cache: failed to marshal %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: failed to set %s: %w", key, err)
	}
	return nil
}
