package utils

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
)

// Collection tags used for cache invalidation.
const (
	CacheTagIngredients        = "ingredients"
	CacheTagRecipes            = "recipes"
	CacheTagEvents             = "events"
	CacheTagPurchaseOrders     = "purchase_orders"
	CacheTagInventoryMovements = "inventory_movements"
	CacheTagStaffAssignments   = "staff_assignments"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func cacheKey(tag, key string) string {
	return "Cache:" + tag + ":" + key
}

func cacheTagSet(tag string) string {
	return "CacheTag:" + tag
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// used when redis is not configured
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
}

var localCache = &memoryCache{
	entries: make(map[string]memoryEntry),
	tags:    make(map[string]map[string]struct{}),
}

func (m *memoryCache) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.raw, true
}

func (m *memoryCache) set(tag, key string, raw []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{raw: raw, expires: time.Now().Add(ttl)}
	if m.tags[tag] == nil {
		m.tags[tag] = make(map[string]struct{})
	}
	m.tags[tag][key] = struct{}{}
}

func (m *memoryCache) invalidate(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.tags[tag] {
		delete(m.entries, key)
	}
	delete(m.tags, tag)
}

// CacheList reads a list through the cache. On a miss fetch runs and the result is stored
// under the collection tag so InvalidateCacheTags can drop it.
func CacheList[T any](ctx context.Context, tag string, key string, fetch func() ([]*T, error)) ([]*T, error) {
	fullKey := cacheKey(tag, key)
	logger := config.GetLogger()

	var cached []*T
	if config.GetRedisDB() != nil {
		exists, err := config.GetRedisObject(ctx, fullKey, &cached)
		if err != nil {
			config.LogError(logger, "redisHelper.go", "CacheList", "GetRedisObject", fullKey, err)
		} else if exists {
			config.CacheLookups.WithLabelValues(tag, "hit").Inc()
			return cached, nil
		}
	} else if raw, ok := localCache.get(fullKey); ok {
		if err := json.Unmarshal(raw, &cached); err == nil {
			config.CacheLookups.WithLabelValues(tag, "hit").Inc()
			return cached, nil
		}
	}
	config.CacheLookups.WithLabelValues(tag, "miss").Inc()

	results, err := fetch()
	if err != nil {
		return nil, err
	}

	// a failed cache write only costs a refetch next time
	if config.GetRedisDB() != nil {
		if err := config.SetRedisObject(ctx, fullKey, results, GetCacheLifespan()); err != nil {
			config.LogError(logger, "redisHelper.go", "CacheList", "SetRedisObject", fullKey, err)
		} else if err := config.AddRedisSet(ctx, cacheTagSet(tag), fullKey); err != nil {
			config.LogError(logger, "redisHelper.go", "CacheList", "AddRedisSet", fullKey, err)
		}
	} else if raw, err := json.Marshal(results); err == nil {
		localCache.set(tag, fullKey, raw, GetCacheLifespan())
	}
	return results, nil
}

// InvalidateCacheTags drops every cached entry registered under the given collection tags.
func InvalidateCacheTags(ctx context.Context, tags ...string) {
	logger := config.GetLogger()
	for _, tag := range UniqueSlice(tags) {
		if config.GetRedisDB() == nil {
			localCache.invalidate(tag)
			continue
		}
		keys, err := config.GetRedisSetMembers(ctx, cacheTagSet(tag))
		if err != nil {
			config.LogError(logger, "redisHelper.go", "InvalidateCacheTags", "GetRedisSetMembers", tag, err)
			continue
		}
		keys = append(keys, cacheTagSet(tag))
		if err := config.RemoveRedisKey(ctx, keys...); err != nil {
			config.LogError(logger, "redisHelper.go", "InvalidateCacheTags", "RemoveRedisKey", tag, err)
		}
	}
}
