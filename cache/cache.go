package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a TTL response cache with single-flight deduplication.
// L1 is an in-memory sync.Map; an optional Redis L2 survives restarts.
// A key has at most one in-flight upstream fetch: late arrivers wait for
// that result instead of issuing a duplicate.
type Cache struct {
	l1    sync.Map      // key -> *entry
	rdb   *redis.Client // nil when Redis is not configured
	group singleflight.Group
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New creates a memory-only cache.
func New() *Cache {
	return &Cache{}
}

// NewWithRedis enables the L2 tier when addr is non-empty and reachable.
// A dead Redis is non-fatal: the cache degrades to L1 with a warning.
func NewWithRedis(addr, password string) *Cache {
	c := &Cache{}
	if addr == "" {
		return c
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: redis at %s unreachable, L2 cache disabled: %v", addr, err)
		return c
	}
	c.rdb = rdb
	log.Printf("Cache: L2 redis connected (%s)", addr)
	return c
}

// Key builds a deterministic cache key from normalized parts.
func Key(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("volna:%x", hash[:12])
}

// Do returns the cached value for key or computes it exactly once.
// Concurrent callers for the same key collapse into one fetch and all
// receive the same value or the same failure. bypass skips the cached read
// but still writes the fresh value back under the same key.
func (c *Cache) Do(ctx context.Context, key string, ttl time.Duration, bypass bool, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if !bypass {
		if data, ok := c.lookup(ctx, key); ok {
			return data, nil
		}
	}

	// Bypass callers fly separately: joining a non-bypass flight could hand
	// them a just-cached value instead of the fresh fetch they asked for.
	flightKey := key
	if bypass {
		flightKey = key + "|bypass"
	}

	v, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		if !bypass {
			// The previous flight may have stored the value while we
			// waited for the group slot.
			if data, ok := c.lookup(ctx, key); ok {
				return data, nil
			}
		}
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, data, ttl)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// lookup checks L1 then L2, promoting L2 hits into L1.
func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.l1.Load(key); ok {
		e := v.(*entry)
		if time.Now().Before(e.expiresAt) {
			return e.data, true
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		pipe := c.rdb.Pipeline()
		get := pipe.Get(ctx, key)
		pttl := pipe.PTTL(ctx, key)
		if _, err := pipe.Exec(ctx); err == nil {
			data, _ := get.Bytes()
			if remain, err := pttl.Result(); err == nil && remain > 0 {
				c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(remain)})
				return data, true
			}
		}
	}

	return nil, false
}

func (c *Cache) store(ctx context.Context, key string, data []byte, ttl time.Duration) {
	c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(ttl)})
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			log.Printf("Warning: cache L2 set failed for %s: %v", key, err)
		}
	}
}

// DoJSON is Do with JSON (de)serialization of the cached value.
func DoJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, bypass bool, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	data, err := c.Do(ctx, key, ttl, bypass, func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return out, nil
}
