package detect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerdictCache memoizes classifications in Redis. Classification is
// deterministic for a given snapshot, so entries are keyed by
// (snapshot id, text hash) and a snapshot swap naturally invalidates
// the whole generation. Cache errors are logged and treated as
// misses; the cache is never a point of failure.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVerdictCache connects to Redis and verifies the connection.
func NewVerdictCache(addr, password string, db int, ttl time.Duration) (*VerdictCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &VerdictCache{client: client, ttl: ttl}, nil
}

func cacheKey(snapshotID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "verdict:" + snapshotID + ":" + hex.EncodeToString(sum[:])
}

// Get looks up a cached verdict.
func (c *VerdictCache) Get(ctx context.Context, snapshotID, text string) (Verdict, bool) {
	data, err := c.client.Get(ctx, cacheKey(snapshotID, text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[WARN] verdict cache get failed: %v", err)
		}
		return Verdict{}, false
	}

	// The cached verdict is returned verbatim so a hit is
	// indistinguishable from recomputation.
	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[WARN] verdict cache entry corrupt, ignoring: %v", err)
		return Verdict{}, false
	}
	return v, true
}

// Put stores a verdict. Best effort.
func (c *VerdictCache) Put(ctx context.Context, snapshotID, text string, v Verdict) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(snapshotID, text), data, c.ttl).Err(); err != nil {
		log.Printf("[WARN] verdict cache put failed: %v", err)
	}
}

// Close releases the Redis connection.
func (c *VerdictCache) Close() error { return c.client.Close() }
