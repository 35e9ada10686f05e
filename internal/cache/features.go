package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/encoder"
)

// FeatureCache caches encoded feature vectors in Redis keyed by a hash of
// the normalized input text. Encoding is deterministic, so a hit is always
// safe to reuse. Cache failures degrade to a miss and are never fatal.
type FeatureCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger

	hits   int64
	misses int64
}

// NewFeatureCache connects to Redis and verifies the connection.
func NewFeatureCache(config *Config, logger *zap.Logger) (*FeatureCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.MaxConnections > 0 {
		opts.PoolSize = config.MaxConnections
	}
	if config.MinIdleConns > 0 {
		opts.MinIdleConns = config.MinIdleConns
	}

	fc := &FeatureCache{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fc.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Feature cache initialized",
		zap.String("key_prefix", config.KeyPrefix),
		zap.Duration("default_ttl", config.DefaultTTL))

	return fc, nil
}

// Get returns the cached vector for text, or nil on a miss.
func (fc *FeatureCache) Get(ctx context.Context, text string) *encoder.FeatureVector {
	data, err := fc.client.Get(ctx, fc.key(text)).Result()
	if err == redis.Nil {
		atomic.AddInt64(&fc.misses, 1)
		return nil
	}
	if err != nil {
		fc.logger.Debug("Cache lookup failed", zap.Error(err))
		atomic.AddInt64(&fc.misses, 1)
		return nil
	}

	var cached cachedVector
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		fc.logger.Warn("Corrupt cache entry, deleting", zap.Error(err))
		fc.client.Del(ctx, fc.key(text))
		atomic.AddInt64(&fc.misses, 1)
		return nil
	}

	atomic.AddInt64(&fc.hits, 1)
	return &encoder.FeatureVector{Floats: cached.Floats, Ints: cached.Ints}
}

// Put stores an encoded vector with the configured TTL.
func (fc *FeatureCache) Put(ctx context.Context, text string, vec *encoder.FeatureVector) {
	data, err := json.Marshal(cachedVector{
		Floats:   vec.Floats,
		Ints:     vec.Ints,
		CachedAt: time.Now(),
	})
	if err != nil {
		fc.logger.Error("Failed to marshal feature vector", zap.Error(err))
		return
	}
	if err := fc.client.Set(ctx, fc.key(text), data, fc.config.DefaultTTL).Err(); err != nil {
		fc.logger.Debug("Failed to cache feature vector", zap.Error(err))
	}
}

// Stats returns hit/miss counters.
func (fc *FeatureCache) Stats() Stats {
	stats := Stats{
		Hits:   atomic.LoadInt64(&fc.hits),
		Misses: atomic.LoadInt64(&fc.misses),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close closes the Redis connection.
func (fc *FeatureCache) Close() error {
	if fc.client != nil {
		return fc.client.Close()
	}
	return nil
}

// key hashes the normalized text into a stable cache key.
func (fc *FeatureCache) key(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return fmt.Sprintf("%s:feat:%s", fc.config.KeyPrefix, hex.EncodeToString(sum[:8]))
}
