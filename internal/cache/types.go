package cache

import "time"

// Config contains Redis feature cache configuration.
type Config struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// Stats tracks cache effectiveness over the process lifetime.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// cachedVector is the stored representation of an encoded feature vector.
type cachedVector struct {
	Floats   []float32 `json:"floats,omitempty"`
	Ints     []int32   `json:"ints,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}
