package xcache

import (
	"time"

	"github.com/looplj/shellstate/internal/pkg/xredis"
)

// Mode represents the cache backend mode
//   - none: stores nothing
//   - memory: unbounded in-memory
//   - lru: size-bounded in-memory, least recently used entries are evicted
//   - redis: pure redis
//   - two-level: memory + redis chain
const (
	ModeNone     = "none"
	ModeMemory   = "memory"
	ModeLRU      = "lru"
	ModeRedis    = "redis"
	ModeTwoLevel = "two-level"
)

type Config struct {
	Mode   string        `conf:"mode" yaml:"mode" json:"mode"`
	Memory MemoryConfig  `conf:"memory" yaml:"memory" json:"memory"`
	LRU    LRUConfig     `conf:"lru" yaml:"lru" json:"lru"`
	Redis  xredis.Config `conf:"redis" yaml:"redis" json:"redis"`
}

// MemoryConfig configures the go-cache backend. A zero Expiration keeps entries
// for the lifetime of the cache; staleness is then decided by the caller.
type MemoryConfig struct {
	Expiration      time.Duration `conf:"expiration" yaml:"expiration" json:"expiration"`
	CleanupInterval time.Duration `conf:"cleanup_interval" yaml:"cleanup_interval" json:"cleanup_interval"`
}

type LRUConfig struct {
	Size int `conf:"size" yaml:"size" json:"size"`
}
