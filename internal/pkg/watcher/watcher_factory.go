package watcher

import (
	"errors"
	"fmt"
)

// NewWatcherFromConfig builds a Notifier for cfg.Mode. Unknown or empty modes
// fall back to an in-process watcher.
func NewWatcherFromConfig[T any](cfg Config) (Notifier[T], error) {
	switch cfg.Mode {
	case ModeRedis:
		if cfg.Channel == "" {
			return nil, errors.New("watcher: channel is required for redis mode")
		}

		w, err := NewRedisWatcherFromConfig[T](cfg.Redis, RedisWatcherOptions{
			Channel: cfg.Channel,
			Buffer:  cfg.Buffer,
			SkipOwn: cfg.SkipOwn,
		})
		if err != nil {
			return nil, fmt.Errorf("watcher: %w", err)
		}

		return w, nil
	default:
		return NewMemoryWatcher[T](MemoryWatcherOptions{Buffer: cfg.Buffer}), nil
	}
}
