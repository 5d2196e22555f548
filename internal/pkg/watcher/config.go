package watcher

import (
	"github.com/looplj/shellstate/internal/pkg/xredis"
)

const (
	ModeMemory = "memory"
	ModeRedis  = "redis"
)

// Config selects the event transport. SkipOwn applies to redis mode and hides events
// a process published from its own watchers.
type Config struct {
	Mode    string        `conf:"mode" yaml:"mode" json:"mode"`
	Channel string        `conf:"channel" yaml:"channel" json:"channel"`
	Buffer  int           `conf:"buffer" yaml:"buffer" json:"buffer"`
	SkipOwn bool          `conf:"skip_own" yaml:"skip_own" json:"skip_own"`
	Redis   xredis.Config `conf:"redis" yaml:"redis" json:"redis"`
}
