// Package conf loads the process configuration from config.yml and SHELLSTATE_*
// environment variables.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/pkg/watcher"
	"github.com/looplj/shellstate/internal/storefront"
)

const envPrefix = "SHELLSTATE"

type Config struct {
	Log        log.Config        `conf:"log" yaml:"log" json:"log"`
	Metrics    metrics.Config    `conf:"metrics" yaml:"metrics" json:"metrics"`
	Watcher    watcher.Config    `conf:"watcher" yaml:"watcher" json:"watcher"`
	Storefront storefront.Config `conf:"storefront" yaml:"storefront" json:"storefront"`
	Demo       DemoConfig        `conf:"demo" yaml:"demo" json:"demo"`
}

// DemoConfig drives the demo command.
type DemoConfig struct {
	Users   []string          `conf:"users" yaml:"users" json:"users"`
	Refresh int               `conf:"refresh" yaml:"refresh" json:"refresh"`
	Attrs   map[string]string `conf:"attrs" yaml:"attrs" json:"attrs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.name", "shellstate")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output", log.OutputStdio)
	v.SetDefault("log.file.path", "logs/shellstate.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 10)
	v.SetDefault("log.file.local_time", true)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.exporter", metrics.ExporterStdout)
	v.SetDefault("metrics.endpoint", "")
	v.SetDefault("metrics.insecure", false)
	v.SetDefault("metrics.interval", time.Minute)

	v.SetDefault("watcher.mode", watcher.ModeMemory)
	v.SetDefault("watcher.channel", "shellstate:commits")
	v.SetDefault("watcher.buffer", 16)
	v.SetDefault("watcher.skip_own", false)
	v.SetDefault("watcher.redis.addr", "")
	v.SetDefault("watcher.redis.url", "")

	v.SetDefault("storefront.freshness", 5*time.Minute)
	v.SetDefault("storefront.load_timeout", 10*time.Second)
	v.SetDefault("storefront.history_size", 16)
	v.SetDefault("storefront.cache.mode", "")
	v.SetDefault("storefront.cache.memory.expiration", time.Duration(0))
	v.SetDefault("storefront.cache.memory.cleanup_interval", time.Duration(0))
	v.SetDefault("storefront.cache.lru.size", 1024)
	v.SetDefault("storefront.cache.redis.addr", "")
	v.SetDefault("storefront.cache.redis.url", "")
	v.SetDefault("storefront.widget.page_size", 0)
	v.SetDefault("storefront.widget.sort_field", "")
	v.SetDefault("storefront.widget.empty_text", "")
	v.SetDefault("storefront.widget.locale", "")
	v.SetDefault("storefront.widget.slot", "")
	v.SetDefault("storefront.widget.match", "")
	v.SetDefault("storefront.widget.match_field", "")

	v.SetDefault("demo.users", []string{"player-1"})
	v.SetDefault("demo.refresh", 2)
	v.SetDefault("demo.attrs", map[string]string{})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./conf")
	v.AddConfigPath("/etc/shellstate")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return v
}

// Load searches ., ./conf and /etc/shellstate for config.yml. A missing file is not
// an error; defaults and environment variables still apply.
func Load() (Config, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

// LoadFile reads the given file instead of searching.
func LoadFile(path string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config

	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}
