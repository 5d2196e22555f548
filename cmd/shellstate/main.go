package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/andreazorzetto/yh/highlight"
	"github.com/hokaccha/go-prettyjson"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gopkg.in/yaml.v3"

	"github.com/looplj/shellstate/conf"
	"github.com/looplj/shellstate/internal/app"
	"github.com/looplj/shellstate/internal/build"
	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/pkg/watcher"
	"github.com/looplj/shellstate/internal/pkg/xcache"
	"github.com/looplj/shellstate/internal/widget"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			handleConfigCommand()
			return
		case "version", "--version", "-v":
			showVersion()
			return
		case "help", "--help", "-h":
			showHelp()
			return
		case "build-info":
			showBuildInfo()
			return
		case "demo":
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
			showHelp()
			os.Exit(1)
		}
	}

	runDemo()
}

func showBuildInfo() {
	fmt.Println(build.GetBuildInfo())
}

type logger struct{}

func (l *logger) LogEvent(event fxevent.Event) {
	log.Debug(context.Background(), "fx event", log.Any("event", event))
}

func runDemo() {
	app.Run(
		fx.WithLogger(func() fxevent.Logger {
			return &logger{}
		}),
		fx.Provide(conf.Load),
	)
}

func handleConfigCommand() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: shellstate config <preview|validate|get>")
		os.Exit(1)
	}

	switch os.Args[2] {
	case "preview":
		configPreview()
	case "validate":
		configValidate()
	case "get":
		configGet()
	default:
		fmt.Println("Usage: shellstate config <preview|validate|get>")
		os.Exit(1)
	}
}

func configPreview() {
	format := "yml"

	for i := 3; i < len(os.Args); i++ {
		if os.Args[i] == "--format" || os.Args[i] == "-f" {
			if i+1 < len(os.Args) {
				format = os.Args[i+1]
			}
		}
	}

	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	output, err := renderConfig(config, format)
	if err != nil {
		fmt.Printf("Failed to preview config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

func renderConfig(config conf.Config, format string) (string, error) {
	switch format {
	case "json":
		b, err := prettyjson.Marshal(config)
		if err != nil {
			return "", err
		}

		return string(b), nil
	case "yml", "yaml":
		b, err := yaml.Marshal(config)
		if err != nil {
			return "", err
		}

		return highlight.Highlight(bytes.NewBuffer(b))
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func configValidate() {
	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	errors := validateConfig(config)

	if len(errors) == 0 {
		fmt.Println("Configuration is valid!")
		return
	}

	fmt.Println("Configuration validation failed:")

	for _, err := range errors {
		fmt.Printf("  - %s\n", err)
	}

	os.Exit(1)
}

func validateConfig(config conf.Config) []string {
	var errors []string

	if config.Log.Name == "" {
		errors = append(errors, "log.name cannot be empty")
	}

	if config.Log.Output == log.OutputFile && config.Log.File.Path == "" {
		errors = append(errors, "log.file.path cannot be empty when log.output is file")
	}

	if config.Storefront.Freshness < 0 {
		errors = append(errors, "storefront.freshness cannot be negative")
	}

	if config.Storefront.LoadTimeout < 0 {
		errors = append(errors, "storefront.load_timeout cannot be negative")
	}

	if config.Storefront.HistorySize < 0 {
		errors = append(errors, "storefront.history_size cannot be negative")
	}

	cache := config.Storefront.Cache
	switch cache.Mode {
	case "", xcache.ModeNone, xcache.ModeMemory:
	case xcache.ModeLRU:
		if cache.LRU.Size <= 0 {
			errors = append(errors, "storefront.cache.lru.size must be positive in lru mode")
		}
	case xcache.ModeRedis, xcache.ModeTwoLevel:
		if err := cache.Redis.Validate(); err != nil {
			errors = append(errors, "storefront.cache.redis: "+err.Error())
		}
	default:
		errors = append(errors, "storefront.cache.mode must be one of none, memory, lru, redis, two-level")
	}

	if config.Watcher.Mode == watcher.ModeRedis {
		if err := config.Watcher.Redis.Validate(); err != nil {
			errors = append(errors, "watcher.redis: "+err.Error())
		}

		if config.Watcher.Channel == "" {
			errors = append(errors, "watcher.channel cannot be empty in redis mode")
		}
	}

	if config.Metrics.Enabled {
		exporters := []string{metrics.ExporterStdout, metrics.ExporterOTLPHTTP, metrics.ExporterOTLPGRPC}
		if !slices.Contains(exporters, config.Metrics.Exporter) {
			errors = append(errors, "metrics.exporter must be one of stdout, otlphttp, otlpgrpc")
		}
	}

	if _, err := widget.Resolve(config.Storefront.Widget, config.Demo.Attrs); err != nil {
		errors = append(errors, fmt.Sprintf("storefront.widget: %v", err))
	}

	return errors
}

func configGet() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: shellstate config get <key>")
		fmt.Println("")
		fmt.Println("Available keys:")
		fmt.Println("  log.name                  Logger name")
		fmt.Println("  log.level                 Log level")
		fmt.Println("  storefront.freshness      Wishlist cache freshness")
		fmt.Println("  storefront.cache.mode     Wishlist cache backend")
		fmt.Println("  watcher.mode              Commit event transport")
		fmt.Println("  metrics.enabled           Whether metrics are exported")
		os.Exit(1)
	}

	key := os.Args[3]

	config, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	value, ok := configValue(config, key)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}

	fmt.Println(value)
}

func configValue(config conf.Config, key string) (any, bool) {
	switch key {
	case "log.name":
		return config.Log.Name, true
	case "log.level":
		return config.Log.Level, true
	case "storefront.freshness":
		return config.Storefront.Freshness, true
	case "storefront.history_size":
		return config.Storefront.HistorySize, true
	case "storefront.cache.mode":
		return config.Storefront.Cache.Mode, true
	case "watcher.mode":
		return config.Watcher.Mode, true
	case "metrics.enabled":
		return config.Metrics.Enabled, true
	case "metrics.exporter":
		return config.Metrics.Exporter, true
	default:
		return nil, false
	}
}

func showHelp() {
	fmt.Println("shellstate: storefront data-binding core")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  shellstate                    Run the wishlist demo (default)")
	fmt.Println("  shellstate demo               Run the wishlist demo")
	fmt.Println("  shellstate config preview     Preview configuration")
	fmt.Println("  shellstate config validate    Validate configuration")
	fmt.Println("  shellstate config get <key>   Get a specific config value")
	fmt.Println("  shellstate version            Show version")
	fmt.Println("  shellstate build-info         Show build information")
	fmt.Println("  shellstate help               Show this help message")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -f, --format FORMAT       Output format for config preview (yml, json)")
}

func showVersion() {
	fmt.Println(build.Version)
}
