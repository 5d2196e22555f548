// Package app assembles the shellstate components with fx.
package app

import (
	"context"

	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"

	"github.com/looplj/shellstate/conf"
	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/observable"
	"github.com/looplj/shellstate/internal/pkg/watcher"
	"github.com/looplj/shellstate/internal/registry"
	"github.com/looplj/shellstate/internal/storefront"
)

// Module provides everything below conf.Config. The caller supplies the config.
var Module = fx.Module("shellstate",
	fx.Provide(
		func(cfg conf.Config) log.Config { return cfg.Log },
		func(cfg conf.Config) metrics.Config { return cfg.Metrics },
		func(cfg conf.Config) storefront.Config { return cfg.Storefront },
		func(cfg conf.Config) conf.DemoConfig { return cfg.Demo },
		log.New,
		metrics.NewProvider,
		NewInstruments,
		registry.New,
		NewNotifier,
		NewFetcher,
		NewCatalog,
	),
	fx.Invoke(func(l *log.Logger) {
		log.SetGlobalLogger(l)
	}),
	fx.Invoke(func(lc fx.Lifecycle, provider *sdk.MeterProvider, reg *registry.Registry, l *log.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if provider != nil {
					metrics.SetupMetrics(provider)
				}

				return nil
			},
			OnStop: func(ctx context.Context) error {
				if err := reg.Close(); err != nil {
					log.Error(ctx, "registry close error", log.Cause(err))
				}

				if provider != nil {
					if err := provider.Shutdown(ctx); err != nil {
						log.Error(ctx, "meter provider shutdown error", log.Cause(err))
					}
				}

				_ = l.Sync()

				return nil
			},
		})
	}),
)

// NewInstruments creates counters on provider, or on the global provider when metrics
// are disabled.
func NewInstruments(provider *sdk.MeterProvider) *metrics.Instruments {
	if provider == nil {
		return metrics.NewInstruments(nil)
	}

	return metrics.NewInstruments(provider)
}

// NewNotifier builds the commit event channel from the watcher config.
func NewNotifier(cfg conf.Config) (watcher.Notifier[observable.CommitEvent], error) {
	return watcher.NewWatcherFromConfig[observable.CommitEvent](cfg.Watcher)
}

// NewFetcher serves the bundled sample wishlists.
func NewFetcher() storefront.Fetcher {
	return storefront.NewStaticFetcher(SampleWishlists()...)
}

type CatalogParams struct {
	fx.In

	Config      storefront.Config
	Registry    *registry.Registry
	Fetcher     storefront.Fetcher
	Notifier    watcher.Notifier[observable.CommitEvent]
	Instruments *metrics.Instruments
}

func NewCatalog(p CatalogParams) (*storefront.Catalog, error) {
	return storefront.NewCatalog(p.Config, storefront.Dependencies{
		Registry:    p.Registry,
		Fetcher:     p.Fetcher,
		Notifier:    p.Notifier,
		Instruments: p.Instruments,
	})
}
