// Package storefront wires the data-binding pieces into the wishlist feature: a
// memoized fetch populates a per-user observable shared through the registry, and
// observers render it into scope nodes.
package storefront

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/memo"
	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/observable"
	"github.com/looplj/shellstate/internal/pkg/watcher"
	"github.com/looplj/shellstate/internal/pkg/xcache"
	"github.com/looplj/shellstate/internal/registry"
	"github.com/looplj/shellstate/internal/widget"
)

// Config configures a Catalog.
type Config struct {
	// Freshness is how long a fetched wishlist is served from the cache. Zero keeps
	// entries until they are forgotten.
	Freshness time.Duration `conf:"freshness" yaml:"freshness" json:"freshness"`
	// LoadTimeout bounds a fetch shared by concurrent refreshes, independent of the
	// caller that started it. Zero uses the caller's context.
	LoadTimeout time.Duration `conf:"load_timeout" yaml:"load_timeout" json:"load_timeout"`
	// Cache selects the memo store. An empty mode uses the in-process default.
	Cache       xcache.Config  `conf:"cache" yaml:"cache" json:"cache"`
	HistorySize int            `conf:"history_size" yaml:"history_size" json:"history_size"`
	Widget      widget.Options `conf:"widget" yaml:"widget" json:"widget"`
}

// Dependencies are the collaborators of a Catalog. Only Registry and Fetcher are required.
type Dependencies struct {
	Registry    *registry.Registry
	Fetcher     Fetcher
	Notifier    watcher.Notifier[observable.CommitEvent]
	Instruments *metrics.Instruments
	Reporter    observable.ErrorReporter
}

// Catalog opens wishlist sessions.
type Catalog struct {
	cfg    Config
	deps   Dependencies
	loader *memo.Decorator[string, Wishlist]
}

func NewCatalog(cfg Config, deps Dependencies) (*Catalog, error) {
	if deps.Registry == nil || deps.Fetcher == nil {
		return nil, fmt.Errorf("storefront: registry and fetcher are required")
	}

	opts := []memo.Option{
		memo.WithName("wishlist"),
		memo.WithMetrics(deps.Instruments),
		memo.WithLoadTimeout(cfg.LoadTimeout),
	}

	if cfg.Freshness > 0 {
		opts = append(opts, memo.WithExpiry(memo.ExpireAfter(cfg.Freshness)))
	}

	if cfg.Cache.Mode != "" {
		store, err := xcache.NewFromConfig[memo.Entry[Wishlist]](cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("storefront: wishlist cache: %w", err)
		}

		opts = append(opts, memo.WithStore[Wishlist](store))
	}

	return &Catalog{
		cfg:    cfg,
		deps:   deps,
		loader: memo.New(deps.Fetcher.FetchWishlist, opts...),
	}, nil
}

// LoaderStats returns the memoized loader counters.
func (c *Catalog) LoaderStats() memo.Stats {
	return c.loader.Stats()
}

// Open returns a session for userID. Sessions for the same user share one observable;
// it is dropped once every session is closed.
func (c *Catalog) Open(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("storefront: user id is required")
	}

	name := "wishlist:" + userID

	obs, release, err := registry.Acquire(ctx, c.deps.Registry, name, func(ctx context.Context) (*observable.Observable[map[string]any], error) {
		opts := []observable.Option{
			observable.WithName(name),
			observable.WithHistorySize(c.cfg.HistorySize),
			observable.WithMetrics(c.deps.Instruments),
			observable.WithErrorReporter(c.deps.Reporter),
		}

		if c.deps.Notifier != nil {
			opts = append(opts, observable.WithNotifier(c.deps.Notifier))
		}

		log.Debug(ctx, "opening wishlist observable", log.String("user_id", userID))

		return observable.New(emptyPayload(userID), opts...), nil
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		id:      uuid.NewString(),
		catalog: c,
		userID:  userID,
		obs:     obs,
		release: release,
	}, nil
}

func emptyPayload(userID string) map[string]any {
	return map[string]any{
		"user":  userID,
		"items": []Item{},
		"count": 0,
	}
}
