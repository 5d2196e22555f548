package app

import (
	"context"
	"fmt"
	"io"

	"github.com/hokaccha/go-prettyjson"

	"github.com/looplj/shellstate/conf"
	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/observable"
	"github.com/looplj/shellstate/internal/pkg/watcher"
	"github.com/looplj/shellstate/internal/scope"
	"github.com/looplj/shellstate/internal/storefront"
	"github.com/looplj/shellstate/internal/tracing"
)

// View is the rendered state of one user's wishlist widget.
type View struct {
	User    string         `json:"user"`
	Ready   bool           `json:"ready"`
	Slots   map[string]any `json:"slots"`
	Commits uint64         `json:"commits"`
}

// Demo opens a session per configured user, binds the wishlist widget to a scope
// tree, refreshes and renders the resulting views.
type Demo struct {
	Catalog  *storefront.Catalog
	Notifier watcher.Notifier[observable.CommitEvent]
	Config   conf.DemoConfig
}

func NewDemo(catalog *storefront.Catalog, notifier watcher.Notifier[observable.CommitEvent], cfg conf.DemoConfig) *Demo {
	return &Demo{Catalog: catalog, Notifier: notifier, Config: cfg}
}

// Run renders one View per user. Refresh failures are logged and rendered into the
// view's error slot.
func (d *Demo) Run(ctx context.Context) ([]View, error) {
	ctx = tracing.WithOperationName(tracing.EnsureTraceID(ctx), "demo")

	if d.Notifier != nil {
		stop := watcher.Forward(ctx, d.Notifier, func(ev observable.CommitEvent) {
			log.Debug(ctx, "commit event",
				log.String("name", ev.Name),
				log.Uint64("version", ev.Version),
				log.Int("delivered", ev.Delivered))
		})
		defer stop()
	}

	root := scope.NewRoot("shell", len(d.Config.Users))
	defer root.Destroy()

	root.MarkReady(ctx)

	views := make([]View, 0, len(d.Config.Users))

	for _, user := range d.Config.Users {
		view, err := d.render(ctx, root, user)
		if err != nil {
			return nil, err
		}

		views = append(views, view)
	}

	log.Info(ctx, "demo finished",
		log.Bool("shell_ready", root.Ready()),
		log.Any("loader", d.Catalog.LoaderStats()))

	return views, nil
}

func (d *Demo) render(ctx context.Context, root *scope.Node, user string) (View, error) {
	session, err := d.Catalog.Open(ctx, user)
	if err != nil {
		return View{}, err
	}
	defer session.Close()

	node := root.NewChild(user, 0)
	defer node.Destroy()

	if _, err := session.BindWishlist(ctx, node, d.Config.Attrs); err != nil {
		return View{}, fmt.Errorf("bind wishlist for %s: %w", user, err)
	}

	// The first commit after binding completes the node.
	node.OnRefresh(func(ctx context.Context, n *scope.Node) {
		if !session.Loading() {
			n.MarkReady(ctx)
		}
	})

	for range max(d.Config.Refresh, 1) {
		if err := session.Refresh(ctx); err != nil {
			log.Warn(ctx, "demo refresh failed", log.String("user", user), log.Cause(err))
		}
	}

	return View{
		User:    user,
		Ready:   node.Ready(),
		Slots:   node.Slots(),
		Commits: session.Observable().Version(),
	}, nil
}

// Print writes views as colored JSON.
func Print(w io.Writer, views []View) error {
	b, err := prettyjson.Marshal(views)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
