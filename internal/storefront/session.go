package storefront

import (
	"context"
	"maps"

	"github.com/looplj/shellstate/internal/contexts"
	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/observable"
	"github.com/looplj/shellstate/internal/observer"
	"github.com/looplj/shellstate/internal/pkg/xtime"
	"github.com/looplj/shellstate/internal/registry"
	"github.com/looplj/shellstate/internal/scope"
	"github.com/looplj/shellstate/internal/widget"
)

// Session is one consumer of a user's wishlist.
type Session struct {
	id      string
	catalog *Catalog
	userID  string
	obs     *observable.Observable[map[string]any]
	release registry.Release
}

func (s *Session) UserID() string {
	return s.userID
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Observable returns the shared wishlist observable.
func (s *Session) Observable() *observable.Observable[map[string]any] {
	return s.obs
}

// Loading reports whether a refresh is in flight.
func (s *Session) Loading() bool {
	return s.obs.IsUpdating()
}

// Refresh loads the wishlist and commits it. A failed load still commits, with the
// previous items kept and the error exposed under "error", and is returned.
func (s *Session) Refresh(ctx context.Context) error {
	ctx = contexts.WithSessionID(ctx, s.id)

	s.obs.BeginUpdate()

	wl, err := s.catalog.loader.Do(ctx, s.userID)
	if err != nil {
		log.Warn(ctx, "wishlist refresh failed", log.String("user_id", s.userID), log.Cause(err))

		s.obs.Update(func(current map[string]any) map[string]any {
			next := maps.Clone(current)
			next["error"] = err.Error()

			return next
		})
		s.obs.Commit(ctx)

		return err
	}

	s.obs.Set(map[string]any{
		"user":       s.userID,
		"items":      wl.Items,
		"count":      len(wl.Items),
		"updated_at": xtime.UTCNow(),
	})
	s.obs.Commit(ctx)

	return nil
}

// Reload drops the cached wishlist and refreshes.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.catalog.loader.Forget(ctx, s.userID); err != nil {
		log.Warn(ctx, "wishlist cache forget failed", log.String("user_id", s.userID), log.Cause(err))
	}

	return s.Refresh(ctx)
}

// BindWishlist renders the wishlist into node: items (through the widget options
// resolved from attrs), the count, an empty flag and the last error.
func (s *Session) BindWishlist(ctx context.Context, node *scope.Node, attrs map[string]string) (widget.Options, error) {
	opts, err := widget.Resolve(s.catalog.cfg.Widget, attrs)
	if err != nil {
		return widget.Options{}, err
	}

	if err := widget.Bind[map[string]any, Item](ctx, node, s.obs, observer.Field("items"), opts); err != nil {
		return widget.Options{}, err
	}

	count := observer.New[map[string]any, int](s.obs).Project(observer.Field("count"))
	node.Track(count.Fork().DeliverTo(node, "count"))
	node.Track(observer.New[map[string]any, bool](s.obs).
		Project(observer.Field("count")).
		Project(observer.Func(func(n int) (bool, error) { return n == 0, nil })).
		WithDefault(true).
		DeliverTo(node, "empty"))
	node.Track(observer.New[map[string]any, string](s.obs).
		Project(observer.Field("error")).
		DeliverTo(node, "error"))

	return opts, nil
}

// Close releases the session's hold on the shared observable.
func (s *Session) Close() {
	s.release()
}
