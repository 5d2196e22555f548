package storefront

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Item is one wishlist entry.
type Item struct {
	SKU     string    `json:"sku" msgpack:"sku"`
	Title   string    `json:"title" msgpack:"title"`
	Price   float64   `json:"price" msgpack:"price"`
	AddedAt time.Time `json:"added_at" msgpack:"added_at"`
}

// Field exposes item fields to widget sorting.
func (i Item) Field(name string) any {
	switch name {
	case "sku":
		return i.SKU
	case "title":
		return i.Title
	case "price":
		return i.Price
	case "added_at":
		return i.AddedAt.Unix()
	default:
		return nil
	}
}

// Wishlist is what a Fetcher returns for a user.
type Wishlist struct {
	UserID string `json:"user_id"`
	Items  []Item `json:"items"`
}

// Fetcher loads wishlists from the backing service.
type Fetcher interface {
	FetchWishlist(ctx context.Context, userID string) (Wishlist, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, userID string) (Wishlist, error)

func (f FetcherFunc) FetchWishlist(ctx context.Context, userID string) (Wishlist, error) {
	return f(ctx, userID)
}

// ErrUnknownUser is returned by StaticFetcher for users it has no data for.
var ErrUnknownUser = errors.New("storefront: unknown user")

// StaticFetcher serves wishlists from memory. It backs the demo command and tests.
type StaticFetcher struct {
	mu        sync.RWMutex
	wishlists map[string]Wishlist
	calls     atomic.Int64
}

func NewStaticFetcher(wishlists ...Wishlist) *StaticFetcher {
	f := &StaticFetcher{wishlists: make(map[string]Wishlist, len(wishlists))}
	for _, wl := range wishlists {
		f.Put(wl)
	}

	return f
}

// Put replaces the wishlist stored for wl.UserID.
func (f *StaticFetcher) Put(wl Wishlist) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wl.Items = slices.Clone(wl.Items)
	f.wishlists[wl.UserID] = wl
}

func (f *StaticFetcher) FetchWishlist(ctx context.Context, userID string) (Wishlist, error) {
	f.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return Wishlist{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	wl, ok := f.wishlists[userID]
	if !ok {
		return Wishlist{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	wl.Items = slices.Clone(wl.Items)

	return wl, nil
}

// Calls returns the number of FetchWishlist calls.
func (f *StaticFetcher) Calls() int64 {
	return f.calls.Load()
}
