// Package registry shares named values between the components of one process.
// The first Acquire of a name creates the value; later ones return it. Values are
// reference counted and torn down when the last holder releases them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/looplj/shellstate/internal/log"
)

// ErrTypeMismatch is returned when a name is acquired with a type different from the
// one it was created with.
var ErrTypeMismatch = errors.New("registry: type mismatch")

// Stopper is implemented by values that need teardown but are not io.Closers.
type Stopper interface {
	Stop()
}

// Release drops one reference. Calling it more than once has no further effect.
type Release func()

// Factory creates the value for a name.
type Factory[T any] func(ctx context.Context) (T, error)

type entry struct {
	value any
	refs  int
}

// Registry is an owned set of named, shared values. Construct one per process and pass
// it to the components that share values.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Acquire returns the value registered under name, creating it with factory when
// absent. Concurrent first acquisitions run factory once. A failed factory leaves
// nothing behind. The returned Release must be called when the caller is done.
func Acquire[T any](ctx context.Context, r *Registry, name string, factory Factory[T]) (T, Release, error) {
	var zero T

	if name == "" {
		panic("registry.Acquire: name must not be empty")
	}

	if factory == nil {
		panic("registry.Acquire: factory must not be nil")
	}

	for {
		if v, release, found, err := acquireExisting[T](r, name); found || err != nil {
			return v, release, err
		}

		_, err, _ := r.group.Do(name, func() (any, error) {
			r.mu.Lock()
			_, exists := r.entries[name]
			r.mu.Unlock()

			if exists {
				return nil, nil
			}

			v, err := factory(ctx)
			if err != nil {
				return nil, err
			}

			r.mu.Lock()
			r.entries[name] = &entry{value: v}
			r.mu.Unlock()

			log.Debug(ctx, "registry entry created", log.String("name", name))

			return nil, nil
		})
		if err != nil {
			return zero, nil, fmt.Errorf("registry %q: %w", name, err)
		}
		// The entry can be released and removed before we get to it; try again.
	}
}

func acquireExisting[T any](r *Registry, name string) (T, Release, bool, error) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return zero, nil, false, nil
	}

	v, ok := e.value.(T)
	if !ok {
		return zero, nil, true, fmt.Errorf("%w: %q holds %T, not %T", ErrTypeMismatch, name, e.value, zero)
	}

	e.refs++

	return v, r.releaser(name, e), true, nil
}

func (r *Registry) releaser(name string, e *entry) Release {
	var once sync.Once

	return func() {
		once.Do(func() {
			r.mu.Lock()
			e.refs--

			last := e.refs <= 0 && r.entries[name] == e
			if last {
				delete(r.entries, name)
			}
			r.mu.Unlock()

			if last {
				ctx := context.Background()
				if err := teardown(e.value); err != nil {
					log.Warn(ctx, "registry teardown failed", log.String("name", name), log.Cause(err))
				}

				log.Debug(ctx, "registry entry released", log.String("name", name))
			}
		})
	}
}

func teardown(v any) error {
	switch t := v.(type) {
	case io.Closer:
		return t.Close()
	case Stopper:
		t.Stop()
	}

	return nil
}

// Get returns the value registered under name without creating it or taking a reference.
func Get[T any](r *Registry, name string) (T, bool) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return zero, false
	}

	v, ok := e.value.(T)

	return v, ok
}

// Refs returns the number of outstanding references to name.
func (r *Registry) Refs(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		return e.refs
	}

	return 0
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := lo.Keys(r.entries)
	r.mu.Unlock()

	slices.Sort(names)

	return names
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Close tears down every entry regardless of outstanding references. Releases
// obtained earlier become no-ops.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	var errs error

	for _, name := range slices.Sorted(maps.Keys(entries)) {
		if err := teardown(entries[name].value); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}

	return errs
}
