// Package observer projects the payload of an observable through a per-consumer
// pipeline and delivers the result into a named slot of a view target.
package observer

import (
	"context"
	"fmt"
	"slices"

	"github.com/looplj/shellstate/internal/observable"
)

// Transform maps the output of the previous stage to the input of the next one.
// Transforms must not mutate their input.
type Transform func(in any) (any, error)

// Target receives projected values. Assign stores a value under slot; Refresh asks the
// target to re-render after an assignment.
type Target interface {
	Assign(slot string, value any)
	Refresh(ctx context.Context)
}

// Observer is a consumer-side view of an observable. Each Observer owns its pipeline,
// so observers over the same observable never affect each other.
type Observer[T, V any] struct {
	source   *observable.Observable[T]
	pipeline []Transform
	fallback V
}

// New creates an observer over source with an empty pipeline.
func New[T, V any](source *observable.Observable[T]) *Observer[T, V] {
	if source == nil {
		panic("observer.New: source observable must not be nil")
	}

	return &Observer[T, V]{source: source}
}

// Project appends fn to the pipeline and returns the observer for chaining.
func (o *Observer[T, V]) Project(fn Transform) *Observer[T, V] {
	if fn == nil {
		panic("observer.Project: transform must not be nil")
	}

	o.pipeline = append(o.pipeline, fn)

	return o
}

// WithDefault sets the value delivered when the projection is missing, nil, or not a V.
func (o *Observer[T, V]) WithDefault(v V) *Observer[T, V] {
	o.fallback = v
	return o
}

// Fork returns a copy of the observer whose pipeline can be extended independently.
func (o *Observer[T, V]) Fork() *Observer[T, V] {
	return &Observer[T, V]{
		source:   o.source,
		pipeline: slices.Clone(o.pipeline),
		fallback: o.fallback,
	}
}

// Value evaluates the pipeline against the current payload.
func (o *Observer[T, V]) Value() (V, error) {
	return evaluate(o.pipeline, o.fallback, o.source.Data())
}

// DeliverTo subscribes to the observable. On every commit the pipeline runs over the
// committed payload, the result is assigned to target at slot and the target is refreshed.
// The pipeline is captured at call time; later Project calls do not affect the subscription.
// A pipeline error leaves the slot untouched and is reported as a subscriber failure.
//
// The caller owns the returned handle and must release it when the target is torn down.
func (o *Observer[T, V]) DeliverTo(target Target, slot string) observable.Handle {
	if target == nil {
		panic("observer.DeliverTo: target must not be nil")
	}

	if slot == "" {
		panic("observer.DeliverTo: slot name must not be empty")
	}

	pipeline := slices.Clone(o.pipeline)
	fallback := o.fallback

	return o.source.Subscribe(func(ctx context.Context, payload T) error {
		v, err := evaluate(pipeline, fallback, payload)
		if err != nil {
			return fmt.Errorf("observer slot %q: %w", slot, err)
		}

		target.Assign(slot, v)
		target.Refresh(ctx)

		return nil
	})
}

func evaluate[T, V any](pipeline []Transform, fallback V, payload T) (V, error) {
	var current any = payload

	for i, fn := range pipeline {
		next, err := fn(current)
		if err != nil {
			var zero V
			return zero, fmt.Errorf("transform %d: %w", i, err)
		}

		current = next
	}

	if current == nil || IsMissing(current) {
		return fallback, nil
	}

	v, ok := current.(V)
	if !ok {
		return fallback, nil
	}

	return v, nil
}
