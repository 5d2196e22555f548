package widget

import (
	"cmp"
	"context"

	"github.com/spf13/cast"

	"github.com/looplj/shellstate/internal/observable"
	"github.com/looplj/shellstate/internal/observer"
	"github.com/looplj/shellstate/internal/pkg/xregexp"
	"github.com/looplj/shellstate/internal/scope"
)

// Fielder exposes item fields by name so options can sort them.
type Fielder interface {
	Field(name string) any
}

// Pipeline turns opts into observer transforms over a []E: match, sort, then page.
func Pipeline[E Fielder](opts Options) []observer.Transform {
	var stages []observer.Transform

	if opts.Match != "" {
		pattern, field := opts.Match, opts.MatchField

		stages = append(stages, observer.Filter(func(item E) bool {
			return xregexp.MatchString(pattern, cast.ToString(item.Field(field)))
		}))
	}

	if opts.SortField != "" {
		field := opts.SortField
		desc := opts.IsDescending()

		stages = append(stages, observer.SortBy(func(a, b E) int {
			c := compareValues(a.Field(field), b.Field(field))
			if desc {
				return -c
			}

			return c
		}))
	}

	if opts.PageSize > 0 {
		stages = append(stages, observer.Limit(opts.PageSize))
	}

	return stages
}

func compareValues(a, b any) int {
	af, aErr := cast.ToFloat64E(a)
	bf, bErr := cast.ToFloat64E(b)

	if aErr == nil && bErr == nil {
		return cmp.Compare(af, bf)
	}

	return cmp.Compare(cast.ToString(a), cast.ToString(b))
}

// Bind delivers the items selected by source through the option pipeline into
// node at opts.Slot, and writes the empty text and page size next to it. The
// subscription is released when node is destroyed.
func Bind[T any, E Fielder](ctx context.Context, node *scope.Node, obs *observable.Observable[T], source observer.Transform, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	o := observer.New[T, []E](obs).Project(source).WithDefault([]E{})
	for _, stage := range Pipeline[E](opts) {
		o.Project(stage)
	}

	node.Assign(opts.Slot+".empty_text", opts.EmptyText)
	node.Assign(opts.Slot+".locale", opts.Locale)
	node.Track(o.DeliverTo(node, opts.Slot))

	// Render the current payload without waiting for the next commit.
	items, err := o.Value()
	if err != nil {
		return err
	}

	node.Assign(opts.Slot, items)
	node.Refresh(ctx)

	return nil
}
