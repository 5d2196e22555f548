// Package widget resolves the typed options of list widgets. Options come from three
// layers with fixed precedence: element attributes, then the caller, then Defaults.
package widget

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/samber/lo"

	"github.com/looplj/shellstate/internal/pkg/xregexp"
)

// ErrInvalidOptions is returned for attribute values that cannot be decoded or
// option combinations that cannot be rendered.
var ErrInvalidOptions = errors.New("widget: invalid options")

// Options configures a list widget.
type Options struct {
	// PageSize caps the number of rendered items. Zero renders everything.
	PageSize int `attr:"page-size" conf:"page_size" json:"page_size" yaml:"page_size"`
	// SortField names the item field to sort by. Empty keeps source order.
	SortField  string `attr:"sort" conf:"sort_field" json:"sort_field" yaml:"sort_field"`
	Descending *bool  `attr:"descending" conf:"descending" json:"descending" yaml:"descending"`
	EmptyText  string `attr:"empty-text" conf:"empty_text" json:"empty_text" yaml:"empty_text"`
	Locale     string `attr:"locale" conf:"locale" json:"locale" yaml:"locale"`
	// Slot is the scope slot the rendered items are delivered to.
	Slot string `attr:"slot" conf:"slot" json:"slot" yaml:"slot"`
	// Match keeps only items whose MatchField matches the whole pattern.
	Match      string `attr:"match" conf:"match" json:"match" yaml:"match"`
	MatchField string `attr:"match-field" conf:"match_field" json:"match_field" yaml:"match_field"`
}

// Defaults returns the options used when neither the caller nor attributes set a field.
func Defaults() Options {
	return Options{
		PageSize:   10,
		Descending: lo.ToPtr(false),
		EmptyText:  "Nothing here yet.",
		Locale:     "en-US",
		Slot:       "items",
		MatchField: "title",
	}
}

// IsDescending reports the sort direction.
func (o Options) IsDescending() bool {
	return lo.FromPtr(o.Descending)
}

// Resolve layers caller over Defaults and attrs over both. Zero caller fields do not
// override defaults; use a pointer field such as Descending to force a false value.
// Attributes always win when present, including explicit zero values such as
// page-size="0" or empty-text="".
func Resolve(caller Options, attrs map[string]string) (Options, error) {
	fromAttrs, keys, err := decodeAttributes(attrs)
	if err != nil {
		return Options{}, err
	}

	out := Defaults()

	if err := mergo.Merge(&out, caller, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return Options{}, fmt.Errorf("widget: merge options: %w", err)
	}

	setAttributes(&out, fromAttrs, keys)

	if err := out.Validate(); err != nil {
		return Options{}, err
	}

	return out, nil
}

// DecodeAttributes converts element attributes into Options. Unknown attributes are
// ignored. Values are weakly typed, so "20" and "true" decode into int and bool fields.
func DecodeAttributes(attrs map[string]string) (Options, error) {
	out, _, err := decodeAttributes(attrs)
	return out, err
}

func decodeAttributes(attrs map[string]string) (Options, []string, error) {
	var (
		out  Options
		meta mapstructure.Metadata
	)

	if len(attrs) == 0 {
		return out, nil, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "attr",
		WeaklyTypedInput: true,
		Metadata:         &meta,
		Result:           &out,
	})
	if err != nil {
		return Options{}, nil, err
	}

	if err := dec.Decode(attrs); err != nil {
		return Options{}, nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	return out, meta.Keys, nil
}

// setAttributes copies the fields named by the decoded attribute keys from src to dst.
func setAttributes(dst *Options, src Options, keys []string) {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src)

	for _, f := range reflect.VisibleFields(dv.Type()) {
		if slices.Contains(keys, f.Tag.Get("attr")) {
			dv.FieldByIndex(f.Index).Set(sv.FieldByIndex(f.Index))
		}
	}
}

// Validate checks option values.
func (o Options) Validate() error {
	if o.PageSize < 0 {
		return fmt.Errorf("%w: page size %d is negative", ErrInvalidOptions, o.PageSize)
	}

	if o.Slot == "" {
		return fmt.Errorf("%w: slot is empty", ErrInvalidOptions)
	}

	if o.Match != "" {
		if _, err := xregexp.Compile(o.Match); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	}

	return nil
}
