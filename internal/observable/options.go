package observable

import (
	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/pkg/watcher"
)

const defaultHistorySize = 16

type options struct {
	name        string
	reporter    ErrorReporter
	notifier    watcher.Notifier[CommitEvent]
	historySize int
	instruments *metrics.Instruments
}

// Option configures an Observable.
type Option func(*options)

// WithName names the observable in logs, metrics and commit events.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithErrorReporter sets the collaborator receiving subscriber failures.
// Defaults to LogReporter.
func WithErrorReporter(r ErrorReporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithNotifier publishes a CommitEvent after every commit.
func WithNotifier(n watcher.Notifier[CommitEvent]) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithHistorySize bounds the number of retained CommitRecords. Non-positive
// values keep the default.
func WithHistorySize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historySize = n
		}
	}
}

// WithMetrics records commit and failure counters on the given instruments.
func WithMetrics(inst *metrics.Instruments) Option {
	return func(o *options) {
		if inst != nil {
			o.instruments = inst
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		name:        "observable",
		reporter:    LogReporter{},
		historySize: defaultHistorySize,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.instruments == nil {
		o.instruments = metrics.NewInstruments(nil)
	}

	return o
}
