package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/looplj/shellstate/internal/log"
)

const meterName = "github.com/looplj/shellstate"

// Instruments holds the counters emitted by observables and memoized loaders.
type Instruments struct {
	Commits            metric.Int64Counter
	SubscriberFailures metric.Int64Counter
	MemoHits           metric.Int64Counter
	MemoMisses         metric.Int64Counter
	MemoLoads          metric.Int64Counter
	MemoLoadFailures   metric.Int64Counter
}

// NewInstruments creates the counters on mp. A nil mp means the global provider.
// Instruments that fail to register fall back to no-ops.
func NewInstruments(mp metric.MeterProvider) *Instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(meterName)

	return &Instruments{
		Commits:            counter(meter, "observable.commits", "Completed observable commit cycles."),
		SubscriberFailures: counter(meter, "observable.subscriber_failures", "Subscriber callbacks that failed during a commit."),
		MemoHits:           counter(meter, "memo.hits", "Memoized calls served from the cache."),
		MemoMisses:         counter(meter, "memo.misses", "Memoized calls that missed or found an expired entry."),
		MemoLoads:          counter(meter, "memo.loads", "Producer invocations made by memoized calls."),
		MemoLoadFailures:   counter(meter, "memo.load_failures", "Producer invocations that returned an error."),
	}
}

// Noop returns instruments that record nothing.
func Noop() *Instruments {
	return NewInstruments(noop.NewMeterProvider())
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.Warn(context.Background(), "failed to register counter", log.String("name", name), log.Cause(err))
		return noop.Int64Counter{}
	}

	return c
}
