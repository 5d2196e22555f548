package observable

import (
	"context"
	"fmt"

	"github.com/looplj/shellstate/internal/log"
)

// SubscriberError describes a subscriber failure during a commit.
type SubscriberError struct {
	Observable   string
	Subscription uint64
	Version      uint64
	Err          error
	Panicked     bool
}

func (e *SubscriberError) Error() string {
	kind := "failed"
	if e.Panicked {
		kind = "panicked"
	}

	return fmt.Sprintf("observable %q: subscriber %d %s at version %d: %v",
		e.Observable, e.Subscription, kind, e.Version, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	return e.Err
}

// ErrorReporter receives subscriber failures. Implementations must not panic.
type ErrorReporter interface {
	ReportError(ctx context.Context, err error)
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(ctx context.Context, err error)

func (f ErrorReporterFunc) ReportError(ctx context.Context, err error) {
	f(ctx, err)
}

// LogReporter writes failures to the process logger.
type LogReporter struct{}

func (LogReporter) ReportError(ctx context.Context, err error) {
	log.Error(ctx, "observable subscriber failed", log.Cause(err))
}
