package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"

	sdk "go.opentelemetry.io/otel/sdk/metric"

	"github.com/looplj/shellstate/internal/log"
)

// NewProvider builds a MeterProvider from cfg. It returns nil when metrics are disabled.
func NewProvider(cfg Config) (*sdk.MeterProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	exporter, err := newExporter(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	log.Info(context.Background(), "metrics exporter configured",
		log.String("exporter", cfg.Exporter),
		log.Duration("interval", interval))

	return sdk.NewMeterProvider(
		sdk.WithReader(sdk.NewPeriodicReader(exporter, sdk.WithInterval(interval))),
	), nil
}

func newExporter(ctx context.Context, cfg Config) (sdk.Exporter, error) {
	switch cfg.Exporter {
	case "", ExporterStdout:
		return stdoutmetric.New()
	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}

		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		return otlpmetrichttp.New(ctx, opts...)
	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}

		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}

		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported metrics exporter: %s", cfg.Exporter)
	}
}

// SetupMetrics installs provider as the global MeterProvider.
func SetupMetrics(provider *sdk.MeterProvider) {
	if provider != nil {
		otel.SetMeterProvider(provider)
	}
}
