// Package observability sets up OpenTelemetry tracing.
package observability

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/denimozh/mathstutor-sub000/internal/logger"
)

type Config struct {
	Enabled     bool
	ServiceName string
	Version     string
	Environment string

	// SampleRatio is clamped to [0,1]. Zero means the default of 1.
	SampleRatio float64

	// Writer receives exported spans. Defaults to stdout.
	Writer io.Writer
}

// Init installs a global tracer provider and returns its shutdown func.
// When tracing is disabled the global no-op provider stays in place and
// the returned func does nothing.
func Init(ctx context.Context, cfg Config, log *logger.Logger) (func(context.Context) error, error) {
	log = logger.OrNop(log)
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "mathstutor"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	)

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", name)
	return tp.Shutdown, nil
}

// SampleRatioFromEnv reads OTEL_SAMPLER_RATIO, returning 0 when unset or
// invalid.
func SampleRatioFromEnv() float64 {
	v := strings.TrimSpace(os.Getenv("OTEL_SAMPLER_RATIO"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func sampleRatio(r float64) float64 {
	switch {
	case r == 0:
		return 1
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
