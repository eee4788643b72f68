package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracing modes accepted by InitTracing.
const (
	TracingOff    = "off"
	TracingStdout = "stdout"
)

// InitTracing installs the global tracer provider. With TracingStdout spans are
// written as JSON to w (stderr when nil). The returned function flushes and
// stops the provider.
func InitTracing(mode string, w io.Writer) (func(context.Context) error, error) {
	if mode != TracingStdout {
		return func(context.Context) error { return nil }, nil
	}
	if w == nil {
		w = os.Stderr
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	Info("telemetry.tracing_enabled", map[string]any{"mode": mode})
	return tp.Shutdown, nil
}
