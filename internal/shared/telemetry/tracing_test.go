package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracingStdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingStdout, &buf)
	if err != nil {
		t.Fatalf("init tracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "intake.Generate")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "intake.Generate") {
		t.Fatalf("expected exported span, got %q", buf.String())
	}
}

func TestInitTracingOff(t *testing.T) {
	shutdown, err := InitTracing(TracingOff, nil)
	if err != nil {
		t.Fatalf("init tracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
