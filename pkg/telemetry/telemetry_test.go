package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Disable: true})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInitStdoutExporter(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{ServiceName: "tandem-test", Writer: &buf})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	_, span := Tracer().Start(context.Background(), "test.span")
	End(span, nil)

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("test.span")) {
		t.Errorf("span not exported: %s", buf.String())
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TANDEM_TELEMETRY_DISABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "svc")

	cfg := ConfigFromEnv()
	if !cfg.Disable || cfg.ServiceName != "svc" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestEndNilSpan(t *testing.T) {
	End(nil, errors.New("ignored"))

	_, span := noop.NewTracerProvider().Tracer("t").Start(context.Background(), "s")
	End(span, errors.New("recorded"))
}
