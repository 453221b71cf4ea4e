package observability

import (
	"context"
	"testing"
)

func TestInitDisabled(t *testing.T) {
	err := Init(Config{ServiceName: "test", Enabled: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "test-span")
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}
	span.End()

	if err := Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestInitStdoutExporter(t *testing.T) {
	err := Init(Config{ServiceName: "test", Enabled: true, ExporterType: "stdout"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer func() {
		_ = Shutdown(context.Background())
	}()

	_, span := StartSpan(context.Background(), "pipeline.generate")
	span.End()
}

func TestInitUnknownExporter(t *testing.T) {
	if err := Init(Config{Enabled: true, ExporterType: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("Authorization=Basic abc, X-Extra=1")
	if got["Authorization"] != "Basic abc" {
		t.Errorf("Authorization = %q", got["Authorization"])
	}
	if got["X-Extra"] != "1" {
		t.Errorf("X-Extra = %q", got["X-Extra"])
	}
	if parseHeaders("") != nil {
		t.Error("empty input should return nil")
	}
}
