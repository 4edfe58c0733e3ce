package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), false, "tenders", "test", nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "stage")
	span.End()

	if id := TraceID(ctx); id != "" {
		t.Errorf("expected no trace id when disabled, got %s", id)
	}
}

func TestInit_Enabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), true, "tenders", "test", &buf)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "classify")
	if TraceID(ctx) == "" {
		t.Error("expected a trace id")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "classify") {
		t.Errorf("expected exported span, got %q", buf.String())
	}

	// restore no-op tracer for other tests
	Init(context.Background(), false, "", "", nil)
}
