package otel

import (
	"context"
	"testing"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{Traces: true}); err == nil {
		t.Fatalf("expected error without service name")
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = secret ,bad,=x, tenant=yield ")
	if len(got) != 2 || got["api-key"] != "secret" || got["tenant"] != "yield" {
		t.Fatalf("unexpected headers: %v", got)
	}
}
