package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetMaxBodyBytes(t *testing.T) {
	old := maxBodyBytes
	defer SetMaxBodyBytes(old)

	SetMaxBodyBytes(2048)
	if maxBodyBytes != 2048 {
		t.Fatalf("maxBodyBytes=%d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("zero must reset to default, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(-5)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("negative must reset to default, got %d", maxBodyBytes)
	}
}

func TestSetCORSOptionsCopiesSlices(t *testing.T) {
	origins := []string{"https://example.com"}
	SetCORSOptions(true, origins, []string{"GET"}, []string{"Accept"})
	defer SetCORSOptions(false, nil, nil, nil)

	origins[0] = "mutated"
	if corsAllowedOrigins[0] != "https://example.com" {
		t.Fatalf("origins aliased caller slice: %v", corsAllowedOrigins)
	}
	if !corsEnabled {
		t.Fatalf("corsEnabled not set")
	}
}

func TestJoinContextsCancelsOnEither(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	b := context.Background()
	ctx, cancel := joinContexts(a, b)
	defer cancel()

	cancelA()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("joined context not canceled")
	}
}

func TestSetBaseContextNilResets(t *testing.T) {
	SetBaseContext(nil)
	if serverBaseCtx == nil {
		t.Fatalf("base context must never be nil")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"bogus": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%d want %d", in, got, want)
		}
	}
}

func TestRequestLogLevelOverrides(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/models?log=debug", nil)
	if requestLogLevel(req) != LevelDebug {
		t.Fatalf("query override ignored")
	}
	req = httptest.NewRequest(http.MethodGet, "/models?log=1", nil)
	if requestLogLevel(req) != LevelDebug {
		t.Fatalf("log=1 must mean debug")
	}
	req = httptest.NewRequest(http.MethodGet, "/models", nil)
	req.Header.Set("X-Log-Level", "error")
	if requestLogLevel(req) != LevelError {
		t.Fatalf("header override ignored")
	}
}
