package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if client := NewClient(Config{APIKey: "  "}); client != nil {
		t.Fatal("expected nil client for empty api key")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	var gotAuth, gotTitle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models") {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	t.Cleanup(server.Close)

	err := Ping(context.Background(), Config{BaseURL: server.URL, APIKey: "sk-test", SiteName: "sales-assistant"})
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotTitle != "sales-assistant" {
		t.Fatalf("X-Title header = %q", gotTitle)
	}
}

func TestPingRejectedKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	t.Cleanup(server.Close)

	if err := Ping(context.Background(), Config{BaseURL: server.URL, APIKey: "bad"}); err == nil {
		t.Fatal("expected error for rejected key")
	}
	if err := Ping(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestNewRequiresModel(t *testing.T) {
	t.Parallel()

	cfg := &Config{APIKey: "sk"}
	if _, err := cfg.New(context.Background()); err == nil {
		t.Fatal("expected error for empty model")
	}
}
