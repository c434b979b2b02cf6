package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jackzampolin/folio/internal/server/endpoints"
	"github.com/jackzampolin/folio/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestServer_RequireInit(t *testing.T) {
	srv, err := New(Config{Logger: quietLogger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/api/catalog", http.StatusOK},
		{"/ready", http.StatusServiceUnavailable},
		{"/api/products", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestServer_WithStore(t *testing.T) {
	st := store.New(store.NewMemoryBackend(), store.Limits{})
	srv, err := New(Config{Store: st, Logger: quietLogger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/products = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	var status endpoints.StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Store.Health != "healthy" {
		t.Errorf("store health = %q", status.Store.Health)
	}
	if len(status.Providers.LLM) != 0 {
		t.Errorf("providers without config = %v", status.Providers.LLM)
	}

	// The generation budget plus headroom.
	if got := srv.httpServer.WriteTimeout; got <= 120*time.Second {
		t.Errorf("WriteTimeout = %v, want more than the batch timeout", got)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	st := store.New(store.NewMemoryBackend(), store.Limits{})
	srv, err := New(Config{Port: "0", Store: st, Logger: quietLogger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	baseURL := ""
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if srv.IsRunning() {
			baseURL = fmt.Sprintf("http://%s", srv.Addr())
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if baseURL == "" {
		cancel()
		t.Fatal("server did not start")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	var resp *http.Response
	for time.Now().Before(deadline) {
		resp, err = client.Get(baseURL + "/ready")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("GET /ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready = %d", resp.StatusCode)
	}
	client.CloseIdleConnections()

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if srv.IsRunning() {
		t.Error("still running after shutdown")
	}
}
