package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/core"
)

func TestTorchServeClient_Predict(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte(`[[0.1, 0.2], [0.3, 0.4]]`))
	}))
	defer srv.Close()

	c := NewTorchServeClient(srv.URL, "minilm", WithTorchServeAuth(&AuthConfig{Type: "bearer", Token: "tok"}))
	resp, err := c.Predict(context.Background(), &core.MLPredictRequest{
		Params: map[string]any{"texts": []string{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if gotPath != "/predictions/minilm" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if texts, _ := gotBody["texts"].([]any); len(texts) != 2 {
		t.Errorf("body = %v", gotBody)
	}
	outputs, ok := resp.Outputs.([]any)
	if !ok || len(outputs) != 2 {
		t.Errorf("Outputs = %#v", resp.Outputs)
	}
}

func TestTorchServeClient_EmptyRequest(t *testing.T) {
	c := NewTorchServeClient("http://127.0.0.1:0", "m")
	if _, err := c.Predict(context.Background(), &core.MLPredictRequest{}); !core.IsInvalidInput(err) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestTorchServeClient_BreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewTorchServeClient(srv.URL, "m", WithTorchServeBreaker(BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}))
	req := &core.MLPredictRequest{Params: map[string]any{"texts": []string{"x"}}}

	for i := 0; i < 4; i++ {
		_, err := c.Predict(context.Background(), req)
		if !core.IsUnavailable(err) {
			t.Fatalf("call %d err = %v, want UNAVAILABLE", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("backend called %d times, want 2 (breaker should reject the rest)", n)
	}
	if !strings.Contains(c.BreakerState(), "open") {
		t.Errorf("BreakerState() = %q, want open", c.BreakerState())
	}
}

func TestTorchServeClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"Healthy"}`))
	}))
	defer srv.Close()

	c := NewTorchServeClient(srv.URL, "m")
	if err := TestConnection(context.Background(), c); err != nil {
		t.Errorf("TestConnection: %v", err)
	}

	srv.Close()
	if err := TestConnection(context.Background(), c); !core.IsUnavailable(err) {
		t.Errorf("TestConnection after close err = %v, want UNAVAILABLE", err)
	}
}

func TestNewMLService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ServiceConfig
		wantErr bool
	}{
		{"nil", nil, true},
		{"no endpoint", &ServiceConfig{ModelName: "m"}, true},
		{"no model", &ServiceConfig{Endpoint: "http://x"}, true},
		{"unsupported", &ServiceConfig{Type: "kserve", Endpoint: "http://x", ModelName: "m"}, true},
		{"default type", &ServiceConfig{Endpoint: "http://x", ModelName: "m"}, false},
		{"ok", &ServiceConfig{Type: ServiceTypeTorchServe, Endpoint: "http://x", ModelName: "m"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMLService(tt.cfg, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
