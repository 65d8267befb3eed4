package media

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/agricagent/agricagent/config"
	"github.com/agricagent/agricagent/internal/logger"
)

func testLogger() logger.Logger {
	return logger.New(slog.LevelError, os.Stderr)
}

func TestFetch_SendsBasicAuthAndReturnsContentType(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "token" {
			t.Error("expected carrier basic auth on media fetch")
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer server.Close()

	f := NewCarrierFetcher(&config.CarrierConfig{
		AccountSID:     "AC123",
		AuthToken:      "token",
		TimeoutSeconds: 5,
	}, 1<<20, testLogger())

	data, contentType, err := f.Fetch(context.Background(), server.URL+"/media/abc")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("fetched bytes differ")
	}
	if contentType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", contentType)
	}
}

func TestFetch_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewCarrierFetcher(&config.CarrierConfig{TimeoutSeconds: 5}, 1<<20, testLogger())
	if _, _, err := f.Fetch(context.Background(), server.URL+"/media/gone"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestFetch_NoCredentialsSkipsAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			t.Error("no auth header expected without credentials")
		}
		w.Write([]byte("x"))
	}))
	defer server.Close()

	f := NewCarrierFetcher(&config.CarrierConfig{TimeoutSeconds: 5}, 1<<20, testLogger())
	if _, _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
}
