package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func TestLogger(t *testing.T) {
	t.Run("logs status and strips line breaks from the path", func(t *testing.T) {
		buf := captureLogs(t)

		next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		req.URL.Path = "/api/portfolio\r\nforged"
		w := httptest.NewRecorder()

		Logger(next).ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 to pass through, got %d", w.Code)
		}

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
		}
		if entry["path"] != "/api/portfolioforged" {
			t.Errorf("Expected sanitized path, got %v", entry["path"])
		}
		if entry["status"] != float64(http.StatusNotFound) {
			t.Errorf("Expected status 404, got %v", entry["status"])
		}
		if entry["level"] != "warn" {
			t.Errorf("Expected warn level for 4xx, got %v", entry["level"])
		}
	})

	t.Run("defaults to 200 when the handler never writes a header", func(t *testing.T) {
		buf := captureLogs(t)

		next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})

		Logger(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to decode log line: %v", err)
		}
		if entry["status"] != float64(http.StatusOK) || entry["level"] != "info" {
			t.Errorf("Unexpected log entry %v", entry)
		}
	})
}
