package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/retry"
)

func testClient(failures uint32) *Client {
	return New(Options{
		Name:            "test",
		Timeout:         time.Second,
		BreakerFailures: failures,
		BreakerTimeout:  time.Minute,
		Retry:           retry.Policy{MaxAttempts: 3, Initial: time.Millisecond, Max: time.Millisecond},
	})
}

func TestClient_GetJSON(t *testing.T) {
	t.Run("decodes a successful response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Write([]byte(`{"value": 12.5}`)) //nolint:errcheck // test server
		}))
		defer srv.Close()

		var out struct {
			Value float64 `json:"value"`
		}
		require.NoError(t, testClient(5).GetJSON(context.Background(), srv.URL, &out))
		assert.Equal(t, 12.5, out.Value)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{}`)) //nolint:errcheck // test server
		}))
		defer srv.Close()

		var out map[string]any
		require.NoError(t, testClient(5).GetJSON(context.Background(), srv.URL, &out))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry not found", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		var out map[string]any
		err := testClient(5).GetJSON(context.Background(), srv.URL, &out)
		assert.ErrorIs(t, err, apperrors.ErrUpstreamStatus)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("opens the breaker after consecutive failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := testClient(2)
		var out map[string]any
		err := c.GetJSON(context.Background(), srv.URL, &out)
		require.Error(t, err)

		// Two attempts trip the breaker; the third never reaches the server.
		assert.Equal(t, int32(2), calls.Load())

		err = c.GetJSON(context.Background(), srv.URL, &out)
		assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "expected open breaker, got %v", err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("reports malformed json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`not json`)) //nolint:errcheck // test server
		}))
		defer srv.Close()

		var out map[string]any
		assert.Error(t, testClient(5).GetJSON(context.Background(), srv.URL, &out))
	})
}
