package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
)

func TestClient_Do_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(DefaultConfig())
	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_Do_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := Config{
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}
	client := New(cfg)

	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_SingleAttempt_DoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(SingleAttemptConfig(5 * time.Second))

	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	// The 500 response is returned to the caller unchanged, exactly once.
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	client := New(SingleAttemptConfig(time.Second))
	_, err := client.Get(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		contains   string
	}{
		{
			name:       "anthropic error shape",
			status:     http.StatusBadRequest,
			body:       `{"error":{"type":"invalid_request_error","message":"max_tokens required"}}`,
			wantStatus: http.StatusBadGateway,
			contains:   "max_tokens required",
		},
		{
			name:       "shopify string errors shape",
			status:     http.StatusBadRequest,
			body:       `{"errors":"Invalid API key or access token"}`,
			wantStatus: http.StatusBadGateway,
			contains:   "Invalid API key",
		},
		{
			name:       "shopify list errors shape",
			status:     http.StatusInternalServerError,
			body:       `{"errors":[{"message":"Internal error"}]}`,
			wantStatus: http.StatusBadGateway,
			contains:   "Internal error",
		},
		{
			name:       "unauthorized maps to 401",
			status:     http.StatusUnauthorized,
			body:       `{"errors":"unauthorized"}`,
			wantStatus: http.StatusUnauthorized,
			contains:   "unauthorized",
		},
		{
			name:       "throttled maps to 503",
			status:     http.StatusTooManyRequests,
			body:       `{"errors":"Throttled"}`,
			wantStatus: http.StatusServiceUnavailable,
			contains:   "throttling",
		},
		{
			name:       "unstructured body included as snippet",
			status:     http.StatusBadGateway,
			body:       "<html>bad gateway</html>",
			wantStatus: http.StatusBadGateway,
			contains:   "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.status,
				Body:       readCloser(tt.body),
			}

			err := ParseResponseError(resp, "shopify")
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, apperrors.HTTPStatus(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func readCloser(s string) *readCloserString {
	return &readCloserString{Reader: strings.NewReader(s)}
}

type readCloserString struct {
	*strings.Reader
}

func (r *readCloserString) Close() error { return nil }
