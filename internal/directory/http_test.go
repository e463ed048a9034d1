package directory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewHTTP(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		h := NewHTTP("https://accounts.example.com/", "test-key")

		if h.baseURL != "https://accounts.example.com" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", h.baseURL)
		}
		if h.apiKey != "test-key" {
			t.Errorf("apiKey = %q, want %q", h.apiKey, "test-key")
		}
		if h.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", h.httpClient.Timeout, 5*time.Second)
		}
		if h.maxRetries != 2 {
			t.Errorf("maxRetries = %d, want %d", h.maxRetries, 2)
		}
		if h.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		h := NewHTTP("https://accounts.example.com", "",
			WithTimeout(time.Second),
			WithRetries(5, 10*time.Millisecond),
			WithLogger(logger),
		)
		if h.httpClient.Timeout != time.Second {
			t.Errorf("Timeout = %v, want %v", h.httpClient.Timeout, time.Second)
		}
		if h.maxRetries != 5 || h.retryBackoff != 10*time.Millisecond {
			t.Errorf("retries = %d/%v, want 5/10ms", h.maxRetries, h.retryBackoff)
		}
		if h.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		h := NewHTTP("https://accounts.example.com", "", WithHTTPClient(custom))
		if h.httpClient != custom {
			t.Error("custom HTTP client not set")
		}
	})
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 503, Message: "Service Unavailable"}
	if err.Error() != "account service error 503: Service Unavailable" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code int
		want bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		if got := (&APIError{StatusCode: tt.code}).IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestHTTPAccountExists(t *testing.T) {
	var gotAuth, gotPath atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotPath.Store(r.URL.EscapedPath())

		switch strings.TrimPrefix(r.URL.Path, "/accounts/") {
		case "alice", "cloud user":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"identity":"alice"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	h := NewHTTP(server.URL, "secret", WithRetries(0, time.Millisecond))
	ctx := context.Background()

	exists, err := h.AccountExists(ctx, "alice")
	if err != nil || !exists {
		t.Errorf("AccountExists(alice) = %v, %v, want true, nil", exists, err)
	}
	if gotAuth.Load() != "Bearer secret" {
		t.Errorf("Authorization = %v, want Bearer secret", gotAuth.Load())
	}

	exists, err = h.AccountExists(ctx, "mallory")
	if err != nil || exists {
		t.Errorf("AccountExists(mallory) = %v, %v, want false, nil", exists, err)
	}

	exists, err = h.AccountExists(ctx, "cloud user")
	if err != nil || !exists {
		t.Errorf("AccountExists(cloud user) = %v, %v, want true, nil", exists, err)
	}
	if gotPath.Load() != "/accounts/cloud%20user" {
		t.Errorf("path = %v, want escaped identity", gotPath.Load())
	}
}

func TestHTTPRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := NewHTTP(server.URL, "", WithRetries(3, time.Millisecond))

	exists, err := h.AccountExists(context.Background(), "alice")
	if err != nil || !exists {
		t.Errorf("AccountExists() = %v, %v, want true, nil", exists, err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestHTTPGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	h := NewHTTP(server.URL, "", WithRetries(2, time.Millisecond))

	_, err := h.AccountExists(context.Background(), "alice")
	if err == nil {
		t.Fatal("AccountExists() expected error, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("error = %v, want wrapped APIError 500", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestHTTPDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	h := NewHTTP(server.URL, "wrong", WithRetries(3, time.Millisecond))

	if _, err := h.AccountExists(context.Background(), "alice"); err == nil {
		t.Error("AccountExists() expected error for 401, got nil")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestHTTPContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	h := NewHTTP(server.URL, "", WithRetries(5, time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.AccountExists(ctx, "alice")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}
