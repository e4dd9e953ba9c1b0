package account

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sportifyhq/roster/internal/platform/resilience"
	"github.com/sportifyhq/roster/internal/usecase"
)

func testAccountServer(t *testing.T, calls *atomic.Int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/v1/introspect" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestVerifier(srv *httptest.Server, cfg IntrospectionConfig) *IntrospectionVerifier {
	cfg.BaseURL = srv.URL
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	return NewIntrospectionVerifier(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestIntrospectionVerifier_ResolvesAndCachesPrincipal(t *testing.T) {
	var calls atomic.Int32
	srv := testAccountServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer svc-key" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active":true,"userId":"user-42","displayName":"Sam"}`))
	})

	verifier := newTestVerifier(srv, IntrospectionConfig{
		APIKey:   "svc-key",
		CacheTTL: time.Minute,
		CacheMax: 100,
	})

	principal, err := verifier.VerifyToken(t.Context(), "token-abc")
	require.NoError(t, err)
	require.Equal(t, "user-42", principal.UserID)
	require.Equal(t, "Sam", principal.DisplayName)

	// Second lookup is served from the principal cache.
	principal, err = verifier.VerifyToken(t.Context(), "token-abc")
	require.NoError(t, err)
	require.Equal(t, "user-42", principal.UserID)
	require.Equal(t, int32(1), calls.Load())
}

func TestIntrospectionVerifier_RejectsInactiveToken(t *testing.T) {
	var calls atomic.Int32
	srv := testAccountServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"active":false}`))
	})

	verifier := newTestVerifier(srv, IntrospectionConfig{})

	_, err := verifier.VerifyToken(t.Context(), "revoked-token")
	require.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestIntrospectionVerifier_BlankTokenNeverCallsOut(t *testing.T) {
	var calls atomic.Int32
	srv := testAccountServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"active":true,"userId":"user-1"}`))
	})

	verifier := newTestVerifier(srv, IntrospectionConfig{})

	_, err := verifier.VerifyToken(t.Context(), "   ")
	require.ErrorIs(t, err, usecase.ErrUnauthorized)
	require.Equal(t, int32(0), calls.Load())
}

func TestIntrospectionVerifier_CircuitOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := testAccountServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	verifier := newTestVerifier(srv, IntrospectionConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 2; i++ {
		_, err := verifier.VerifyToken(t.Context(), "token-xyz")
		require.Error(t, err)
		require.NotErrorIs(t, err, usecase.ErrDependencyUnavailable)
	}

	// Threshold reached: the breaker now rejects without calling out.
	_, err := verifier.VerifyToken(t.Context(), "token-xyz")
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
	require.Equal(t, int32(2), calls.Load())
}

func TestInsecureVerifier_UsesTokenAsIdentity(t *testing.T) {
	verifier := NewInsecureVerifier()

	principal, err := verifier.VerifyToken(t.Context(), "user-7")
	require.NoError(t, err)
	require.Equal(t, "user-7", principal.UserID)

	_, err = verifier.VerifyToken(t.Context(), "")
	require.ErrorIs(t, err, usecase.ErrUnauthorized)
}
