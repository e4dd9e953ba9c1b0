// Package account resolves bearer tokens into principals by calling an
// external account service. This service never authenticates users itself.
package account

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/sportifyhq/roster/internal/domain/user"
	"github.com/sportifyhq/roster/internal/platform/resilience"
	"github.com/sportifyhq/roster/internal/usecase"
)

var errIntrospectionTransient = crerr.New("account introspection transient failure")

type IntrospectionConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheMax       int
	CircuitBreaker resilience.CircuitBreakerConfig
}

// IntrospectionVerifier resolves tokens via POST {baseURL}/v1/introspect.
// Resolved principals are cached per token hash so hot clients do not hammer
// the account service.
type IntrospectionVerifier struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	cache          *principalCache
	logger         *slog.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

type introspectionResponse struct {
	Active      bool   `json:"active"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func NewIntrospectionVerifier(cfg IntrospectionConfig, logger *slog.Logger) *IntrospectionVerifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &IntrospectionVerifier{
		client:         &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		cache:          newPrincipalCache(cfg.CacheTTL, cfg.CacheMax),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (v *IntrospectionVerifier) VerifyToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, usecase.ErrUnauthorized
	}

	cacheKey := hashToken(token)
	if principal, ok := v.cache.Get(cacheKey); ok {
		return principal, nil
	}

	if v.circuitEnabled {
		if err := v.breaker.Allow(); err != nil {
			v.logger.WarnContext(ctx, "account circuit breaker rejected request", "state", v.breaker.State())
			return user.Principal{}, fmt.Errorf("%w: account service", usecase.ErrDependencyUnavailable)
		}
	}

	principal, err := v.introspect(ctx, token)
	if err != nil {
		if v.circuitEnabled && stderrors.Is(err, errIntrospectionTransient) {
			v.breaker.RecordFailure()
		}
		return user.Principal{}, err
	}
	if v.circuitEnabled {
		v.breaker.RecordSuccess()
	}

	v.cache.Set(cacheKey, principal)

	return principal, nil
}

func (v *IntrospectionVerifier) introspect(ctx context.Context, token string) (user.Principal, error) {
	body, err := sonic.Marshal(map[string]string{"token": token})
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "marshal introspection request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/introspect", strings.NewReader(string(body)))
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "create introspection request")
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "call account service"), errIntrospectionTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return user.Principal{}, usecase.ErrUnauthorized
	case resp.StatusCode >= 500:
		return user.Principal{}, crerr.Mark(crerr.Newf("account service returned status %d", resp.StatusCode), errIntrospectionTransient)
	default:
		return user.Principal{}, crerr.Newf("account service returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return user.Principal{}, crerr.Mark(crerr.Wrap(err, "read introspection response"), errIntrospectionTransient)
	}

	var out introspectionResponse
	if err := sonic.Unmarshal(payload, &out); err != nil {
		return user.Principal{}, crerr.Wrap(err, "decode introspection response")
	}
	if !out.Active || strings.TrimSpace(out.UserID) == "" {
		return user.Principal{}, usecase.ErrUnauthorized
	}

	return user.Principal{
		UserID:      out.UserID,
		DisplayName: out.DisplayName,
	}, nil
}
