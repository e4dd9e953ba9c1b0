// Package push forwards notification records to an external webhook so a
// push delivery system outside this service can reach offline users.
package push

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/sportifyhq/roster/internal/domain/notification"
	"github.com/sportifyhq/roster/internal/platform/resilience"
)

var errWebhookTransient = crerr.New("push webhook transient failure")

type WebhookConfig struct {
	URL            string
	AuthToken      string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookPublisher posts one JSON document per record. Delivery is
// best-effort; the caller logs and moves on.
type WebhookPublisher struct {
	client         *fasthttp.Client
	url            string
	authToken      string
	timeout        time.Duration
	logger         *slog.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

type webhookPayload struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipientId"`
	Kind        string `json:"kind"`
	GameID      string `json:"gameId,omitempty"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	CreatedAt   string `json:"createdAt"`
}

func NewWebhookPublisher(cfg WebhookConfig, logger *slog.Logger) *WebhookPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookPublisher{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		url:            strings.TrimSpace(cfg.URL),
		authToken:      strings.TrimSpace(cfg.AuthToken),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (p *WebhookPublisher) Send(ctx context.Context, rec notification.Record) error {
	if p.url == "" {
		return crerr.New("push webhook url is not configured")
	}
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "push webhook circuit breaker rejected request", "state", p.breaker.State())
			return fmt.Errorf("push webhook is temporarily unavailable: %w", err)
		}
	}

	body, err := sonic.Marshal(webhookPayload{
		ID:          rec.ID,
		RecipientID: rec.RecipientID,
		Kind:        string(rec.Kind),
		GameID:      rec.GameID,
		Title:       rec.Title,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return crerr.Wrap(err, "marshal push payload")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.Write(body); err != nil {
		return crerr.Wrap(err, "buffer push payload")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}
	req.SetBody(buf.B)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		p.recordFailure()
		return crerr.Mark(crerr.Wrap(err, "post push webhook"), errWebhookTransient)
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		p.recordSuccess()
		return nil
	case status >= 500 || status == fasthttp.StatusTooManyRequests:
		p.recordFailure()
		return crerr.Mark(crerr.Newf("push webhook returned status %d", status), errWebhookTransient)
	default:
		// Client errors count against us, not the webhook.
		p.recordSuccess()
		return crerr.Newf("push webhook rejected record: status %d", status)
	}
}

// IsTransient reports whether the failure is worth retrying later.
func IsTransient(err error) bool {
	return stderrors.Is(err, errWebhookTransient)
}

func (p *WebhookPublisher) recordSuccess() {
	if p.circuitEnabled {
		p.breaker.RecordSuccess()
	}
}

func (p *WebhookPublisher) recordFailure() {
	if p.circuitEnabled {
		p.breaker.RecordFailure()
	}
}
