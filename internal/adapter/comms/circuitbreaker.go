package comms

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

var _ domain.Gateway = (*CircuitBreakerGateway)(nil)

// CircuitBreakerGateway wraps a Gateway with circuit breaker protection.
// When the wrapped backend fails repeatedly, the circuit opens and
// subsequent sends fail fast without reaching the backend, preventing
// retry storms against a struggling model server.
type CircuitBreakerGateway struct {
	inner   domain.Gateway
	breaker *gobreaker.CircuitBreaker[*domain.PromptResponse]
	logger  *slog.Logger
}

// NewCircuitBreakerGateway wraps inner with a circuit breaker.
// Zero-valued cfg fields fall back to defaults.
func NewCircuitBreakerGateway(inner domain.Gateway, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerGateway {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	name := inner.Name()
	cb := gobreaker.NewCircuitBreaker[*domain.PromptResponse](gobreaker.Settings{
		Name:        "comms:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &CircuitBreakerGateway{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Name implements domain.Gateway.
func (g *CircuitBreakerGateway) Name() string { return g.inner.Name() }

// SendPrompt implements domain.Gateway. Sends route through the breaker.
func (g *CircuitBreakerGateway) SendPrompt(ctx context.Context, p domain.Prompt) (*domain.PromptResponse, error) {
	resp, err := g.breaker.Execute(func() (*domain.PromptResponse, error) {
		return g.inner.SendPrompt(ctx, p)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			// Fail-fast rejections present as protocol failures so that
			// callers classify an open circuit the same way as the backend
			// outage that tripped it.
			return nil, domain.NewCommunicationError(http.StatusServiceUnavailable,
				fmt.Sprintf("gateway %q circuit open: %v", g.inner.Name(), err))
		}
		return nil, err
	}
	return resp, nil
}

// State exposes the breaker state for health reporting.
func (g *CircuitBreakerGateway) State() gobreaker.State {
	return g.breaker.State()
}
