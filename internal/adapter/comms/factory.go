package comms

import (
	"fmt"
	"log/slog"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
)

// NewGatewayFactory returns a factory that builds a gateway bound to a
// (model, personality) pair, selecting the backend from config. The
// circuit breaker wrap is applied when enabled.
func NewGatewayFactory(cfg config.CommsConfig, logger *slog.Logger) (func(model, personality string) domain.Gateway, error) {
	switch cfg.Type {
	case "", "ollama", "openai":
	default:
		return nil, fmt.Errorf("unknown comms backend %q", cfg.Type)
	}

	return func(model, personality string) domain.Gateway {
		var gw domain.Gateway
		switch cfg.Type {
		case "openai":
			gw = NewOpenAIGateway(cfg, model, personality, logger)
		default:
			gw = NewOllamaGateway(cfg, model, personality, logger)
		}
		if cfg.CircuitBreaker.Enabled {
			gw = NewCircuitBreakerGateway(gw, cfg.CircuitBreaker, logger)
		}
		return gw
	}, nil
}
