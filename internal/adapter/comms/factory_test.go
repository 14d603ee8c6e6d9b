package comms

import (
	"testing"

	"pluto-ai/internal/infra/config"
)

func TestNewGatewayFactory(t *testing.T) {
	tests := []struct {
		commsType string
		wantName  string
	}{
		{"", "ollama"},
		{"ollama", "ollama"},
		{"openai", "openai"},
	}

	for _, tt := range tests {
		factory, err := NewGatewayFactory(config.CommsConfig{Type: tt.commsType}, newTestLogger())
		if err != nil {
			t.Fatalf("type %q: %v", tt.commsType, err)
		}
		gw := factory("llama3.2", "persona")
		if gw.Name() != tt.wantName {
			t.Errorf("type %q: gateway name = %q, want %q", tt.commsType, gw.Name(), tt.wantName)
		}
	}
}

func TestNewGatewayFactoryUnknownType(t *testing.T) {
	if _, err := NewGatewayFactory(config.CommsConfig{Type: "carrier-pigeon"}, newTestLogger()); err == nil {
		t.Error("expected error for unknown backend type")
	}
}

func TestNewGatewayFactoryWrapsBreaker(t *testing.T) {
	cfg := config.CommsConfig{Type: "ollama"}
	cfg.CircuitBreaker.Enabled = true

	factory, err := NewGatewayFactory(cfg, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := factory("llama3.2", "p").(*CircuitBreakerGateway); !ok {
		t.Error("expected circuit breaker wrapping when enabled")
	}
}
