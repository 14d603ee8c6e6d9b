package comms

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
)

func newTestLogger() *slog.Logger {
	return slog.Default()
}

func TestOllamaGatewaySendPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content-type: %s", r.Header.Get("Content-Type"))
		}

		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if len(req.Messages) != 2 {
			t.Fatalf("messages = %d, want 2", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != "You are Luminaria." {
			t.Errorf("system message = %+v", req.Messages[0])
		}
		if req.Messages[1].Role != "user" || req.Messages[1].Content != "hello" {
			t.Errorf("user message = %+v", req.Messages[1])
		}

		resp := ollamaChatResponse{
			Model:           "llama3.2",
			CreatedAt:       time.Now().UTC(),
			Message:         ollamaMessage{Role: "assistant", Content: "hi there"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       5,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "You are Luminaria.", newTestLogger())

	resp, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "hello"})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != "hi there" {
		t.Errorf("Content = %q, want %q", resp.Content, "hi there")
	}
	if resp.Model != "llama3.2" {
		t.Errorf("Model = %q, want %q", resp.Model, "llama3.2")
	}
	if resp.Usage.TotalTokens != 17 {
		t.Errorf("TotalTokens = %d, want 17", resp.Usage.TotalTokens)
	}
}

func TestOllamaGatewayTagsNonUserSenders(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		got = req.Messages[1].Content

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "llama3.2",
			Message: ollamaMessage{Role: "assistant", Content: "ok"},
			Done:    true,
		})
	}))
	defer server.Close()

	gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "p", newTestLogger())

	if _, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "report in", Sender: domain.SenderPilot}); err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if got != "[pilot] report in" {
		t.Errorf("tagged message = %q, want %q", got, "[pilot] report in")
	}
}

func TestOllamaGatewayPassesFormat(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"answer":{"type":"string"}},"required":["answer"]}`)

	var gotFormat json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotFormat = req.Format

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "llama3.2",
			Message: ollamaMessage{Role: "assistant", Content: `{"answer":"42"}`},
			Done:    true,
		})
	}))
	defer server.Close()

	gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "p", newTestLogger())

	resp, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "q", Format: schema})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != `{"answer":"42"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if len(gotFormat) == 0 {
		t.Error("format was not forwarded to the backend")
	}
}

func TestOllamaGatewayRejectsNonConformingOutput(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"answer":{"type":"string"}},"required":["answer"]}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "llama3.2",
			Message: ollamaMessage{Role: "assistant", Content: `{"wrong":"field"}`},
			Done:    true,
		})
	}))
	defer server.Close()

	gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "p", newTestLogger())

	_, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "q", Format: schema})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !domain.IsCommunicationError(err) {
		t.Errorf("error is not a CommunicationError: %v", err)
	}
}

func TestOllamaGatewayStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusInternalServerError, domain.ErrProviderError},
		{http.StatusBadGateway, domain.ErrProviderError},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"error":"nope"}`))
		}))

		gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "p", newTestLogger())
		_, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "q"})
		server.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error %v does not match %v", tt.status, err, tt.want)
		}
	}
}

func TestOllamaGatewayUnreachableBackend(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "p", newTestLogger())

	_, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("transport failure should classify as timeout, got %v", err)
	}
}

func TestOllamaGatewayMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "p", newTestLogger())

	_, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "malformed response") {
		t.Errorf("error = %v", err)
	}
}

func TestOllamaGatewayDefaultBaseURL(t *testing.T) {
	gw := NewOllamaGateway(config.CommsConfig{}, "llama3.2", "p", newTestLogger())
	if gw.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q", gw.baseURL)
	}
}

func TestOllamaGatewayIsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	}))

	gw := NewOllamaGateway(config.CommsConfig{BaseURL: server.URL}, "llama3.2", "p", newTestLogger())
	if !gw.IsHealthy(context.Background()) {
		t.Error("expected healthy")
	}

	server.Close()
	if gw.IsHealthy(context.Background()) {
		t.Error("expected unhealthy after server close")
	}
}

func TestOllamaGatewayName(t *testing.T) {
	gw := NewOllamaGateway(config.CommsConfig{}, "llama3.2", "p", newTestLogger())
	if gw.Name() != "ollama" {
		t.Errorf("Name = %q", gw.Name())
	}
}
