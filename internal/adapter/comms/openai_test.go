package comms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
)

func TestOpenAIGatewaySendPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}

		var req openaiChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}

		resp := openaiChatResponse{Model: "gpt-4o-mini", Created: 1700000000}
		resp.Choices = []struct {
			Message openaiMessage `json:"message"`
		}{
			{Message: openaiMessage{Role: "assistant", Content: "hello back"}},
		}
		resp.Usage.PromptTokens = 10
		resp.Usage.CompletionTokens = 4
		resp.Usage.TotalTokens = 14
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gw := NewOpenAIGateway(config.CommsConfig{BaseURL: server.URL, APIKey: "sk-test"}, "gpt-4o-mini", "persona", newTestLogger())

	resp, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "hello"})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != "hello back" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 14 {
		t.Errorf("TotalTokens = %d, want 14", resp.Usage.TotalTokens)
	}
	if resp.CreatedAt.Unix() != 1700000000 {
		t.Errorf("CreatedAt = %v", resp.CreatedAt)
	}
}

func TestOpenAIGatewayNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiChatResponse{Model: "gpt-4o-mini"})
	}))
	defer server.Close()

	gw := NewOpenAIGateway(config.CommsConfig{BaseURL: server.URL}, "gpt-4o-mini", "p", newTestLogger())

	_, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Errorf("error = %v", err)
	}
}

func TestOpenAIGatewayStructuredOutputRequest(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"pick":{"type":"string"}},"required":["pick"]}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}

		resp := openaiChatResponse{Model: "gpt-4o-mini"}
		resp.Choices = []struct {
			Message openaiMessage `json:"message"`
		}{
			{Message: openaiMessage{Role: "assistant", Content: `{"pick":"lakers"}`}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gw := NewOpenAIGateway(config.CommsConfig{BaseURL: server.URL}, "gpt-4o-mini", "p", newTestLogger())

	resp, err := gw.SendPrompt(context.Background(), domain.Prompt{Message: "q", Format: schema})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != `{"pick":"lakers"}` {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestOpenAIGatewayDefaultBaseURL(t *testing.T) {
	gw := NewOpenAIGateway(config.CommsConfig{}, "gpt-4o-mini", "p", newTestLogger())
	if gw.baseURL != "https://api.openai.com/v1" {
		t.Errorf("baseURL = %q", gw.baseURL)
	}
}
