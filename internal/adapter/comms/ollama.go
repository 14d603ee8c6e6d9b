package comms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/config"
	"pluto-ai/internal/infra/tracer"
)

// Compile-time interface assertion.
var _ domain.Gateway = (*OllamaGateway)(nil)

// OllamaGateway talks to an Ollama server over its native /api/chat
// endpoint. It is bound at construction to one (model, personality) pair:
// the personality travels as the system message on every send.
type OllamaGateway struct {
	model       string
	personality string
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

// NewOllamaGateway creates an Ollama-backed gateway.
func NewOllamaGateway(cfg config.CommsConfig, model, personality string, logger *slog.Logger) *OllamaGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaGateway{
		model:       model,
		personality: personality,
		baseURL:     baseURL,
		client:      newHTTPClient(cfg),
		logger:      logger,
	}
}

// Name implements domain.Gateway.
func (g *OllamaGateway) Name() string { return "ollama" }

// SendPrompt implements domain.Gateway.
func (g *OllamaGateway) SendPrompt(ctx context.Context, p domain.Prompt) (*domain.PromptResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "comms.send_prompt",
		trace.WithAttributes(
			tracer.StringAttr("comms.backend", g.Name()),
			tracer.StringAttr("comms.model", g.model),
			tracer.StringAttr("comms.sender", senderOf(p)),
		),
	)
	defer span.End()

	req := ollamaChatRequest{
		Model: g.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: g.personality},
			{Role: "user", Content: taggedMessage(p)},
		},
		Stream: false,
		Format: p.Format,
	}

	body, err := json.Marshal(req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := doJSONRequest(ctx, g.client, g.baseURL+"/api/chat", body, nil)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		tracer.RecordError(span, err)
		return nil, domain.NewCommunicationError(0, "malformed response: "+err.Error())
	}

	if len(p.Format) > 0 {
		if err := validateStructuredOutput(chatResp.Message.Content, p.Format); err != nil {
			tracer.RecordError(span, err)
			return nil, domain.NewCommunicationError(0, "structured output invalid: "+err.Error())
		}
	}

	result := &domain.PromptResponse{
		Content: chatResp.Message.Content,
		Model:   chatResp.Model,
		Usage: domain.Usage{
			PromptTokens:     chatResp.PromptEvalCount,
			CompletionTokens: chatResp.EvalCount,
			TotalTokens:      chatResp.PromptEvalCount + chatResp.EvalCount,
		},
		CreatedAt: chatResp.CreatedAt,
	}

	tracer.SetOK(span)
	g.logger.Debug("prompt completed",
		"backend", g.Name(),
		"model", result.Model,
		"sender", senderOf(p),
		"tokens", result.Usage.TotalTokens,
	)
	return result, nil
}

// IsHealthy checks if the Ollama server is reachable.
func (g *OllamaGateway) IsHealthy(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/", nil)
	if err != nil {
		return false
	}
	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return false
	}
	httpResp.Body.Close()
	return httpResp.StatusCode == http.StatusOK
}

// senderOf returns the prompt's sender tag with the "user" default applied.
func senderOf(p domain.Prompt) string {
	if p.Sender == "" {
		return domain.SenderUser
	}
	return p.Sender
}

// taggedMessage prefixes non-user senders into the message content so the
// backend can distinguish who is speaking. The gateway does not enforce a
// sender enum.
func taggedMessage(p domain.Prompt) string {
	sender := senderOf(p)
	if sender == domain.SenderUser {
		return p.Message
	}
	return fmt.Sprintf("[%s] %s", sender, p.Message)
}

// --- Ollama API wire types ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	CreatedAt       time.Time     `json:"created_at"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}
