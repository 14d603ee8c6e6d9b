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

var _ domain.Gateway = (*OpenAIGateway)(nil)

// OpenAIGateway talks to any OpenAI-compatible chat completions API.
type OpenAIGateway struct {
	model       string
	personality string
	apiKey      string
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

// NewOpenAIGateway creates an OpenAI-compatible gateway.
func NewOpenAIGateway(cfg config.CommsConfig, model, personality string, logger *slog.Logger) *OpenAIGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIGateway{
		model:       model,
		personality: personality,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		client:      newHTTPClient(cfg),
		logger:      logger,
	}
}

// Name implements domain.Gateway.
func (g *OpenAIGateway) Name() string { return "openai" }

// SendPrompt implements domain.Gateway.
func (g *OpenAIGateway) SendPrompt(ctx context.Context, p domain.Prompt) (*domain.PromptResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "comms.send_prompt",
		trace.WithAttributes(
			tracer.StringAttr("comms.backend", g.Name()),
			tracer.StringAttr("comms.model", g.model),
			tracer.StringAttr("comms.sender", senderOf(p)),
		),
	)
	defer span.End()

	req := openaiChatRequest{
		Model: g.model,
		Messages: []openaiMessage{
			{Role: "system", Content: g.personality},
			{Role: "user", Content: taggedMessage(p)},
		},
	}
	if len(p.Format) > 0 {
		req.ResponseFormat = &openaiResponseFormat{
			Type: "json_schema",
			JSONSchema: openaiJSONSchema{
				Name:   "response",
				Schema: p.Format,
			},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if g.apiKey != "" {
		headers["Authorization"] = "Bearer " + g.apiKey
	}

	respBody, err := doJSONRequest(ctx, g.client, g.baseURL+"/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var chatResp openaiChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		tracer.RecordError(span, err)
		return nil, domain.NewCommunicationError(0, "malformed response: "+err.Error())
	}
	if len(chatResp.Choices) == 0 {
		return nil, domain.NewCommunicationError(0, "response contained no choices")
	}

	content := chatResp.Choices[0].Message.Content
	if len(p.Format) > 0 {
		if err := validateStructuredOutput(content, p.Format); err != nil {
			tracer.RecordError(span, err)
			return nil, domain.NewCommunicationError(0, "structured output invalid: "+err.Error())
		}
	}

	result := &domain.PromptResponse{
		Content: content,
		Model:   chatResp.Model,
		Usage: domain.Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
		CreatedAt: time.Unix(chatResp.Created, 0),
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

// --- OpenAI API wire types ---

type openaiChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema openaiJSONSchema `json:"json_schema"`
}

type openaiJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type openaiChatResponse struct {
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
