package domain

import (
	"encoding/json"
	"time"
)

// Sender tags classify who a prompt is from. The gateway treats them as
// free-form; these are the values the core itself uses.
const (
	SenderUser    = "user"
	SenderPilot   = "pilot"
	SenderCreator = "creator"
)

// Prompt is a single request sent through a communication gateway.
type Prompt struct {
	Message string          `json:"message"`
	Sender  string          `json:"sender"`           // defaults to "user" when empty
	Format  json.RawMessage `json:"format,omitempty"` // optional structured-output JSON schema
}

// PromptResponse is the raw model reply to a Prompt.
type PromptResponse struct {
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn stored in a session transcript.
type Message struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
