package comms

import (
	"encoding/json"
	"testing"
)

var answerSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"answer": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["answer"]
}`)

func TestValidateStructuredOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"conforming", `{"answer":"yes","confidence":0.9}`, false},
		{"minimal", `{"answer":"yes"}`, false},
		{"missing required", `{"confidence":0.9}`, true},
		{"wrong type", `{"answer":42}`, true},
		{"out of range", `{"answer":"yes","confidence":3}`, true},
		{"not json", `the answer is yes`, true},
		{"fenced json", "```json\n{\"answer\":\"yes\"}\n```", false},
		{"fenced no language tag", "```\n{\"answer\":\"yes\"}\n```", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStructuredOutput(tt.content, answerSchema)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStructuredOutputBadSchema(t *testing.T) {
	err := validateStructuredOutput(`{}`, json.RawMessage(`{"type": 42}`))
	if err == nil {
		t.Error("expected compile error for malformed schema")
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", `[1,2]`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
