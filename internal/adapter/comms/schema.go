package comms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// validateStructuredOutput checks that a model reply conforms to the JSON
// schema the prompt requested. Models fenced-code-wrap JSON sometimes, so
// fences are stripped before parsing.
func validateStructuredOutput(content string, schemaBytes json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaBytes)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var data any
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}

	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("schema validation failed: %s", result.Error())
	}
	return nil
}

// stripCodeFences removes a surrounding markdown code fence, if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.ContainsAny(s[:idx], "{[") {
		// drop a language tag like "json" on the opening fence
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
