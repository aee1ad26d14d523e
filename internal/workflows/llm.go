package workflows

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt frames every therapeutic reply.
const SystemPrompt = `You are an AI therapist assistant. Your role is to:
1. Provide empathetic and supportive responses
2. Use evidence-based therapeutic techniques
3. Maintain professional boundaries
4. Monitor for risk factors
5. Guide users toward their therapeutic goals`

// StripFences removes markdown code fences the model wraps JSON in despite
// being told not to.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "\n```", "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeModelJSON strips fences and unmarshals into out.
func DecodeModelJSON(text string, out any) error {
	clean := StripFences(text)
	if clean == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("parse model JSON: %w", err)
	}
	return nil
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
