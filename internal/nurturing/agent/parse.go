package agent

import (
	"bytes"
	"encoding/json"
	"strings"
)

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON output in one.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// decodeStrict unmarshals JSON rejecting unknown fields, so schema drift in
// model output surfaces as an error instead of silently dropping data.
func decodeStrict(raw string, target interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
