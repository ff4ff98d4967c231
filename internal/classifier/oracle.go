// Package classifier filters normalized records through an external
// text-classification oracle: a direct stage deciding whether a title names
// a public figure, and an optional inference stage that names the figure
// most strongly associated with the topic.
package classifier

import (
	"context"
	"strings"
)

// Oracle is the external LLM-backed classification service, treated as a
// black box returning text or structured verdicts.
type Oracle interface {
	// Complete sends one system/user prompt pair and returns the raw
	// response text. When jsonMode is set, the oracle is asked for a
	// structured JSON object response.
	Complete(ctx context.Context, system, user string, jsonMode bool) (string, error)
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(body string) string {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
