package services

import (
	"strings"

	"github.com/google/generative-ai-go/genai"
)

type textAccessor interface {
	Text() string
}

// ExtractText returns the best-effort reply text of a model response. It
// accepts the SDK response type as well as a generic decoded JSON object and
// never panics. Fallback order: first candidate's text parts, a Text()
// accessor, a plain "text" string field.
func ExtractText(resp any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	if t := candidateText(resp); t != "" {
		return t
	}

	if a, ok := resp.(textAccessor); ok {
		if t := a.Text(); t != "" {
			return t
		}
	}

	if m, ok := resp.(map[string]any); ok {
		if t, ok := m["text"].(string); ok {
			return t
		}
	}

	return ""
}

func candidateText(resp any) string {
	var b strings.Builder

	switch r := resp.(type) {
	case *genai.GenerateContentResponse:
		if r == nil || len(r.Candidates) == 0 {
			return ""
		}
		cand := r.Candidates[0]
		if cand == nil || cand.Content == nil {
			return ""
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}

	case map[string]any:
		candidates, _ := r["candidates"].([]any)
		if len(candidates) == 0 {
			return ""
		}
		cand, _ := candidates[0].(map[string]any)
		content, _ := cand["content"].(map[string]any)
		parts, _ := content["parts"].([]any)
		for _, p := range parts {
			part, _ := p.(map[string]any)
			t, _ := part["text"].(string)
			b.WriteString(t)
		}
	}

	return strings.TrimSpace(b.String())
}
