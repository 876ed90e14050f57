// Package llm rewrites cue text through a chat model: it adds audio tags and
// produces shorter paraphrases for cues that do not fit their window.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"srtvoice/pkg/prompts"
)

var (
	ErrNoResponse    = errors.New("no response")
	ErrEmptyResponse = errors.New("empty response")
)

// Client sends one system and one user message and returns the raw JSON
// object the model answered with.
type Client interface {
	ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Rewriter struct {
	client  Client
	prompts *prompts.Prompts
}

func NewRewriter(client Client, p *prompts.Prompts) *Rewriter {
	return &Rewriter{client: client, prompts: p}
}

// AddTags returns text annotated with audio tags. prev and next are the
// neighboring cue texts in timeline order.
func (r *Rewriter) AddTags(ctx context.Context, text string, prev, next []string) (string, error) {
	prompt, err := r.prompts.RenderTag(prompts.NewTagParams(text, prev, next))
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	content, err := r.client.ChatJSON(ctx, r.prompts.System.Tag, prompt)
	if err != nil {
		return "", err
	}

	tagged, err := parseJSONString(content, []string{"tagged_text", "text", "result"})
	if err != nil {
		return "", err
	}
	slog.Debug("Tagged cue text", "original", text, "tagged", tagged)
	return tagged, nil
}

// Shorten asks for a paraphrase of about ratio times the current length.
func (r *Rewriter) Shorten(ctx context.Context, text string, ratio float64, prev, next []string) (string, error) {
	prompt, err := r.prompts.RenderShorten(prompts.NewShortenParams(text, ratio, prev, next))
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	content, err := r.client.ChatJSON(ctx, r.prompts.System.Shorten, prompt)
	if err != nil {
		return "", err
	}

	return parseJSONString(content, []string{"shortened_text", "text", "result"})
}

// parseJSONString reads the first non-empty string among keys, then any
// string field of the object.
func parseJSONString(content string, keys []string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var wrapped map[string]any
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	for _, key := range keys {
		if s, ok := wrapped[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}

	for _, v := range wrapped {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}

	return "", fmt.Errorf("no text found in response")
}
