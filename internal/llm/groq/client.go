package groq

import (
	"context"
	"fmt"

	"github.com/conneroisu/groq-go"

	"srtvoice/internal/llm"
)

const DefaultModel = "llama-3.3-70b-versatile"

var _ llm.Client = (*Client)(nil)

type Client struct {
	client *groq.Client
	model  groq.ChatModel
}

// NewClient uses the public Groq endpoint when baseURL is empty.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	var (
		client *groq.Client
		err    error
	)
	if baseURL != "" {
		client, err = groq.NewClient(apiKey, groq.WithBaseURL(baseURL))
	} else {
		client, err = groq.NewClient(apiKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: client,
		model:  groq.ChatModel(model),
	}, nil
}

func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: systemPrompt},
			{Role: groq.RoleUser, Content: userPrompt},
		},
		ResponseFormat: &groq.ChatResponseFormat{Type: "json_object"},
	}

	resp, err := c.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrNoResponse
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", llm.ErrEmptyResponse
	}

	return content, nil
}
