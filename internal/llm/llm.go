// Package llm implements the grading collaborator: a single batched
// request to an OpenAI-compatible chat API covering every free-text
// item of one submission.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gradescan/gradescan/internal/model"
)

// jsonObjectRe greedily captures the first brace-delimited JSON object
// in the response text, tolerating prose around it.
var jsonObjectRe = regexp.MustCompile(`(?s)(\{.*\})`)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a grading client. An empty baseURL uses the default
// OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// GradeBatch submits all items in one prompt and parses the structured
// response. Any transport or parse failure is returned to the caller,
// which falls back to local estimation.
func (c *Client) GradeBatch(ctx context.Context, items []model.GradingItem) (map[string]model.ItemScore, error) {
	if len(items) == 0 {
		return map[string]model.ItemScore{}, nil
	}

	prompt := buildBatchPrompt(items)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("grading API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("grading API returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("grading response", "raw", raw)

	return parseBatchResponse(raw)
}

// parseBatchResponse extracts the first JSON object from the raw model
// output and decodes it as a map of item ID to score.
func parseBatchResponse(raw string) (map[string]model.ItemScore, error) {
	m := jsonObjectRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("no JSON object in grading response")
	}

	var scores map[string]model.ItemScore
	if err := json.Unmarshal([]byte(m[1]), &scores); err != nil {
		return nil, fmt.Errorf("parse grading response: %w", err)
	}
	return scores, nil
}
