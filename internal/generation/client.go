// Package generation sends assembled capture context to an OpenAI-compatible
// chat model. It is a thin boundary client: retries, rate limiting, and
// prompt engineering live with the caller or the upstream service.
package generation

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are an assistant with access to a timestamped log of the user's " +
	"recent on-screen activity. Answer questions using only the provided captures. " +
	"If the captures do not contain the answer, say so."

// Client wraps an OpenAI-compatible chat completion endpoint.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a generation client. baseURL may point at any
// OpenAI-compatible endpoint; empty model defaults to gpt-4o.
func NewClient(apiKey, baseURL, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Generate asks the model a question about the given capture context block
// (the Prompt Sink output).
func (c *Client) Generate(ctx context.Context, contextBlock, question string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Recent captures:\n" + contextBlock + "\n\nQuestion: " + question),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generation: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
