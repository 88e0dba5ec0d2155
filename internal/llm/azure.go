// Package llm talks to the hosted Azure OpenAI deployment.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// Client runs single-turn chat completions against one Azure deployment.
type Client struct {
	client     openai.Client
	deployment string
}

// NewAzureClient builds a client for endpoint/apiVersion authenticated with key.
func NewAzureClient(endpoint, apiVersion, key, deployment string, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(key),
		option.WithMaxRetries(1),
	}
	return &Client{
		client:     openai.NewClient(append(base, opts...)...),
		deployment: deployment,
	}
}

// Complete sends the system block and one user message, with no prior history, and
// returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("azure chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty response from azure chat completion")
	}
	return resp.Choices[0].Message.Content, nil
}
