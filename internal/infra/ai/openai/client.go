package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/propvest/internal/domain/ai"
	"github.com/bryanwahyu/propvest/internal/infra/ai/prompt"
)

const (
	maxTokens    = 1024
	defaultModel = "gpt-4o-mini"
)

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// NewClientWithConfig is used for custom base URLs (proxies, tests).
func NewClientWithConfig(cfg openai.ClientConfig, model string) *Client {
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Generate implements ai.Generator with a JSON-mode chat completion.
func (c *Client) Generate(ctx context.Context, req ai.InsightRequest) (ai.Insight, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	chat := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(req)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		chat.MaxCompletionTokens = maxTokens
	} else {
		chat.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, chat)
	if err != nil {
		if quotaExceeded(err) {
			return ai.Insight{}, fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		}
		return ai.Insight{}, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return ai.Insight{}, ai.ErrEmptyResponse
	}
	return prompt.ParseInsight(resp.Choices[0].Message.Content)
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func quotaExceeded(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
