package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/domain/ai"
	"github.com/bryanwahyu/propvest/internal/infra/ai/prompt"
)

const (
	maxTokens    = 1024
	defaultModel = "claude-haiku-4-5-20251001"
)

// Client implements ai.Generator on the Messages API.
type Client struct {
	client sdk.Client
	Model  string
}

// NewClient creates a client. Extra options (base URL, retries) are passed to the SDK.
func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{client: sdk.NewClient(opts...), Model: model}
}

func (c *Client) Generate(ctx context.Context, req ai.InsightRequest) (ai.Insight, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		System:    []sdk.TextBlockParam{{Text: prompt.GetSystemPrompt()}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt.GetUserPrompt(req))),
		},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return ai.Insight{}, fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		}
		return ai.Insight{}, eris.Wrap(err, "anthropic: create message")
	}

	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	zap.L().Debug("anthropic insight generated",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return prompt.ParseInsight(text.String())
}
