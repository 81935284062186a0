package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// OpenAICompleter calls any OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter builds a completer for baseURL. A nil client uses the
// SDK's default HTTP client.
func NewOpenAICompleter(baseURL, apiKey, model string, client *http.Client) *OpenAICompleter {
	if model == "" {
		model = defaultOpenAIModelName
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// one attempt per request, callers never retry either
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}
	return &OpenAICompleter{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	p := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: param.NewOpt(CompletionTemperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, p, option.WithJSONSet("stream", false))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Provider: "openai", StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", &UpstreamError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: "openai", Err: fmt.Errorf("response has no choices")}
	}

	return resp.Choices[0].Message.Content, nil
}
