package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/kiraleos/reply-engine/internal/logger"
)

const (
	defaultGeminiModelName = "gemini-1.5-flash-latest"
	defaultOpenAIModelName = "gpt-4o-mini"

	// CompletionTemperature is the fixed sampling temperature for every provider.
	CompletionTemperature = 0.7
)

// Completer turns one rendered prompt into raw model text. Implementations make
// a single attempt and report every failure as *UpstreamError.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// UpstreamError reports that the completion service could not produce text.
type UpstreamError struct {
	Provider   string
	StatusCode int // zero when no HTTP response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s completion failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// GeminiCompleter talks to Gemini through the generative-ai-go client.
type GeminiCompleter struct {
	client *genai.Client
	model  string
	log    *zap.SugaredLogger
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModelName
	}
	return &GeminiCompleter{
		client: client,
		model:  model,
		log:    logger.NewLogger("gemini"),
	}, nil
}

func (s *GeminiCompleter) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.log.Warnw("error closing GenAI client", "error", err)
		} else {
			s.log.Info("GenAI client closed")
		}
	}
}

func (s *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(CompletionTemperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &UpstreamError{Provider: "gemini", Err: err}
	}

	return geminiText(resp, s.log)
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse, log *zap.SugaredLogger) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &UpstreamError{Provider: "gemini", Err: fmt.Errorf("empty response")}
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Debugw("gemini response part was not text", "type", fmt.Sprintf("%T", part))
		}
	}

	if responseText.Len() == 0 {
		return "", &UpstreamError{Provider: "gemini", Err: fmt.Errorf("no text in response")}
	}
	return responseText.String(), nil
}
