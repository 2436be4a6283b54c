package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// OpenAIClient implements VisionClient for OpenAI's chat completions API
type OpenAIClient struct {
	client      openai.Client
	logger      *logger.Logger
	model       string
	visionModel string
	temperature float64
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg *Config, log *logger.Logger) *OpenAIClient {
	if log == nil {
		log = logger.Get()
	}

	// An unset retry count would leave the SDK default of 2 in place
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		logger:      log,
		model:       cfg.Model,
		visionModel: cfg.visionModel(),
		temperature: cfg.Temperature,
	}
}

// Complete sends a text prompt as a single user message
func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// RecognizePage reads the words on a page image with an OpenAI vision model
func (o *OpenAIClient) RecognizePage(ctx context.Context, png []byte) ([]Word, error) {
	o.logger.WithFields("model", o.visionModel, "provider", "openai").Debug("Recognizing page with OpenAI")

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.visionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(pagePrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(png)),
				}),
			}),
		},
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	words, err := parseWords(content)
	if err != nil {
		o.logger.WithFields("content", content).Debug("Failed to parse OpenAI OCR response")
		return nil, err
	}

	o.logger.WithFields("words", len(words)).Debug("OpenAI OCR completed")
	return words, nil
}

// HealthCheck verifies that the OpenAI API is accessible
func (o *OpenAIClient) HealthCheck(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model); err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	return nil
}

// Name returns the provider name
func (o *OpenAIClient) Name() string {
	return string(ProviderOpenAI)
}
