package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// AnthropicClient implements VisionClient for Anthropic's Claude API
type AnthropicClient struct {
	client      anthropic.Client
	logger      *logger.Logger
	model       string
	visionModel string
	temperature float64
}

// NewAnthropicClient creates a new Anthropic Claude client
func NewAnthropicClient(cfg *Config, log *logger.Logger) *AnthropicClient {
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

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		logger:      log,
		model:       cfg.Model,
		visionModel: cfg.visionModel(),
		temperature: cfg.Temperature,
	}
}

// Complete sends a text prompt to Claude
func (a *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	return a.send(ctx, a.model, 1024, anthropic.NewTextBlock(prompt))
}

// RecognizePage reads the words on a page image with Claude vision
func (a *AnthropicClient) RecognizePage(ctx context.Context, png []byte) ([]Word, error) {
	a.logger.WithFields("model", a.visionModel, "provider", "anthropic").Debug("Recognizing page with Anthropic Claude")

	content, err := a.send(ctx, a.visionModel, 4096,
		anthropic.NewTextBlock(pagePrompt),
		anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(png)),
	)
	if err != nil {
		return nil, err
	}

	words, err := parseWords(content)
	if err != nil {
		a.logger.WithFields("content", content).Debug("Failed to parse Anthropic OCR response")
		return nil, err
	}

	a.logger.WithFields("words", len(words)).Debug("Anthropic OCR completed")
	return words, nil
}

// send posts one user message and returns the first text block of the reply
func (a *AnthropicClient) send(ctx context.Context, model string, maxTokens int64, blocks ...anthropic.ContentBlockParamUnion) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	return anthropicText(resp)
}

func anthropicText(resp *anthropic.Message) (string, error) {
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("no response from Anthropic")
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

// HealthCheck verifies that the Anthropic API is accessible
func (a *AnthropicClient) HealthCheck(ctx context.Context) error {
	_, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 10,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("test")),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic health check failed: %w", err)
	}
	return nil
}

// Name returns the provider name
func (a *AnthropicClient) Name() string {
	return string(ProviderAnthropic)
}
