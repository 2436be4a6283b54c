package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/platinummonkey/formpilot/internal/logger"
	"google.golang.org/api/option"
)

// GoogleClient implements VisionClient for Google's Gemini API
type GoogleClient struct {
	client      *genai.Client
	logger      *logger.Logger
	model       string
	visionModel string
	temperature float64
}

// NewGoogleClient creates a new Google Gemini client
func NewGoogleClient(ctx context.Context, cfg *Config, log *logger.Logger) (*GoogleClient, error) {
	if log == nil {
		log = logger.Get()
	}

	opts := []option.ClientOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GoogleClient{
		client:      client,
		logger:      log,
		model:       cfg.Model,
		visionModel: cfg.visionModel(),
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends a text prompt to Gemini
func (g *GoogleClient) Complete(ctx context.Context, prompt string) (string, error) {
	genModel := g.client.GenerativeModel(g.model)
	genModel.SetTemperature(float32(g.temperature))

	resp, err := genModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return geminiText(resp)
}

// RecognizePage reads the words on a page image with Gemini vision
func (g *GoogleClient) RecognizePage(ctx context.Context, png []byte) ([]Word, error) {
	g.logger.WithFields("model", g.visionModel, "provider", "google").Debug("Recognizing page with Google Gemini")

	genModel := g.client.GenerativeModel(g.visionModel)
	genModel.SetTemperature(float32(g.temperature))
	genModel.ResponseMIMEType = "application/json"

	resp, err := genModel.GenerateContent(ctx, genai.Text(pagePrompt), genai.ImageData("png", png))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	content, err := geminiText(resp)
	if err != nil {
		return nil, err
	}

	words, err := parseWords(content)
	if err != nil {
		g.logger.WithFields("content", content).Debug("Failed to parse Gemini OCR response")
		return nil, err
	}

	g.logger.WithFields("words", len(words)).Debug("Gemini OCR completed")
	return words, nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok && txt != "" {
			return string(txt), nil
		}
	}
	return "", fmt.Errorf("no text content in Gemini response")
}

// HealthCheck verifies that the Gemini API is accessible
func (g *GoogleClient) HealthCheck(ctx context.Context) error {
	genModel := g.client.GenerativeModel(g.model)
	if _, err := genModel.GenerateContent(ctx, genai.Text("test")); err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	return nil
}

// Name returns the provider name
func (g *GoogleClient) Name() string {
	return string(ProviderGoogle)
}

// Close closes the Google client
func (g *GoogleClient) Close() error {
	return g.client.Close()
}
