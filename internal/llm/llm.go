// Package llm provides provider-agnostic access to generative backends used
// for field label translation and vision-based page recognition.
package llm

import (
	"context"
	"fmt"

	"github.com/platinummonkey/formpilot/internal/logger"
)

// Client is a text completion backend
type Client interface {
	// Complete sends a single prompt and returns the raw text reply
	Complete(ctx context.Context, prompt string) (string, error)

	// HealthCheck verifies that the provider is accessible and the model is available
	HealthCheck(ctx context.Context) error

	// Name returns the name of the provider (e.g., "ollama", "openai", "anthropic", "google")
	Name() string
}

// VisionClient is a backend that can also read words off a page image
type VisionClient interface {
	Client

	// RecognizePage returns the words on a PNG-encoded page image
	RecognizePage(ctx context.Context, png []byte) ([]Word, error)
}

// Word is a recognized word in page pixel coordinates
type Word struct {
	Text string `json:"text"`

	// BBox is [x, y, width, height] from the top-left corner
	BBox []float64 `json:"bbox"`

	// Confidence is 0.0-1.0 as reported by the model
	Confidence float64 `json:"confidence,omitempty"`
}

// ProviderType names a generative backend
type ProviderType string

// Supported providers
const (
	ProviderOllama    ProviderType = "ollama"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGoogle    ProviderType = "google"
)

type providerInfo struct {
	hosted      bool
	model       string
	visionModel string
}

var providers = map[ProviderType]providerInfo{
	ProviderOllama:    {hosted: false, model: "llama3.1", visionModel: "llava"},
	ProviderOpenAI:    {hosted: true, model: "gpt-4o-mini", visionModel: "gpt-4o"},
	ProviderAnthropic: {hosted: true, model: "claude-3-5-haiku-20241022", visionModel: "claude-3-5-sonnet-20241022"},
	ProviderGoogle:    {hosted: true, model: "gemini-1.5-flash", visionModel: "gemini-1.5-pro"},
}

// Config holds common configuration for all providers
type Config struct {
	// Provider is the LLM provider type (ollama, openai, anthropic, google)
	Provider ProviderType

	// Model is the text model used by Complete
	Model string

	// VisionModel is the model used by RecognizePage (defaults to Model)
	VisionModel string

	// Endpoint is the API endpoint (required for Ollama, optional for cloud providers)
	Endpoint string

	// APIKey is the API key for cloud providers
	APIKey string

	// MaxRetries is the SDK-level retry count
	MaxRetries int

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float64
}

func (c *Config) visionModel() string {
	if c.VisionModel != "" {
		return c.VisionModel
	}
	return c.Model
}

// NewClient creates a vision-capable client for cfg.Provider
func NewClient(ctx context.Context, cfg *Config, log *logger.Logger) (VisionClient, error) {
	if log == nil {
		log = logger.Get()
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, log), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, log), nil
	case ProviderGoogle:
		client, err := NewGoogleClient(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google client: %w", err)
		}
		return client, nil
	default:
		return NewOllamaClient(cfg, log), nil
	}
}

// ValidateConfig checks cfg before any client is built
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("llm config is nil")
	}

	info, ok := providers[cfg.Provider]
	switch {
	case !ok:
		return fmt.Errorf("unsupported provider %q (supported: ollama, openai, anthropic, google)", cfg.Provider)
	case info.hosted && cfg.APIKey == "":
		return fmt.Errorf("API key is required for %s provider", cfg.Provider)
	case !info.hosted && cfg.Endpoint == "":
		return fmt.Errorf("endpoint is required for %s provider", cfg.Provider)
	case cfg.Model == "" && cfg.VisionModel == "":
		return fmt.Errorf("model is required")
	case cfg.Temperature < 0 || cfg.Temperature > 2:
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %.2f", cfg.Temperature)
	case cfg.MaxRetries < 0:
		return fmt.Errorf("max retries must be non-negative, got %d", cfg.MaxRetries)
	}
	return nil
}

// DefaultModel returns the text model used when none is configured
func DefaultModel(provider ProviderType) string {
	return providers[provider].model
}

// DefaultVisionModel returns the vision model used when none is configured
func DefaultVisionModel(provider ProviderType) string {
	return providers[provider].visionModel
}
