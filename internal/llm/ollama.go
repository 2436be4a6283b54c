package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/formpilot/internal/logger"
)

const (
	// DefaultOllamaEndpoint is where a local Ollama server listens
	DefaultOllamaEndpoint = "http://localhost:11434"

	ollamaTimeout    = 5 * time.Minute
	ollamaRetryDelay = time.Second
)

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type ollamaPullResponse struct {
	Status string `json:"status"`
}

// OllamaClient talks to an Ollama server over its HTTP API
type OllamaClient struct {
	endpoint    string
	httpClient  *http.Client
	logger      *logger.Logger
	model       string
	visionModel string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

// NewOllamaClient creates a new Ollama-backed client
func NewOllamaClient(cfg *Config, log *logger.Logger) *OllamaClient {
	if log == nil {
		log = logger.Get()
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}

	return &OllamaClient{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: ollamaTimeout},
		logger:      log,
		model:       cfg.Model,
		visionModel: cfg.visionModel(),
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  ollamaRetryDelay,
	}
}

// Complete runs a text prompt on the configured model
func (o *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.generate(ctx, &ollamaGenerateRequest{Model: o.model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}

// RecognizePage reads the words on a page image with an Ollama vision model
func (o *OllamaClient) RecognizePage(ctx context.Context, png []byte) ([]Word, error) {
	resp, err := o.generate(ctx, &ollamaGenerateRequest{
		Model:  o.visionModel,
		Prompt: pagePrompt,
		Images: []string{base64.StdEncoding.EncodeToString(png)},
		Format: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recognize page: %w", err)
	}

	words, err := parseWords(resp.Response)
	if err != nil {
		o.logger.WithFields("response", resp.Response).Debug("Unparseable vision reply")
		return nil, err
	}
	return words, nil
}

// HealthCheck verifies that Ollama is accessible and pulls missing models
func (o *OllamaClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not accessible: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status: %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := o.call(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return err
	}
	installed := make(map[string]bool, len(tags.Models))
	for _, m := range tags.Models {
		installed[m.Name] = true
	}

	for _, model := range uniqueModels(o.model, o.visionModel) {
		if installed[model] || installed[model+":latest"] {
			continue
		}
		o.logger.WithFields("model", model).Info("Model not found, pulling...")
		var pull ollamaPullResponse
		if err := o.call(ctx, http.MethodPost, "/api/pull", &ollamaPullRequest{Name: model}, &pull); err != nil {
			return fmt.Errorf("failed to pull model %s: %w", model, err)
		}
		o.logger.WithFields("model", model, "status", pull.Status).Info("Model pulled")
	}

	return nil
}

// Name returns the provider name
func (o *OllamaClient) Name() string {
	return string(ProviderOllama)
}

func (o *OllamaClient) generate(ctx context.Context, req *ollamaGenerateRequest) (*ollamaGenerateResponse, error) {
	req.Options = map[string]any{"temperature": o.temperature}

	var resp ollamaGenerateResponse
	if err := o.call(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call sends one JSON request. Transport failures and 5xx replies are retried
// up to maxRetries times with exponential backoff.
func (o *OllamaClient) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			delay := o.retryDelay << (attempt - 1)
			o.logger.WithFields("attempt", attempt, "delay", delay).Debug("Retrying Ollama request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		retry, err := o.do(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("request failed after %d attempts: %w", o.maxRetries+1, lastErr)
}

// do performs a single request and reports whether a failure is retryable
func (o *OllamaClient) do(ctx context.Context, method, path string, payload []byte, out any) (bool, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, o.endpoint+path, reqBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return resp.StatusCode >= 500, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return false, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return false, nil
}

func uniqueModels(models ...string) []string {
	seen := make(map[string]bool, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
