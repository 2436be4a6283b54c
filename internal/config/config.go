// Package config provides configuration management for the formpilot application.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for formpilot.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat is "console" or "json"
	LogFormat string

	// LogFile additionally appends log entries to this file
	LogFile string

	// RulesFile optionally replaces the embedded field detection rule table
	RulesFile string

	// OCR configuration for scanned documents
	OCR OCRConfig

	// LLM configuration for label translation and vision OCR
	LLM LLMConfig

	// Translation configuration for field labels
	Translation TranslationConfig

	// Mapping holds the fuzzy matcher scoring weights
	Mapping MappingConfig

	// Server holds HTTP listener settings for "formpilot serve"
	Server ServerConfig
}

// OCRConfig holds text extraction settings
type OCRConfig struct {
	// Engine selects the recognizer: tesseract, vision or none
	Engine string

	// Languages is passed to tesseract (e.g., "deu+eng")
	Languages string

	// DPI is the rasterization resolution for scanned pages
	DPI int

	// MinConfidence drops recognized words at or below this confidence (0-100)
	MinConfidence float64

	// PreferTextLayer uses the embedded PDF text when present instead of OCR
	PreferTextLayer bool
}

// LLMConfig holds configuration for generative backends
type LLMConfig struct {
	// Provider is the LLM provider to use (ollama, openai, anthropic, google)
	Provider string

	// Model is the text model used for label translation
	Model string

	// VisionModel is the model used when the OCR engine is "vision"
	VisionModel string

	// Endpoint is the API endpoint (primarily for Ollama)
	Endpoint string

	// APIKey is the API key for cloud providers. Populated from:
	// 1. macOS Keychain (if UseKeychain is true)
	// 2. Environment variables:
	//    - OPENAI_API_KEY for OpenAI
	//    - ANTHROPIC_API_KEY for Anthropic
	//    - GOOGLE_API_KEY or GEMINI_API_KEY for Google
	APIKey string

	// MaxRetries is the SDK-level retry count. Translation failures fall back
	// locally, so the default is 0.
	MaxRetries int

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float64

	// UseKeychain enables macOS Keychain lookup for API keys (macOS only)
	UseKeychain bool

	// KeychainServicePrefix is the prefix for keychain service names
	// Service names will be: {prefix}-{provider} (e.g., "formpilot-openai")
	KeychainServicePrefix string
}

// TranslationConfig holds label translation settings
type TranslationConfig struct {
	// Enabled turns on the generative backend. When false only the local
	// dictionary and formatting are used.
	Enabled bool

	// CacheFile persists translated labels between runs (empty = memory only)
	CacheFile string
}

// MappingConfig exposes the matcher weights for tuning
type MappingConfig struct {
	ExactScore        float64
	FieldContainsBase float64
	PatternContains   float64
	NormalizedExact   float64
	NormalizedField   float64
	NormalizedPattern float64
	AbbreviationScore float64
	SpecificityBonus  float64
	PenaltyFactor     float64
	AcceptThreshold   float64
	HintScore         float64
	HintBypass        float64
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host        string
	Port        int
	MaxUploadMB int64
	CORSOrigin  string
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from multiple sources and returns a Config instance.
// Sources are checked in this order: CLI flags > env vars > config file > defaults
func Load(configFile string) (*Config, error) {
	return LoadWithViper(viper.New(), configFile)
}

// LoadWithViper is Load on a caller-supplied viper instance, so commands can
// bind their flags before the configuration is resolved.
func LoadWithViper(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".formpilot")
			v.SetConfigType("yaml")
		}
	}

	// Read config file if it exists (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// An explicit --config path must exist
			if configFile != "" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("FORMPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	config := &Config{
		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
		LogFile:   v.GetString("log-file"),
		RulesFile: v.GetString("rules-file"),
		OCR: OCRConfig{
			Engine:          v.GetString("ocr-engine"),
			Languages:       v.GetString("ocr-languages"),
			DPI:             v.GetInt("ocr-dpi"),
			MinConfidence:   v.GetFloat64("ocr-min-confidence"),
			PreferTextLayer: v.GetBool("ocr-prefer-text-layer"),
		},
		LLM: LLMConfig{
			Provider:              v.GetString("llm-provider"),
			Model:                 v.GetString("llm-model"),
			VisionModel:           v.GetString("llm-vision-model"),
			Endpoint:              v.GetString("llm-endpoint"),
			MaxRetries:            v.GetInt("llm-max-retries"),
			Temperature:           v.GetFloat64("llm-temperature"),
			UseKeychain:           v.GetBool("llm-use-keychain"),
			KeychainServicePrefix: v.GetString("llm-keychain-service-prefix"),
		},
		Translation: TranslationConfig{
			Enabled:   v.GetBool("translation-enabled"),
			CacheFile: v.GetString("translation-cache-file"),
		},
		Mapping: MappingConfig{
			ExactScore:        v.GetFloat64("mapping-exact-score"),
			FieldContainsBase: v.GetFloat64("mapping-field-contains-score"),
			PatternContains:   v.GetFloat64("mapping-pattern-contains-score"),
			NormalizedExact:   v.GetFloat64("mapping-normalized-exact-score"),
			NormalizedField:   v.GetFloat64("mapping-normalized-field-score"),
			NormalizedPattern: v.GetFloat64("mapping-normalized-pattern-score"),
			AbbreviationScore: v.GetFloat64("mapping-abbreviation-score"),
			SpecificityBonus:  v.GetFloat64("mapping-specificity-bonus"),
			PenaltyFactor:     v.GetFloat64("mapping-penalty-factor"),
			AcceptThreshold:   v.GetFloat64("mapping-accept-threshold"),
			HintScore:         v.GetFloat64("mapping-hint-score"),
			HintBypass:        v.GetFloat64("mapping-hint-bypass"),
		},
		Server: ServerConfig{
			Host:        v.GetString("server-host"),
			Port:        v.GetInt("server-port"),
			MaxUploadMB: v.GetInt64("server-max-upload-mb"),
			CORSOrigin:  v.GetString("server-cors-origin"),
		},
	}

	config.LLM.APIKey = loadAPIKeyForProvider(config.LLM.Provider, config.LLM.UseKeychain, config.LLM.KeychainServicePrefix)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("rules-file", "")

	v.SetDefault("ocr-engine", "tesseract")
	v.SetDefault("ocr-languages", "deu+eng")
	v.SetDefault("ocr-dpi", 144)
	v.SetDefault("ocr-min-confidence", 30.0)
	v.SetDefault("ocr-prefer-text-layer", true)

	v.SetDefault("llm-provider", "ollama")
	v.SetDefault("llm-model", "llama3.1")
	v.SetDefault("llm-vision-model", "llava")
	v.SetDefault("llm-endpoint", "http://localhost:11434")
	v.SetDefault("llm-max-retries", 0)
	v.SetDefault("llm-temperature", 0.0)
	v.SetDefault("llm-use-keychain", false)
	v.SetDefault("llm-keychain-service-prefix", "formpilot")

	v.SetDefault("translation-enabled", false)
	v.SetDefault("translation-cache-file", filepath.Join(home, ".formpilot-translations.json"))

	v.SetDefault("mapping-exact-score", 100.0)
	v.SetDefault("mapping-field-contains-score", 80.0)
	v.SetDefault("mapping-pattern-contains-score", 60.0)
	v.SetDefault("mapping-normalized-exact-score", 90.0)
	v.SetDefault("mapping-normalized-field-score", 70.0)
	v.SetDefault("mapping-normalized-pattern-score", 50.0)
	v.SetDefault("mapping-abbreviation-score", 30.0)
	v.SetDefault("mapping-specificity-bonus", 20.0)
	v.SetDefault("mapping-penalty-factor", 0.5)
	v.SetDefault("mapping-accept-threshold", 40.0)
	v.SetDefault("mapping-hint-score", 95.0)
	v.SetDefault("mapping-hint-bypass", 90.0)

	v.SetDefault("server-host", "127.0.0.1")
	v.SetDefault("server-port", 8088)
	v.SetDefault("server-max-upload-mb", 25)
	v.SetDefault("server-cors-origin", "*")
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	if c.RulesFile != "" {
		c.RulesFile = expandHome(c.RulesFile)
		if _, err := os.Stat(c.RulesFile); err != nil {
			return fmt.Errorf("rules-file %s: %w", c.RulesFile, err)
		}
	}

	if err := c.validateOCRConfig(); err != nil {
		return fmt.Errorf("invalid OCR configuration: %w", err)
	}

	if c.needsLLM() {
		if err := c.validateLLMConfig(); err != nil {
			return fmt.Errorf("invalid LLM configuration: %w", err)
		}
	}

	if c.Translation.CacheFile != "" {
		c.Translation.CacheFile = expandHome(c.Translation.CacheFile)
		cacheDir := filepath.Dir(c.Translation.CacheFile)
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			return fmt.Errorf("failed to create translation cache directory %s: %w", cacheDir, err)
		}
	}

	if err := c.Mapping.Validate(); err != nil {
		return fmt.Errorf("invalid mapping configuration: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server-port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server-max-upload-mb must be positive, got %d", c.Server.MaxUploadMB)
	}

	return nil
}

func (c *Config) validateOCRConfig() error {
	switch strings.ToLower(c.OCR.Engine) {
	case "tesseract", "vision", "none":
		c.OCR.Engine = strings.ToLower(c.OCR.Engine)
	default:
		return fmt.Errorf("invalid ocr-engine %q, must be one of: tesseract, vision, none", c.OCR.Engine)
	}

	if c.OCR.Engine == "tesseract" && c.OCR.Languages == "" {
		return fmt.Errorf("ocr-languages cannot be empty for the tesseract engine")
	}

	if c.OCR.DPI < 36 || c.OCR.DPI > 600 {
		return fmt.Errorf("ocr-dpi must be between 36 and 600, got %d", c.OCR.DPI)
	}

	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 100 {
		return fmt.Errorf("ocr-min-confidence must be between 0 and 100, got %.1f", c.OCR.MinConfidence)
	}

	return nil
}

// needsLLM reports whether any enabled component talks to a generative backend
func (c *Config) needsLLM() bool {
	return c.Translation.Enabled || c.OCR.Engine == "vision"
}

// validateLLMConfig validates the LLM provider configuration
func (c *Config) validateLLMConfig() error {
	validProviders := map[string]bool{
		"ollama":    true,
		"openai":    true,
		"anthropic": true,
		"google":    true,
	}
	if !validProviders[strings.ToLower(c.LLM.Provider)] {
		return fmt.Errorf("invalid llm-provider %q, must be one of: ollama, openai, anthropic, google", c.LLM.Provider)
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)

	if c.Translation.Enabled && c.LLM.Model == "" {
		return fmt.Errorf("llm-model cannot be empty when translation is enabled")
	}

	if c.OCR.Engine == "vision" && c.LLM.VisionModel == "" {
		return fmt.Errorf("llm-vision-model cannot be empty for the vision OCR engine")
	}

	if c.LLM.Provider == "ollama" && c.LLM.Endpoint == "" {
		return fmt.Errorf("llm-endpoint cannot be empty for Ollama provider")
	}

	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return fmt.Errorf("API key not found for provider %s, check environment variables", c.LLM.Provider)
	}

	if c.LLM.Temperature < 0.0 || c.LLM.Temperature > 2.0 {
		return fmt.Errorf("llm-temperature must be between 0.0 and 2.0, got %f", c.LLM.Temperature)
	}

	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm-max-retries must be non-negative, got %d", c.LLM.MaxRetries)
	}

	return nil
}

// Validate checks that weights are in range and thresholds are ordered
func (m MappingConfig) Validate() error {
	scores := map[string]float64{
		"exact-score":            m.ExactScore,
		"field-contains-score":   m.FieldContainsBase,
		"pattern-contains-score": m.PatternContains,
		"normalized-exact-score": m.NormalizedExact,
		"normalized-field-score": m.NormalizedField,
		"normalized-pattern":     m.NormalizedPattern,
		"abbreviation-score":     m.AbbreviationScore,
		"accept-threshold":       m.AcceptThreshold,
		"hint-score":             m.HintScore,
		"hint-bypass":            m.HintBypass,
	}
	for name, score := range scores {
		if score < 0 || score > 100 {
			return fmt.Errorf("mapping-%s must be between 0 and 100, got %.1f", name, score)
		}
	}

	if m.SpecificityBonus < 0 {
		return fmt.Errorf("mapping-specificity-bonus must be non-negative, got %.1f", m.SpecificityBonus)
	}

	if m.PenaltyFactor <= 0 || m.PenaltyFactor > 1 {
		return fmt.Errorf("mapping-penalty-factor must be in (0, 1], got %.2f", m.PenaltyFactor)
	}

	if m.AcceptThreshold >= m.ExactScore {
		return fmt.Errorf("mapping-accept-threshold (%.1f) must be below mapping-exact-score (%.1f)", m.AcceptThreshold, m.ExactScore)
	}

	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// loadAPIKeyForProvider loads the appropriate API key from keychain or environment variables
func loadAPIKeyForProvider(provider string, useKeychain bool, keychainPrefix string) string {
	if useKeychain {
		if key := loadFromKeychain(provider, keychainPrefix); key != "" {
			return key
		}
	}

	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "google":
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GEMINI_API_KEY")
	default:
		// Ollama doesn't need an API key
		return ""
	}
}

// loadFromKeychain attempts to retrieve an API key from macOS Keychain
// Service name format: {prefix}-{provider} (e.g., "formpilot-openai")
// Returns empty string if not found or on non-macOS platforms
func loadFromKeychain(provider, prefix string) string {
	if runtime.GOOS != "darwin" {
		return ""
	}

	serviceName := fmt.Sprintf("%s-%s", prefix, strings.ToLower(provider))

	cmd := exec.Command("security", "find-generic-password", "-s", serviceName, "-w")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(output))
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	apiKey := "not set"
	if c.LLM.APIKey != "" {
		if len(c.LLM.APIKey) > 8 {
			apiKey = "***" + c.LLM.APIKey[len(c.LLM.APIKey)-4:]
		} else {
			apiKey = "***"
		}
	}

	return fmt.Sprintf(`Configuration:
  LogLevel: %s
  LogFormat: %s
  LogFile: %s
  RulesFile: %s
  OCR:
    Engine: %s
    Languages: %s
    DPI: %d
    MinConfidence: %.1f
    PreferTextLayer: %t
  LLM:
    Provider: %s
    Model: %s
    VisionModel: %s
    Endpoint: %s
    APIKey: %s
    MaxRetries: %d
    Temperature: %.2f
  Translation:
    Enabled: %t
    CacheFile: %s
  Mapping:
    AcceptThreshold: %.1f
    HintScore: %.1f
    HintBypass: %.1f
  Server:
    Addr: %s
    MaxUploadMB: %d`,
		c.LogLevel,
		c.LogFormat,
		c.LogFile,
		c.RulesFile,
		c.OCR.Engine,
		c.OCR.Languages,
		c.OCR.DPI,
		c.OCR.MinConfidence,
		c.OCR.PreferTextLayer,
		c.LLM.Provider,
		c.LLM.Model,
		c.LLM.VisionModel,
		c.LLM.Endpoint,
		apiKey,
		c.LLM.MaxRetries,
		c.LLM.Temperature,
		c.Translation.Enabled,
		c.Translation.CacheFile,
		c.Mapping.AcceptThreshold,
		c.Mapping.HintScore,
		c.Mapping.HintBypass,
		c.Server.Addr(),
		c.Server.MaxUploadMB,
	)
}
