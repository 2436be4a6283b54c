package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()

	// Set HOME to temp dir to avoid loading user's ~/.formpilot.yaml
	t.Setenv("HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel = info, got %s", cfg.LogLevel)
	}

	if cfg.OCR.Engine != "tesseract" {
		t.Errorf("expected OCR.Engine = tesseract, got %s", cfg.OCR.Engine)
	}

	if cfg.OCR.MinConfidence != 30 {
		t.Errorf("expected OCR.MinConfidence = 30, got %.1f", cfg.OCR.MinConfidence)
	}

	if cfg.Mapping.AcceptThreshold != 40 {
		t.Errorf("expected Mapping.AcceptThreshold = 40, got %.1f", cfg.Mapping.AcceptThreshold)
	}

	if cfg.Mapping.HintScore != 95 || cfg.Mapping.HintBypass != 90 {
		t.Errorf("expected hint score/bypass = 95/90, got %.1f/%.1f", cfg.Mapping.HintScore, cfg.Mapping.HintBypass)
	}

	if cfg.Translation.Enabled {
		t.Error("expected translation backend disabled by default")
	}

	want := filepath.Join(tmpDir, ".formpilot-translations.json")
	if cfg.Translation.CacheFile != want {
		t.Errorf("expected CacheFile = %s, got %s", want, cfg.Translation.CacheFile)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	t.Setenv("FORMPILOT_LOG_LEVEL", "debug")
	t.Setenv("FORMPILOT_OCR_ENGINE", "none")
	t.Setenv("FORMPILOT_OCR_DPI", "200")
	t.Setenv("FORMPILOT_MAPPING_ACCEPT_THRESHOLD", "55")
	t.Setenv("FORMPILOT_SERVER_PORT", "9000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel = debug, got %s", cfg.LogLevel)
	}

	if cfg.OCR.Engine != "none" {
		t.Errorf("expected OCR.Engine = none, got %s", cfg.OCR.Engine)
	}

	if cfg.OCR.DPI != 200 {
		t.Errorf("expected OCR.DPI = 200, got %d", cfg.OCR.DPI)
	}

	if cfg.Mapping.AcceptThreshold != 55 {
		t.Errorf("expected Mapping.AcceptThreshold = 55, got %.1f", cfg.Mapping.AcceptThreshold)
	}

	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("expected Server.Addr = 127.0.0.1:9000, got %s", cfg.Server.Addr())
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	configFile := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
log-level: warn
ocr-engine: vision
ocr-languages: "deu"
llm-provider: ollama
llm-vision-model: llava:13b
translation-cache-file: ` + filepath.Join(tmpDir, "cache", "labels.json") + `
mapping-hint-score: 92
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("expected LogLevel = warn, got %s", cfg.LogLevel)
	}

	if cfg.OCR.Engine != "vision" {
		t.Errorf("expected OCR.Engine = vision, got %s", cfg.OCR.Engine)
	}

	if cfg.LLM.VisionModel != "llava:13b" {
		t.Errorf("expected LLM.VisionModel = llava:13b, got %s", cfg.LLM.VisionModel)
	}

	if cfg.Mapping.HintScore != 92 {
		t.Errorf("expected Mapping.HintScore = 92, got %.1f", cfg.Mapping.HintScore)
	}

	// Cache directory is created during validation
	if _, err := os.Stat(filepath.Join(tmpDir, "cache")); err != nil {
		t.Errorf("expected cache directory to be created: %v", err)
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	_, err := Load(filepath.Join(tmpDir, "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
		OCR: OCRConfig{
			Engine:        "tesseract",
			Languages:     "deu+eng",
			DPI:           144,
			MinConfidence: 30,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1",
			Endpoint: "http://localhost:11434",
		},
		Translation: TranslationConfig{
			CacheFile: filepath.Join(tmpDir, "labels.json"),
		},
		Mapping: MappingConfig{
			ExactScore:        100,
			FieldContainsBase: 80,
			PatternContains:   60,
			NormalizedExact:   90,
			NormalizedField:   70,
			NormalizedPattern: 50,
			AbbreviationScore: 30,
			SpecificityBonus:  20,
			PenaltyFactor:     0.5,
			AcceptThreshold:   40,
			HintScore:         95,
			HintBypass:        90,
		},
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8088,
			MaxUploadMB: 25,
		},
	}
}

func TestValidate_ValidConfiguration(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: "invalid log-level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "invalid log-format",
		},
		{
			name:    "invalid OCR engine",
			mutate:  func(c *Config) { c.OCR.Engine = "abbyy" },
			wantErr: "invalid ocr-engine",
		},
		{
			name:    "tesseract without languages",
			mutate:  func(c *Config) { c.OCR.Languages = "" },
			wantErr: "ocr-languages cannot be empty",
		},
		{
			name:    "DPI out of range",
			mutate:  func(c *Config) { c.OCR.DPI = 10 },
			wantErr: "ocr-dpi must be between",
		},
		{
			name:    "min confidence out of range",
			mutate:  func(c *Config) { c.OCR.MinConfidence = 120 },
			wantErr: "ocr-min-confidence must be between",
		},
		{
			name: "translation with cloud provider and no key",
			mutate: func(c *Config) {
				c.Translation.Enabled = true
				c.LLM.Provider = "anthropic"
				c.LLM.APIKey = ""
			},
			wantErr: "API key not found",
		},
		{
			name: "vision engine without model",
			mutate: func(c *Config) {
				c.OCR.Engine = "vision"
				c.LLM.VisionModel = ""
			},
			wantErr: "llm-vision-model cannot be empty",
		},
		{
			name:    "penalty factor out of range",
			mutate:  func(c *Config) { c.Mapping.PenaltyFactor = 1.5 },
			wantErr: "mapping-penalty-factor",
		},
		{
			name:    "threshold above exact score",
			mutate:  func(c *Config) { c.Mapping.AcceptThreshold = 100 },
			wantErr: "mapping-accept-threshold",
		},
		{
			name:    "score out of range",
			mutate:  func(c *Config) { c.Mapping.HintScore = 150 },
			wantErr: "mapping-hint-score",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server-port",
		},
		{
			name:    "missing rules file",
			mutate:  func(c *Config) { c.RulesFile = "/nonexistent/rules.yaml" },
			wantErr: "rules-file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_LLMSkippedWhenUnused(t *testing.T) {
	cfg := validConfig(t)
	cfg.LLM.Provider = "bogus"

	if err := cfg.Validate(); err != nil {
		t.Errorf("LLM settings should not be validated when no component uses them, got: %v", err)
	}
}

func TestLoadAPIKeyForProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "sk-openai"},
		{"anthropic", "sk-ant"},
		{"google", "gemini-key"},
		{"ollama", ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			if got := loadAPIKeyForProvider(tt.provider, false, "formpilot"); got != tt.want {
				t.Errorf("loadAPIKeyForProvider(%s) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.LLM.APIKey = "sk-1234567890abcdef"

	s := cfg.String()
	if strings.Contains(s, "sk-1234567890abcdef") {
		t.Error("String() leaked the API key")
	}
	if !strings.Contains(s, "***cdef") {
		t.Errorf("String() should show redacted key suffix, got:\n%s", s)
	}
}
