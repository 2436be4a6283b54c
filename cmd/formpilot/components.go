package main

import (
	"context"
	"fmt"

	"github.com/platinummonkey/formpilot/internal/config"
	"github.com/platinummonkey/formpilot/internal/detect"
	"github.com/platinummonkey/formpilot/internal/fieldmap"
	"github.com/platinummonkey/formpilot/internal/formfill"
	"github.com/platinummonkey/formpilot/internal/llm"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/ocr"
	"github.com/platinummonkey/formpilot/internal/pdfform"
	"github.com/platinummonkey/formpilot/internal/translate"
)

// components holds everything a command needs to run the pipeline
type components struct {
	service    *formfill.Service
	adapter    *ocr.Adapter
	translator *translate.Translator
	store      *translate.Store
	logger     *logger.Logger
}

// buildComponents wires the pipeline from configuration
func buildComponents(ctx context.Context, cfg *config.Config, log *logger.Logger, contextAnalysis bool) (*components, error) {
	var client llm.VisionClient
	if cfg.Translation.Enabled || cfg.OCR.Engine == "vision" {
		c, err := llm.NewClient(ctx, llmConfig(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		client = c
	}

	engine, err := newEngine(cfg, client, log)
	if err != nil {
		return nil, err
	}
	adapter := ocr.NewAdapter(engine, ocr.Options{
		DPI:             cfg.OCR.DPI,
		MinConfidence:   cfg.OCR.MinConfidence,
		PreferTextLayer: cfg.OCR.PreferTextLayer,
	}, ocr.WithLogger(log))

	rules, err := loadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	cache := translate.NewCache()
	var store *translate.Store
	if cfg.Translation.CacheFile != "" {
		store = translate.NewStore(cfg.Translation.CacheFile)
		if err := store.Load(cache); err != nil {
			log.WithError(err).Warn("Ignoring unreadable label cache")
		}
	}

	var backend translate.Backend
	if cfg.Translation.Enabled && client != nil {
		backend = client
	}
	translator := translate.NewTranslator(cache, backend, translate.WithLogger(log))

	pdfCfg := &pdfform.Config{Logger: log}
	service, err := formfill.New(&formfill.Config{
		Logger:          log,
		Extractor:       adapter,
		Detector:        detect.NewDetector(rules, log),
		Reader:          pdfform.NewReader(pdfCfg),
		Writer:          pdfform.NewCommitter(pdfCfg),
		Mapper:          fieldmap.NewMapper(fieldmap.WeightsFromConfig(cfg.Mapping), fieldmap.WithLogger(log)),
		Translator:      translator,
		ContextAnalysis: contextAnalysis && backend != nil,
	})
	if err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &components{
		service:    service,
		adapter:    adapter,
		translator: translator,
		store:      store,
		logger:     log,
	}, nil
}

// Close saves the label cache and releases the OCR engine
func (c *components) Close() {
	if c.store != nil && c.translator.Cache().Len() > 0 {
		if err := c.store.Save(c.translator.Cache()); err != nil {
			c.logger.WithError(err).Warn("Failed to save label cache")
		}
	}
	if err := c.adapter.Close(); err != nil {
		c.logger.WithError(err).Warn("Failed to release OCR engine")
	}
}

func newEngine(cfg *config.Config, client llm.VisionClient, log *logger.Logger) (ocr.Engine, error) {
	switch cfg.OCR.Engine {
	case "tesseract":
		return ocr.NewTesseractEngine(cfg.OCR.Languages, log), nil
	case "vision":
		if client == nil {
			return nil, fmt.Errorf("vision engine requires an LLM provider")
		}
		return ocr.NewVisionEngine(client, log), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCR.Engine)
	}
}

func loadRules(path string) ([]detect.Rule, error) {
	if path == "" {
		rules, err := detect.DefaultRules()
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in rules: %w", err)
		}
		return rules, nil
	}
	rules, err := detect.LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", path, err)
	}
	return rules, nil
}

func llmConfig(cfg *config.Config) *llm.Config {
	return &llm.Config{
		Provider:    llm.ProviderType(cfg.LLM.Provider),
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		MaxRetries:  cfg.LLM.MaxRetries,
		Temperature: cfg.LLM.Temperature,
	}
}
