package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/formpilot/internal/llm"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// defaultVisionConfidence is used when a model omits the confidence field
const defaultVisionConfidence = 80.0

// VisionEngine recognizes pages by asking a vision-capable model
type VisionEngine struct {
	client llm.VisionClient
	logger *logger.Logger
}

// NewVisionEngine wraps a vision client as an Engine
func NewVisionEngine(client llm.VisionClient, log *logger.Logger) *VisionEngine {
	if log == nil {
		log = logger.Get()
	}
	return &VisionEngine{client: client, logger: log}
}

// Init checks that the provider is reachable
func (v *VisionEngine) Init(ctx context.Context) error {
	if err := v.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("vision provider %s unavailable: %w", v.client.Name(), err)
	}
	return nil
}

// Recognize sends the page image to the model and converts its words to blocks
func (v *VisionEngine) Recognize(ctx context.Context, page Page) ([]TextBlock, error) {
	words, err := v.client.RecognizePage(ctx, page.PNG)
	if err != nil {
		return nil, fmt.Errorf("vision recognition failed on page %d: %w", page.Number, err)
	}

	blocks := make([]TextBlock, 0, len(words))
	skipped := 0
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || len(w.BBox) < 4 {
			skipped++
			continue
		}

		blocks = append(blocks, TextBlock{
			Text:       text,
			BBox:       NewRect(w.BBox[0], w.BBox[1], w.BBox[2], w.BBox[3]),
			Confidence: scaleConfidence(w.Confidence),
			Page:       page.Number,
		})
	}

	if skipped > 0 {
		v.logger.WithFields("page", page.Number, "skipped", skipped).Debug("Dropped words without text or bounding box")
	}

	return blocks, nil
}

// scaleConfidence maps a model's 0-1 confidence onto 0-100
func scaleConfidence(c float64) float64 {
	switch {
	case c <= 0:
		return defaultVisionConfidence
	case c <= 1:
		return c * 100
	case c > 100:
		return 100
	default:
		return c
	}
}

// Close is a no-op; provider clients hold no per-engine state
func (v *VisionEngine) Close() error {
	return nil
}

// Name returns the engine name including the provider
func (v *VisionEngine) Name() string {
	return "vision:" + v.client.Name()
}
