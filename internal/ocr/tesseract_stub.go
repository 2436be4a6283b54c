//go:build !tesseract

package ocr

import (
	"context"

	"github.com/platinummonkey/formpilot/internal/logger"
)

// TesseractEngine is a placeholder used when the binary is built without
// the tesseract tag. Every call reports ErrEngineNotEnabled.
type TesseractEngine struct{}

// NewTesseractEngine returns the disabled engine
func NewTesseractEngine(languages string, log *logger.Logger) *TesseractEngine {
	return &TesseractEngine{}
}

// Init always fails with ErrEngineNotEnabled
func (t *TesseractEngine) Init(ctx context.Context) error {
	return ErrEngineNotEnabled
}

// Recognize always fails with ErrEngineNotEnabled
func (t *TesseractEngine) Recognize(ctx context.Context, page Page) ([]TextBlock, error) {
	return nil, ErrEngineNotEnabled
}

// Close is a no-op
func (t *TesseractEngine) Close() error {
	return nil
}

// Name returns the engine name
func (t *TesseractEngine) Name() string {
	return "tesseract"
}
