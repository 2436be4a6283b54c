//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// TesseractEngine recognizes pages with a local Tesseract installation
type TesseractEngine struct {
	logger    *logger.Logger
	languages []string

	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractEngine creates a Tesseract engine for the given "+"-joined languages
func NewTesseractEngine(languages string, log *logger.Logger) *TesseractEngine {
	if log == nil {
		log = logger.Get()
	}
	langs := strings.Split(languages, "+")
	if languages == "" {
		langs = []string{"deu", "eng"}
	}
	return &TesseractEngine{logger: log, languages: langs}
}

// Init creates the Tesseract client
func (t *TesseractEngine) Init(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return nil
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(t.languages...); err != nil {
		client.Close()
		return fmt.Errorf("failed to set OCR language: %w", err)
	}
	t.client = client
	t.logger.WithFields("languages", strings.Join(t.languages, "+")).Debug("Tesseract engine initialized")
	return nil
}

// Recognize runs Tesseract on one page and parses its HOCR output
func (t *TesseractEngine) Recognize(ctx context.Context, page Page) ([]TextBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil, fmt.Errorf("tesseract engine not initialized")
	}

	startTime := time.Now()

	if err := t.client.SetImageFromBytes(page.PNG); err != nil {
		return nil, fmt.Errorf("failed to set image data: %w", err)
	}

	hocrText, err := t.client.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("failed to get HOCR text: %w", err)
	}

	blocks, err := parseHOCR(hocrText, page.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HOCR: %w", err)
	}

	t.logger.WithFields(
		"page", page.Number,
		"words", len(blocks),
		"duration", time.Since(startTime),
	).Debug("Tesseract recognition completed")

	return blocks, nil
}

// Close releases the Tesseract client
func (t *TesseractEngine) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// Name returns the engine name
func (t *TesseractEngine) Name() string {
	return "tesseract"
}
