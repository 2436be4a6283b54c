// Package ocr turns PDF documents into positioned text blocks, either from
// the embedded text layer or by rasterizing pages and running a recognition
// engine over them.
package ocr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/formpilot/internal/logger"
)

// DefaultMinConfidence drops blocks at or below this confidence
const DefaultMinConfidence = 30.0

// Options configures an Adapter
type Options struct {
	DPI             int
	MinConfidence   float64
	PreferTextLayer bool
}

// Adapter extracts text blocks from PDFs. Engine access is serialized, so a
// single Adapter may be shared between requests.
type Adapter struct {
	engine    Engine
	pages     PageSource
	textLayer *TextLayer
	opts      Options
	logger    *logger.Logger

	mu          sync.Mutex
	initialized bool
	lastStats   Stats
}

// AdapterOption customizes an Adapter
type AdapterOption func(*Adapter)

// WithPageSource replaces the default rasterizer
func WithPageSource(src PageSource) AdapterOption {
	return func(a *Adapter) {
		a.pages = src
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = log
	}
}

// NewAdapter creates an adapter. A nil engine restricts extraction to the
// embedded text layer.
func NewAdapter(engine Engine, opts Options, options ...AdapterOption) *Adapter {
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}

	a := &Adapter{
		engine: engine,
		opts:   opts,
		logger: logger.Get(),
	}
	for _, o := range options {
		o(a)
	}

	if a.pages == nil {
		a.pages = NewRasterizer(opts.DPI, a.logger)
	}
	a.textLayer = NewTextLayer(opts.DPI, a.logger)
	return a
}

// Init initializes the engine. Calls after the first success are no-ops.
func (a *Adapter) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initLocked(ctx)
}

func (a *Adapter) initLocked(ctx context.Context) error {
	if a.initialized || a.engine == nil {
		return nil
	}
	if err := a.engine.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize %s engine: %w", a.engine.Name(), err)
	}
	a.initialized = true
	a.logger.WithFields("engine", a.engine.Name()).Info("OCR engine initialized")
	return nil
}

// Close releases the engine. Safe to call more than once.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return nil
	}
	a.initialized = false
	return a.engine.Close()
}

// EngineName reports which engine the adapter drives
func (a *Adapter) EngineName() string {
	if a.engine == nil {
		return "none"
	}
	return a.engine.Name()
}

// LastStats returns statistics for the most recent extraction
func (a *Adapter) LastStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastStats
}

// Extract returns the text blocks of every page, filtered by confidence.
// Pages are recognized one at a time, in order.
func (a *Adapter) Extract(ctx context.Context, pdf []byte) ([]TextBlock, error) {
	startTime := time.Now()

	if a.opts.PreferTextLayer || a.engine == nil {
		blocks, err := a.textLayer.Extract(pdf)
		if err != nil {
			a.logger.WithError(err).Debug("Text layer unavailable, falling back to recognition")
		}
		if len(blocks) > 0 || a.engine == nil {
			blocks = a.filter(blocks)
			a.record(Summarize("text-layer", countPages(blocks), blocks), startTime)
			return blocks, nil
		}
	}

	pages, err := a.pages.Pages(ctx, pdf)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.initLocked(ctx); err != nil {
		return nil, err
	}

	var blocks []TextBlock
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageBlocks, err := a.engine.Recognize(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("recognition failed on page %d: %w", page.Number, err)
		}
		blocks = append(blocks, a.filter(pageBlocks)...)
	}

	a.lastStats = Summarize(a.engine.Name(), len(pages), blocks)
	a.logger.WithFields(
		"source", a.lastStats.Source,
		"pages", a.lastStats.Pages,
		"blocks", a.lastStats.Blocks,
		"confidence", a.lastStats.AverageConfidence,
		"duration", time.Since(startTime),
	).Info("Text extraction completed")

	return blocks, nil
}

func (a *Adapter) filter(blocks []TextBlock) []TextBlock {
	minConf := a.opts.MinConfidence
	kept := blocks[:0:0]
	for _, b := range blocks {
		if b.Confidence > minConf {
			kept = append(kept, b)
		}
	}
	return kept
}

func (a *Adapter) record(stats Stats, startTime time.Time) {
	a.mu.Lock()
	a.lastStats = stats
	a.mu.Unlock()

	a.logger.WithFields(
		"source", stats.Source,
		"blocks", stats.Blocks,
		"duration", time.Since(startTime),
	).Info("Text extraction completed")
}

func countPages(blocks []TextBlock) int {
	pages := 0
	for _, b := range blocks {
		if b.Page > pages {
			pages = b.Page
		}
	}
	return pages
}
