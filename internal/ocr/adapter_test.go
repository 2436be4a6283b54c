package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/platinummonkey/formpilot/internal/logger"
)

type fakePages struct {
	pages []Page
	err   error
	calls int
}

func (f *fakePages) Pages(ctx context.Context, pdf []byte) ([]Page, error) {
	f.calls++
	return f.pages, f.err
}

type fakeEngine struct {
	initCalls  int
	closeCalls int
	initErr    error
	seen       []int
	blocks     map[int][]TextBlock
}

func (f *fakeEngine) Init(ctx context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeEngine) Recognize(ctx context.Context, page Page) ([]TextBlock, error) {
	f.seen = append(f.seen, page.Number)
	return f.blocks[page.Number], nil
}

func (f *fakeEngine) Close() error {
	f.closeCalls++
	return nil
}

func (f *fakeEngine) Name() string {
	return "fake"
}

func newTestAdapter(engine Engine, src PageSource, opts Options) *Adapter {
	return NewAdapter(engine, opts, WithPageSource(src), WithLogger(logger.NewNop()))
}

func TestAdapter_ExtractSequentialAndFiltered(t *testing.T) {
	engine := &fakeEngine{blocks: map[int][]TextBlock{
		1: {
			{Text: "Vorname:", Confidence: 90, Page: 1},
			{Text: "~", Confidence: 30, Page: 1},
		},
		2: {
			{Text: "PLZ", Confidence: 31, Page: 2},
		},
	}}
	src := &fakePages{pages: []Page{{Number: 1}, {Number: 2}}}
	adapter := newTestAdapter(engine, src, Options{MinConfidence: DefaultMinConfidence})

	blocks, err := adapter.Extract(context.Background(), []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks after confidence filter, got %d", len(blocks))
	}
	if blocks[0].Text != "Vorname:" || blocks[1].Text != "PLZ" {
		t.Errorf("unexpected blocks %+v", blocks)
	}

	if len(engine.seen) != 2 || engine.seen[0] != 1 || engine.seen[1] != 2 {
		t.Errorf("pages should be recognized in order, got %v", engine.seen)
	}

	stats := adapter.LastStats()
	if stats.Source != "fake" || stats.Pages != 2 || stats.Blocks != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAdapter_InitOnce(t *testing.T) {
	engine := &fakeEngine{}
	adapter := newTestAdapter(engine, &fakePages{}, Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := adapter.Init(ctx); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	}
	if _, err := adapter.Extract(ctx, nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if engine.initCalls != 1 {
		t.Errorf("expected engine initialized once, got %d", engine.initCalls)
	}

	if err := adapter.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := adapter.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if engine.closeCalls != 1 {
		t.Errorf("expected engine closed once, got %d", engine.closeCalls)
	}
}

func TestAdapter_InitError(t *testing.T) {
	engine := &fakeEngine{initErr: ErrEngineNotEnabled}
	adapter := newTestAdapter(engine, &fakePages{pages: []Page{{Number: 1}}}, Options{})

	_, err := adapter.Extract(context.Background(), nil)
	if !errors.Is(err, ErrEngineNotEnabled) {
		t.Errorf("Extract() error = %v, want ErrEngineNotEnabled", err)
	}
}

func TestAdapter_ConversionErrorIsFatal(t *testing.T) {
	engine := &fakeEngine{}
	src := &fakePages{err: &ConversionError{Page: 2, Err: errors.New("broken stream")}}
	adapter := newTestAdapter(engine, src, Options{})

	blocks, err := adapter.Extract(context.Background(), nil)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *ConversionError, got %v", err)
	}
	if convErr.Page != 2 {
		t.Errorf("expected failing page 2, got %d", convErr.Page)
	}
	if blocks != nil {
		t.Error("no blocks should be returned on conversion failure")
	}
	if len(engine.seen) != 0 {
		t.Error("engine should not run after conversion failure")
	}
}

func TestAdapter_CancelledContext(t *testing.T) {
	engine := &fakeEngine{}
	adapter := newTestAdapter(engine, &fakePages{pages: []Page{{Number: 1}}}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.Extract(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
}

func TestAdapter_NoEngineUsesTextLayerOnly(t *testing.T) {
	src := &fakePages{}
	adapter := newTestAdapter(nil, src, Options{})

	blocks, err := adapter.Extract(context.Background(), []byte("not a pdf"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
	if src.calls != 0 {
		t.Error("rasterizer should not run without an engine")
	}
	if adapter.EngineName() != "none" {
		t.Errorf("EngineName() = %s, want none", adapter.EngineName())
	}
}

func TestAdapter_PreferTextLayerFallsBack(t *testing.T) {
	engine := &fakeEngine{blocks: map[int][]TextBlock{
		1: {{Text: "Name", Confidence: 80, Page: 1}},
	}}
	src := &fakePages{pages: []Page{{Number: 1}}}
	adapter := newTestAdapter(engine, src, Options{PreferTextLayer: true, MinConfidence: 30})

	blocks, err := adapter.Extract(context.Background(), []byte("scanned"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(blocks) != 1 || src.calls != 1 {
		t.Errorf("expected recognition fallback, got %d blocks and %d rasterizations", len(blocks), src.calls)
	}
}

func TestPreprocess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	out := Preprocess(img)
	if out.Bounds() != img.Bounds() {
		t.Fatalf("Preprocess changed bounds: %v", out.Bounds())
	}

	c := out.NRGBAAt(1, 1)
	if c.R != c.G || c.G != c.B {
		t.Errorf("expected grayscale pixel, got %+v", c)
	}
}
