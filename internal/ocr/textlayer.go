package ocr

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// textLayerConfidence is assigned to glyphs read from embedded text
const textLayerConfidence = 100.0

// defaultPageHeight is US Letter in points, used when a page has no MediaBox
const defaultPageHeight = 792.0

// TextLayer reads embedded text from digital PDFs
type TextLayer struct {
	dpi    int
	logger *logger.Logger
}

// NewTextLayer creates a text-layer reader whose coordinates match a
// rasterization at the given DPI
func NewTextLayer(dpi int, log *logger.Logger) *TextLayer {
	if log == nil {
		log = logger.Get()
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &TextLayer{dpi: dpi, logger: log}
}

// Extract returns word-level blocks for every page with embedded text.
// Scanned documents yield no blocks and no error.
func (t *TextLayer) Extract(data []byte) (blocks []TextBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			blocks = nil
			err = fmt.Errorf("panic while reading text layer: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageBlocks := t.pageWords(page.Content().Text, pageHeight(page), pageNum)
		blocks = append(blocks, pageBlocks...)
		t.logger.WithFields("page", pageNum, "words", len(pageBlocks)).Debug("Read text layer")
	}

	return blocks, nil
}

// pageWords joins glyph runs into words and converts them from PDF user
// space (origin bottom-left, points) to page pixels (origin top-left)
func (t *TextLayer) pageWords(glyphs []pdf.Text, height float64, pageNum int) []TextBlock {
	scale := float64(t.dpi) / 72.0

	var blocks []TextBlock
	var word strings.Builder
	var box Rect
	var lastX1, lastY, lastSize float64

	flush := func() {
		text := strings.TrimSpace(word.String())
		if text != "" {
			blocks = append(blocks, TextBlock{
				Text: text,
				BBox: Rect{
					X0: box.X0 * scale,
					Y0: (height - box.Y1) * scale,
					X1: box.X1 * scale,
					Y1: (height - box.Y0) * scale,
				},
				Confidence: textLayerConfidence,
				Page:       pageNum,
			})
		}
		word.Reset()
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}

		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		glyph := Rect{X0: g.X, Y0: g.Y, X1: g.X + g.W, Y1: g.Y + size}

		if word.Len() > 0 {
			sameLine := math.Abs(g.Y-lastY) < lastSize*0.5
			adjacent := g.X-lastX1 < lastSize*0.25 && g.X >= box.X0
			if !sameLine || !adjacent {
				flush()
			}
		}

		if word.Len() == 0 {
			box = glyph
		} else {
			box = box.Union(glyph)
		}
		word.WriteString(g.S)
		lastX1, lastY, lastSize = g.X+g.W, g.Y, size
	}
	flush()

	return blocks
}

// pageHeight walks the page tree for an inherited MediaBox
func pageHeight(page pdf.Page) float64 {
	for v := page.V; !v.IsNull() && v.Kind() == pdf.Dict; v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
	}
	return defaultPageHeight
}
