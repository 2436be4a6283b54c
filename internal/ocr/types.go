package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrEngineNotEnabled is returned by engines compiled out of this build
var ErrEngineNotEnabled = errors.New("ocr engine not enabled in this build")

// Rect is an axis-aligned box in page pixel coordinates, origin top-left
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewRect creates a Rect from a corner and a size
func NewRect(x, y, width, height float64) Rect {
	return Rect{X0: x, Y0: y, X1: x + width, Y1: y + height}
}

// Width returns the horizontal extent
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Area returns the area of the rectangle
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// Contains returns true if the rectangle contains the point (x, y)
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Intersects returns true if this rectangle overlaps another.
// Rectangles that only share an edge do not intersect.
func (r Rect) Intersects(other Rect) bool {
	return r.X0 < other.X1 &&
		r.X1 > other.X0 &&
		r.Y0 < other.Y1 &&
		r.Y1 > other.Y0
}

// Union returns the smallest rectangle containing both
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

// TextBlock is one recognized run of text on a page
type TextBlock struct {
	Text string `json:"text"`
	BBox Rect   `json:"bbox"`

	// Confidence is 0-100
	Confidence float64 `json:"confidence"`

	// Page is 1-indexed
	Page int `json:"page"`
}

// Page is a rasterized page ready for recognition
type Page struct {
	// Number is 1-indexed
	Number int

	// PNG is the preprocessed page image
	PNG []byte

	Width  int
	Height int
}

// Engine recognizes text on a single page image
type Engine interface {
	// Init prepares the engine. Called once before the first Recognize.
	Init(ctx context.Context) error

	// Recognize returns the text blocks on a page
	Recognize(ctx context.Context, page Page) ([]TextBlock, error)

	// Close releases engine resources
	Close() error

	// Name identifies the engine in logs and reports
	Name() string
}

// ConversionError reports a page that could not be rasterized
type ConversionError struct {
	Page int
	Err  error
}

func (e *ConversionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("failed to convert page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("failed to convert document: %v", e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Stats summarizes an extraction
type Stats struct {
	Source            string  `json:"source"`
	Pages             int     `json:"pages"`
	Blocks            int     `json:"blocks"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Summarize computes per-document statistics over extracted blocks
func Summarize(source string, pages int, blocks []TextBlock) Stats {
	s := Stats{Source: source, Pages: pages, Blocks: len(blocks)}
	if len(blocks) == 0 {
		return s
	}

	total := 0.0
	for _, b := range blocks {
		total += b.Confidence
	}
	s.AverageConfidence = total / float64(len(blocks))
	return s
}
