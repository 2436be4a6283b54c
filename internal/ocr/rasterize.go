package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/unidoc/unipdf/v3/common"
	unipdf "github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"
)

// DefaultDPI is the rasterization resolution used when none is configured
const DefaultDPI = 144

// contrastBoost is the imaging.AdjustContrast percentage applied before recognition
const contrastBoost = 20

func init() {
	common.SetLogger(common.NewConsoleLogger(common.LogLevelError))
}

// PageSource turns a PDF into page images
type PageSource interface {
	Pages(ctx context.Context, pdf []byte) ([]Page, error)
}

// Rasterizer renders PDF pages to preprocessed PNG images
type Rasterizer struct {
	dpi    int
	logger *logger.Logger
}

// NewRasterizer creates a rasterizer at the given DPI
func NewRasterizer(dpi int, log *logger.Logger) *Rasterizer {
	if log == nil {
		log = logger.Get()
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: dpi, logger: log}
}

// Pages renders every page. Any failure is returned as *ConversionError.
func (r *Rasterizer) Pages(ctx context.Context, pdf []byte) ([]Page, error) {
	pdfReader, err := unipdf.NewPdfReaderLazy(bytes.NewReader(pdf))
	if err != nil {
		return nil, &ConversionError{Err: fmt.Errorf("failed to create PDF reader: %w", err)}
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, &ConversionError{Err: fmt.Errorf("failed to get page count: %w", err)}
	}

	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := r.renderPage(pdfReader, i)
		if err != nil {
			return nil, &ConversionError{Page: i, Err: err}
		}

		processed := Preprocess(img)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, processed, imaging.PNG); err != nil {
			return nil, &ConversionError{Page: i, Err: fmt.Errorf("failed to encode image: %w", err)}
		}

		bounds := processed.Bounds()
		pages = append(pages, Page{
			Number: i,
			PNG:    buf.Bytes(),
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
		r.logger.WithFields("page", i, "total", numPages, "width", bounds.Dx(), "height", bounds.Dy()).Debug("Rendered page")
	}

	return pages, nil
}

func (r *Rasterizer) renderPage(pdfReader *unipdf.PdfReader, pageNum int) (image.Image, error) {
	page, err := pdfReader.GetPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", pageNum, err)
	}

	mediaBox, err := page.GetMediaBox()
	if err != nil {
		return nil, fmt.Errorf("failed to get media box: %w", err)
	}

	// PDF points are 1/72 inch; height follows from the aspect ratio
	pageWidth := mediaBox.Urx - mediaBox.Llx
	device := render.NewImageDevice()
	device.OutputWidth = int(pageWidth * float64(r.dpi) / 72.0)

	img, err := device.Render(page)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return img, nil
}

// Preprocess converts a page image to high-contrast grayscale for recognition
func Preprocess(img image.Image) *image.NRGBA {
	return imaging.AdjustContrast(imaging.Grayscale(img), contrastBoost)
}
