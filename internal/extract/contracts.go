// Package extract is the single entry point of the extraction core. It routes
// an upload to the image OCR path or the PDF text path by media type.
package extract

import (
	"context"
	"image"
	"time"

	"github.com/joseph-ayodele/finextract/internal/classify"
	"github.com/joseph-ayodele/finextract/internal/imaging"
	"github.com/joseph-ayodele/finextract/internal/ocr"
	"github.com/joseph-ayodele/finextract/internal/pdftext"
)

// Extraction paths reported on Result.Path.
const (
	PathImageOCR = "image-ocr"
	PathPDFText  = "pdf-text"
)

// Decoder turns raw image bytes into a raster.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (image.Image, error)
}

// Preprocessor cleans a raster before recognition. It never fails.
type Preprocessor interface {
	Process(ctx context.Context, img image.Image) (image.Image, imaging.Report)
}

// Recognizer is the OCR stage.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (ocr.Result, error)
}

// PDFExtractor is the direct-text stage for digital PDFs.
type PDFExtractor interface {
	Extract(ctx context.Context, data []byte) (pdftext.Document, error)
}

// Extractor is implemented by Dispatcher and CachedDispatcher.
type Extractor interface {
	Extract(ctx context.Context, in Input) (Result, error)
}

// Services are the process-wide handles the dispatcher routes to. They are
// built once, never mutated afterwards, and shared by concurrent calls.
// HEIC may be nil when no converter is installed.
type Services struct {
	Decoder      Decoder
	Preprocessor Preprocessor
	OCR          Recognizer
	PDF          PDFExtractor
	HEIC         imaging.HEICConverter
}

// Input is one uploaded file.
type Input struct {
	Name      string
	MediaType string
	Data      []byte
}

// Result is the annotated text plus the quality signals a caller needs to
// tell a poor read from a failed one.
type Result struct {
	Annotated  classify.Annotated
	Path       string
	Confidence float64
	LowQuality bool
	Pages      int
	Duration   time.Duration
	Warnings   []string
	Cached     bool
}

// Text is the annotated string handed to the semantic analyzer.
func (r Result) Text() string { return r.Annotated.Text }
