// Package pdftext extracts embedded text from digital PDFs and runs it
// through the normalizer and classifier. It never rasterizes or OCRs.
package pdftext

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/finextract/internal/classify"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/normalize"
)

// WarnNoText is reported when a PDF has no text layer, typically a scan.
const WarnNoText = "pdf has no embedded text; it may be a scanned document"

// Document is the result of the PDF text path.
type Document struct {
	Annotated classify.Annotated
	RawText   string
	Pages     int
	Warnings  []string
	Duration  time.Duration
}

type Extractor struct {
	source    PageSource
	validator Validator
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithValidator enables pre-extraction validation; nil disables it.
func WithValidator(v Validator) Option {
	return func(e *Extractor) { e.validator = v }
}

func NewExtractor(source PageSource, logger *slog.Logger, opts ...Option) *Extractor {
	if source == nil {
		source = LedongthucSource{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{source: source, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract validates data (when a validator is set), concatenates the page
// texts with newlines, then normalizes and annotates the result.
func (e *Extractor) Extract(ctx context.Context, data []byte) (Document, error) {
	start := time.Now()
	if len(data) == 0 {
		return Document{}, common.InvalidInputError("empty pdf")
	}

	declared := 0
	if e.validator != nil {
		n, err := e.validator.Validate(ctx, data)
		if err != nil {
			if ctx.Err() != nil {
				return Document{}, common.CancelledError(ctx.Err())
			}
			e.logger.Warn("pdftext.validate.failed", "error", err)
			return Document{}, common.PDFError(err)
		}
		declared = n
	}

	pages, err := e.source.Pages(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return Document{}, common.CancelledError(ctx.Err())
		}
		e.logger.Warn("pdftext.pages.failed", "error", err)
		return Document{}, common.PDFError(err)
	}
	if err := ctx.Err(); err != nil {
		return Document{}, common.CancelledError(err)
	}

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	raw := strings.Join(texts, "\n")

	doc := Document{RawText: raw, Pages: max(len(pages), declared)}
	if strings.TrimSpace(raw) == "" {
		doc.Warnings = append(doc.Warnings, WarnNoText)
	}
	doc.Annotated = classify.Annotate(normalize.Normalize(raw))
	doc.Duration = time.Since(start)

	e.logger.Info("pdftext.extract.ok",
		"pages", doc.Pages,
		"chars", len(raw),
		"kind", doc.Annotated.Kind,
		"fields", len(doc.Annotated.Fields),
		"duration_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}
