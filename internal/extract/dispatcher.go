package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/classify"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/normalize"
	"github.com/joseph-ayodele/finextract/internal/pdftext"
)

// DefaultMaxBytes caps a single upload at 10 MiB.
const DefaultMaxBytes = 10 << 20

// Warning added when preprocessing fell back to the unprocessed image.
const WarnPreprocessFallback = "image preprocessing failed; recognized the unprocessed image"

// Observer sees every finished dispatch, successful or not.
type Observer func(in Input, res Result, err error)

type Dispatcher struct {
	svc      Services
	logger   *slog.Logger
	maxBytes int
	observer Observer
}

type Option func(*Dispatcher)

func WithMaxBytes(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBytes = n
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(d *Dispatcher) { d.observer = fn }
}

func NewDispatcher(svc Services, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{svc: svc, logger: logger, maxBytes: DefaultMaxBytes}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Extract runs the stages for in's media type strictly in order and checks
// ctx between them. Unsupported types are rejected before any work.
func (d *Dispatcher) Extract(ctx context.Context, in Input) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if err != nil {
			d.logger.Warn("extract.dispatch.failed",
				"name", in.Name,
				"media_type", in.MediaType,
				"code", common.CodeOf(err),
				"error", err,
				"duration_ms", res.Duration.Milliseconds(),
			)
		} else {
			d.logger.Info("extract.dispatch.ok",
				"name", in.Name,
				"path", res.Path,
				"kind", res.Annotated.Kind,
				"confidence", res.Confidence,
				"low_quality", res.LowQuality,
				"duration_ms", res.Duration.Milliseconds(),
			)
		}
		if d.observer != nil {
			d.observer(in, res, err)
		}
	}()

	format := constants.MapMediaTypeToFormat(in.MediaType)
	if format == "" {
		return Result{}, common.UnsupportedFormatError(in.MediaType)
	}
	if err := common.NewValidator().
		Field("data", in.Data, common.Required, common.MaxBytes(d.maxBytes)).
		Err(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, common.CancelledError(err)
	}

	switch format {
	case constants.PDF:
		return d.extractPDF(ctx, in)
	default:
		return d.extractImage(ctx, in)
	}
}

func (d *Dispatcher) extractImage(ctx context.Context, in Input) (Result, error) {
	if d.svc.Decoder == nil || d.svc.OCR == nil {
		return Result{}, common.LibraryNotReadyError("image pipeline", nil)
	}

	data := in.Data
	if constants.IsHEIC(in.MediaType) {
		if d.svc.HEIC == nil {
			return Result{}, common.LibraryNotReadyError("heic converter", nil)
		}
		png, err := d.svc.HEIC.ConvertToPNG(ctx, data)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, common.CancelledError(ctx.Err())
			}
			return Result{}, common.DecodeError(err)
		}
		data = png
	}

	img, err := d.svc.Decoder.Decode(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, common.CancelledError(ctx.Err())
		}
		return Result{}, common.DecodeError(err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, common.CancelledError(err)
	}

	var res Result
	res.Path = PathImageOCR
	res.Pages = 1
	if d.svc.Preprocessor != nil {
		processed, rep := d.svc.Preprocessor.Process(ctx, img)
		if rep.FellBack {
			res.Warnings = append(res.Warnings, WarnPreprocessFallback)
		}
		img = processed
	}
	if err := ctx.Err(); err != nil {
		return Result{}, common.CancelledError(err)
	}

	rec, err := d.svc.OCR.Recognize(ctx, img)
	if err != nil {
		return Result{}, typed(err, common.OCRError)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, common.CancelledError(err)
	}

	res.Confidence = rec.Confidence
	res.LowQuality = rec.LowQuality
	res.Annotated = classify.Annotate(normalize.Normalize(rec.Text))
	return res, nil
}

func (d *Dispatcher) extractPDF(ctx context.Context, in Input) (Result, error) {
	if d.svc.PDF == nil {
		return Result{}, common.LibraryNotReadyError("pdf reader", nil)
	}
	doc, err := d.svc.PDF.Extract(ctx, in.Data)
	if err != nil {
		return Result{}, typed(err, common.PDFError)
	}
	conf := TextConfidence(doc.RawText)
	return Result{
		Annotated:  doc.Annotated,
		Path:       PathPDFText,
		Confidence: conf,
		LowQuality: conf < LowTextConfidence,
		Pages:      doc.Pages,
		Warnings:   doc.Warnings,
	}, nil
}

// typed keeps an AppError a stage already returned and wraps anything else.
func typed(err error, wrap func(error) error) error {
	var ae *common.AppError
	if errors.As(err, &ae) {
		return err
	}
	if common.CodeOf(err) == common.CodeCancelled {
		return common.CancelledError(err)
	}
	return wrap(err)
}

var _ Extractor = (*Dispatcher)(nil)
var _ PDFExtractor = (*pdftext.Extractor)(nil)
