// Package ocr drives tesseract over preprocessed scans: it retries across
// page segmentation modes and keeps the most confident pass.
package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/finextract/internal/common"
)

const (
	MaxAttempts         = 3
	EarlyExitConfidence = 60.0
	LowConfidence       = 40.0
	MinUpscaleSide      = 1000
	TargetUpscaleSide   = 2000
	WordTimeoutSeconds  = 60
)

// CharWhitelist limits recognition to characters found in financial documents.
const CharWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz.,/\\-:$%& "

// ErrNoText is reported when every attempt came back blank.
var ErrNoText = errors.New("no text recognized")

// TableMarker separates recognized text from the word-level TSV appended to it.
const TableMarker = "\n\n--- TABLE DATA ---\n"

// Result is the best pass of a Recognize call.
type Result struct {
	Text       string
	Confidence float64
	TSV        string
	Words      []Word
	Mode       PageSegMode
	Attempts   int
	LowQuality bool
	Duration   time.Duration
}

// AttemptObserver receives each completed attempt; metrics hook in here.
type AttemptObserver func(mode PageSegMode, confidence float64, err error)

type Driver struct {
	factory  EngineFactory
	logger   *slog.Logger
	observer AttemptObserver
}

type DriverOption func(*Driver)

func WithAttemptObserver(fn AttemptObserver) DriverOption {
	return func(d *Driver) { d.observer = fn }
}

func NewDriver(factory EngineFactory, logger *slog.Logger, opts ...DriverOption) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{factory: factory, logger: logger}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Recognize runs up to MaxAttempts passes over img and returns the most
// confident one. A low-confidence result is not an error; it is flagged.
func (d *Driver) Recognize(ctx context.Context, img image.Image) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, common.CancelledError(err)
	}
	if d.factory == nil {
		return Result{}, common.LibraryNotReadyError("tesseract", errors.New("no engine factory configured"))
	}
	engine, err := d.factory(ctx)
	if err != nil {
		return Result{}, common.LibraryNotReadyError("tesseract", err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			d.logger.Warn("ocr.engine.close_failed", "error", cerr)
		}
	}()

	png, err := PrepareImage(img)
	if err != nil {
		return Result{}, common.OCRError(err)
	}

	var (
		best    Recognition
		bestSet bool
		mode    PageSegMode
		calls   int
		lastErr error
	)
	for i := 0; i < MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, common.CancelledError(err)
		}
		m := ModeCycle[i%len(ModeCycle)]
		calls++
		rec, err := engine.Recognize(ctx, png, m)
		if d.observer != nil {
			d.observer(m, rec.Confidence, err)
		}
		if err != nil {
			lastErr = err
			d.logger.Warn("ocr.attempt.failed", "attempt", i+1, "psm", m.String(), "error", err)
			continue
		}
		d.logger.Debug("ocr.attempt", "attempt", i+1, "psm", m.String(), "confidence", rec.Confidence, "words", len(rec.Words))
		if strings.TrimSpace(rec.Text) == "" {
			lastErr = ErrNoText
			continue
		}
		if !bestSet || rec.Confidence > best.Confidence {
			best, mode, bestSet = rec, m, true
		}
		if best.Confidence > EarlyExitConfidence {
			break
		}
	}
	if !bestSet {
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return Result{}, common.CancelledError(lastErr)
		}
		return Result{}, common.OCRError(lastErr)
	}

	res := Result{
		Text:       best.Text,
		Confidence: best.Confidence,
		TSV:        best.TSV,
		Words:      best.Words,
		Mode:       mode,
		Attempts:   calls,
		Duration:   time.Since(start),
	}
	if best.TSV != "" {
		res.Text += TableMarker + best.TSV
	}
	if res.Confidence < LowConfidence {
		res.LowQuality = true
		d.logger.Warn("ocr.low_confidence", "confidence", res.Confidence, "psm", mode.String(), "attempts", calls)
	}
	d.logger.Info("ocr.recognize.ok",
		"confidence", res.Confidence,
		"psm", mode.String(),
		"attempts", calls,
		"words", len(res.Words),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
