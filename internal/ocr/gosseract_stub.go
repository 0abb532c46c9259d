//go:build !tesseract

package ocr

import (
	"errors"
	"log/slog"
)

// GosseractAvailable reports whether this binary links libtesseract.
const GosseractAvailable = false

// ErrGosseractDisabled is returned when the binary was built without the tesseract tag.
var ErrGosseractDisabled = errors.New("gosseract engine not compiled in; build with -tags tesseract or set OCR_ENGINE=cli")

func NewGosseractFactory(cfg EngineConfig, logger *slog.Logger) (EngineFactory, error) {
	return nil, ErrGosseractDisabled
}
