package ocr

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/finextract/internal/common"
)

// NewFactory builds the engine factory selected by OCR_ENGINE. When the
// engine cannot be set up the returned factory fails every acquire, so
// image uploads report LIBRARY_NOT_READY while the PDF path keeps working.
func NewFactory(cfg common.OCRConfig, logger *slog.Logger) EngineFactory {
	if logger == nil {
		logger = slog.Default()
	}
	ec := EngineConfig{Language: cfg.Language, TessdataDir: cfg.TessdataDir}

	var (
		f   EngineFactory
		err error
	)
	engine := ResolveEngine(cfg.Engine)
	switch engine {
	case "cli":
		f, err = NewCLIFactory(cfg.Tesseract, ec, nil, logger)
	default:
		f, err = NewGosseractFactory(ec, logger)
	}
	if err != nil {
		logger.Error("ocr.engine.unavailable", "engine", engine, "error", err)
		return Unavailable(err)
	}
	logger.Info("ocr.engine.ready", "engine", engine, "lang", ec.Language)
	return f
}

// ResolveEngine maps "auto" (or empty) to gosseract when this binary was
// built with the tesseract tag and to the CLI engine otherwise.
func ResolveEngine(name string) string {
	switch name {
	case "", "auto":
		if GosseractAvailable {
			return "gosseract"
		}
		return "cli"
	}
	return name
}

// Unavailable is a factory that always fails with cause.
func Unavailable(cause error) EngineFactory {
	return func(context.Context) (Engine, error) { return nil, cause }
}
