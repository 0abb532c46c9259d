package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/imaging"
	"github.com/joseph-ayodele/finextract/internal/ocr"
	"github.com/joseph-ayodele/finextract/internal/pdftext"
)

// NewServices builds the process-wide handles from configuration. Missing
// engines do not fail construction: OCR reports LIBRARY_NOT_READY on use,
// and HEIC uploads are rejected when no converter is on PATH.
func NewServices(cfg *common.Config, logger *slog.Logger, ocrOpts ...ocr.DriverOption) Services {
	if logger == nil {
		logger = slog.Default()
	}
	backend := imaging.NewNativeBackend()

	var pdfOpts []pdftext.Option
	if cfg.PDF.Validate {
		pdfOpts = append(pdfOpts, pdftext.WithValidator(pdftext.PDFCPUValidator{}))
	}

	svc := Services{
		Decoder:      backend,
		Preprocessor: imaging.NewPreprocessor(backend, logger),
		OCR:          ocr.NewDriver(ocr.NewFactory(cfg.OCR, logger), logger, ocrOpts...),
		PDF:          pdftext.NewExtractor(nil, logger, pdfOpts...),
	}
	if conv, err := imaging.DetectHEICConverter(logger); err != nil {
		logger.Warn("imaging.heic.unavailable", "error", err)
	} else {
		svc.HEIC = conv
	}
	return svc
}
