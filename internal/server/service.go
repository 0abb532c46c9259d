// Package server exposes extraction, ingest, document lookup and export
// over gRPC.
package server

import (
	"context"
	"encoding/base64"
	"log/slog"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/export"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/ingest"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

// Deps are the collaborators the service calls. Ingestor, repositories and
// Exporter may be nil; the matching methods then answer Unavailable.
type Deps struct {
	Extractor extract.Extractor
	Ingestor  ingest.Ingestor
	Docs      repository.DocumentRepository
	Txs       repository.TransactionRepository
	Jobs      repository.ExtractJobRepository
	Exporter  *export.Service
}

type ExtractionService struct {
	deps   Deps
	logger *slog.Logger
}

var _ ExtractionServer = (*ExtractionService)(nil)

func NewExtractionService(deps Deps, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{deps: deps, logger: logger}
}

// Extract runs the dispatcher on inline bytes. Request fields: name,
// media_type and data (base64).
func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Extractor == nil {
		return nil, common.ToStatus(common.LibraryNotReadyError("extractor", nil))
	}
	data, err := base64.StdEncoding.DecodeString(str(req, "data"))
	if err != nil {
		return nil, common.InvalidArgumentError("data must be base64")
	}
	in := extract.Input{Name: str(req, "name"), MediaType: str(req, "media_type"), Data: data}

	res, err := s.deps.Extractor.Extract(ctx, in)
	if err != nil {
		s.logger.Warn("server.extract.failed", "name", in.Name, "media_type", in.MediaType, "code", common.CodeOf(err))
		return nil, common.ToStatus(err)
	}

	warnings := make([]any, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, w)
	}
	return toStruct(map[string]any{
		"text":        res.Text(),
		"kind":        string(res.Annotated.Kind),
		"path":        res.Path,
		"confidence":  res.Confidence,
		"low_quality": res.LowQuality,
		"pages":       res.Pages,
		"fields":      fieldsToList(res.Annotated.Fields),
		"warnings":    warnings,
		"cached":      res.Cached,
		"duration_ms": res.Duration.Milliseconds(),
	})
}
