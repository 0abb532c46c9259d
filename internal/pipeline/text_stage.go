package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/entity"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

// TextStage turns a stored document into annotated text and records it on
// both the job and the document.
type TextStage struct {
	Docs      repository.DocumentRepository
	Jobs      repository.ExtractJobRepository
	Extractor extract.Extractor
	ReadFile  func(name string) ([]byte, error)
	Logger    *slog.Logger
}

func NewTextStage(docs repository.DocumentRepository, jobs repository.ExtractJobRepository, ex extract.Extractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{Docs: docs, Jobs: jobs, Extractor: ex, ReadFile: os.ReadFile, Logger: logger}
}

// Run extracts text for doc under an already started job. The job is left
// in TEXT_OK; failures are returned for the processor to record.
func (s *TextStage) Run(ctx context.Context, doc *entity.Document, jobID uuid.UUID) (extract.Result, error) {
	data, err := s.ReadFile(doc.SourcePath)
	if err != nil {
		return extract.Result{}, common.NewAppError(common.CodeNotFound, "source file is not readable", err)
	}

	ctx = common.WithContentHash(ctx, doc.ContentHash)
	res, err := s.Extractor.Extract(ctx, extract.Input{Name: doc.Name, MediaType: doc.MediaType, Data: data})
	if err != nil {
		return res, err
	}

	if err := s.Jobs.FinishOCRSuccess(ctx, jobID, repository.TextOutcome{
		Path:          res.Path,
		Confidence:    res.Confidence,
		LowQuality:    res.LowQuality,
		AnnotatedText: res.Text(),
	}); err != nil {
		return res, err
	}

	fields := make([]entity.Field, 0, len(res.Annotated.Fields))
	for _, f := range res.Annotated.Fields {
		fields = append(fields, entity.Field{Label: f.Label, Match: f.Match, Value: f.Value})
	}
	if err := s.Docs.SaveResult(ctx, doc.ID, repository.DocumentResult{
		Kind:          res.Annotated.Kind,
		Confidence:    res.Confidence,
		LowQuality:    res.LowQuality,
		AnnotatedText: res.Text(),
		Fields:        fields,
	}); err != nil {
		return res, err
	}

	if res.LowQuality {
		s.Logger.Warn("processor.text.low_quality", "document_id", doc.ID, "path", res.Path, "confidence", res.Confidence)
	}
	return res, nil
}
