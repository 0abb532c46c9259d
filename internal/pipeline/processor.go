// Package pipeline runs a stored document through the extraction core and
// the semantic analyzer, keeping an extract_jobs row per attempt.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/llm"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

// Outcome is what one ProcessDocument call produced.
type Outcome struct {
	DocumentID uuid.UUID
	JobID      uuid.UUID
	Text       extract.Result
	// Analysis is nil when no analyzer is configured.
	Analysis *llm.Analysis
}

// Processor coordinates text extraction then analysis.
type Processor struct {
	logger  *slog.Logger
	docs    repository.DocumentRepository
	jobs    repository.ExtractJobRepository
	text    *TextStage
	analyze *AnalyzeStage
}

// NewProcessor wires both stages. A nil analyzer stops processing after
// the text stage.
func NewProcessor(
	logger *slog.Logger,
	docs repository.DocumentRepository,
	txs repository.TransactionRepository,
	jobs repository.ExtractJobRepository,
	ex extract.Extractor,
	an llm.Analyzer,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger: logger,
		docs:   docs,
		jobs:   jobs,
		text:   NewTextStage(docs, jobs, ex, logger),
	}
	if an != nil {
		p.analyze = NewAnalyzeStage(txs, jobs, an, logger)
	}
	return p
}

// ProcessDocument extracts and analyzes one stored document. On failure
// the job is FAILED and the document ERROR, both carrying the error code.
func (p *Processor) ProcessDocument(ctx context.Context, docID uuid.UUID) (Outcome, error) {
	start := time.Now()
	out := Outcome{DocumentID: docID}
	ctx, rid := common.EnsureRequestID(ctx)
	ctx = common.WithDocumentID(ctx, docID)

	doc, err := p.docs.GetByID(ctx, docID)
	if err != nil {
		return out, err
	}
	if err := p.docs.UpdateStatus(ctx, doc.ID, constants.DocumentProcessing, ""); err != nil {
		return out, err
	}
	job, err := p.jobs.Start(ctx, doc.ID, doc.Format)
	if err != nil {
		p.markDocument(ctx, doc.ID, err)
		return out, err
	}
	out.JobID = job.ID

	// 1) text stage: dispatcher -> annotated text, job TEXT_OK
	res, err := p.text.Run(ctx, doc, job.ID)
	if err != nil {
		p.logger.Error("processor.ocr.failed", "document_id", doc.ID, "job_id", job.ID, "code", common.CodeOf(err), "err", err)
		p.fail(ctx, doc.ID, job.ID, err)
		return out, err
	}
	out.Text = res
	p.logger.Debug("processor extract stage success",
		"document_id", doc.ID,
		"job_id", job.ID,
		"path", res.Path,
		"pages", res.Pages,
		"confidence", res.Confidence,
	)

	// 2) analyze stage: analyzer -> transactions, job LLM_OK
	if p.analyze != nil {
		a, err := p.analyze.Run(ctx, doc, job.ID, res.Text())
		if err != nil {
			p.logger.Error("processor.parse.failed", "document_id", doc.ID, "job_id", job.ID, "code", common.CodeOf(err), "err", err)
			p.fail(ctx, doc.ID, job.ID, err)
			return out, err
		}
		out.Analysis = &a
	} else if err := p.jobs.MarkFinished(ctx, job.ID); err != nil {
		p.fail(ctx, doc.ID, job.ID, err)
		return out, err
	}

	if err := p.docs.UpdateStatus(ctx, doc.ID, constants.DocumentCompleted, ""); err != nil {
		return out, err
	}
	p.logger.Info("processor.ok",
		"req_id", rid,
		"document_id", doc.ID,
		"job_id", job.ID,
		"kind", res.Annotated.Kind,
		"analyzed", out.Analysis != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// fail records err on the job and the document. The writes outlive a
// cancelled ctx so a timed out run is still marked.
func (p *Processor) fail(ctx context.Context, docID, jobID uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := p.jobs.FinishFailure(ctx, jobID, codeOrInternal(cause), common.MessageOf(cause)); err != nil {
		p.logger.Warn("processor.job.mark_failed", "job_id", jobID, "err", err)
	}
	p.markDocument(ctx, docID, cause)
}

func (p *Processor) markDocument(ctx context.Context, docID uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)
	msg := codeOrInternal(cause) + ": " + common.MessageOf(cause)
	if err := p.docs.UpdateStatus(ctx, docID, constants.DocumentError, msg); err != nil {
		p.logger.Warn("processor.document.mark_failed", "document_id", docID, "err", err)
	}
}

func codeOrInternal(err error) string {
	if c := common.CodeOf(err); c != "" {
		return c
	}
	return "INTERNAL"
}
