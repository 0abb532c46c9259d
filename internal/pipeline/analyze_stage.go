package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/internal/analysis"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/entity"
	"github.com/joseph-ayodele/finextract/internal/llm"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

// AnalyzeStage sends annotated text to the analyzer, completes what the
// model left out and stores the transactions.
type AnalyzeStage struct {
	Txs      repository.TransactionRepository
	Jobs     repository.ExtractJobRepository
	Analyzer llm.Analyzer
	Logger   *slog.Logger
}

func NewAnalyzeStage(txs repository.TransactionRepository, jobs repository.ExtractJobRepository, an llm.Analyzer, logger *slog.Logger) *AnalyzeStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeStage{Txs: txs, Jobs: jobs, Analyzer: an, Logger: logger}
}

type modelNamer interface{ Model() string }

// Run analyzes text for doc and moves the job to LLM_OK.
func (s *AnalyzeStage) Run(ctx context.Context, doc *entity.Document, jobID uuid.UUID, text string) (llm.Analysis, error) {
	start := time.Now()
	a, _, err := s.Analyzer.Analyze(ctx, llm.AnalyzeRequest{Text: text, Name: doc.Name})
	if err != nil {
		if common.CodeOf(err) == "" {
			err = common.AnalysisError(err)
		}
		return llm.Analysis{}, err
	}
	a = analysis.Complete(a)

	txs := make([]entity.Transaction, 0, len(a.Transactions))
	for _, t := range a.Transactions {
		d, ok := common.ParseLooseDate(t.Date)
		if !ok {
			continue
		}
		txs = append(txs, entity.Transaction{
			TxDate:      d,
			Description: t.Description,
			Amount:      t.Amount,
			Category:    t.Category,
			Type:        t.Type,
		})
	}
	if _, err := s.Txs.CreateBatch(ctx, doc.ID, txs); err != nil {
		return a, err
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return a, common.AnalysisError(err)
	}
	model := ""
	if m, ok := s.Analyzer.(modelNamer); ok {
		model = m.Model()
	}
	if err := s.Jobs.FinishParseSuccess(ctx, jobID, payload, model); err != nil {
		return a, err
	}

	s.Logger.Info("processor.analyze.ok",
		"document_id", doc.ID,
		"job_id", jobID,
		"kind", a.DocumentType,
		"transactions", len(txs),
		"score", a.FinancialScore.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}
