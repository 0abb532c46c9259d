// Package export renders stored documents and their analyzed transactions
// as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/finextract/internal/analysis"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/entity"
	"github.com/joseph-ayodele/finextract/internal/llm"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

const (
	SheetDocuments    = "Documents"
	SheetTransactions = "Transactions"
	SheetSummary      = "Summary"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	docs   repository.DocumentRepository
	txs    repository.TransactionRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, txs repository.TransactionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, txs: txs, logger: logger}
}

// ExportXLSX returns a workbook for the given date window. Documents are
// filtered by ingest date and transactions by transaction date.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> everything.
func (s *Service) ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	lo, hi := window(from, to, time.Now())

	docs, err := s.docs.List(ctx, repository.ListFilter{From: lo, To: hi})
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	txs, err := s.txs.ListBetween(ctx, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	names, err := s.documentNames(ctx, docs, txs)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetDocuments); err != nil {
		return nil, err
	}
	for _, sheet := range []string{SheetTransactions, SheetSummary} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}

	if err := writeDocuments(f, docs); err != nil {
		return nil, err
	}
	if err := writeTransactions(f, txs, names); err != nil {
		return nil, err
	}
	if err := writeSummary(f, txs); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetDocuments)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(docs),
		"transactions", len(txs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// window turns inclusive calendar days into a half-open UTC range.
func window(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	var lo, hi *time.Time
	if from != nil {
		d := common.TruncateDay(*from)
		lo = &d
		if to == nil {
			to = &now
		}
	}
	if to != nil {
		d := common.TruncateDay(*to).AddDate(0, 0, 1)
		hi = &d
	}
	return lo, hi
}

func (s *Service) documentNames(ctx context.Context, docs []*entity.Document, txs []*entity.Transaction) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}
	for _, t := range txs {
		if _, ok := names[t.DocumentID]; ok {
			continue
		}
		d, err := s.docs.GetByID(ctx, t.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("load document %s: %w", t.DocumentID, err)
		}
		names[d.ID] = d.Name
	}
	return names, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeHeader(f *excelize.File, sheet string, headers ...any) error {
	if err := writeRow(f, sheet, 1, headers...); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", end, style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeDocuments(f *excelize.File, docs []*entity.Document) error {
	if err := writeHeader(f, SheetDocuments,
		"File", "Kind", "Status", "Confidence", "Low Quality", "Fields", "Error", "Ingested At"); err != nil {
		return err
	}
	for i, d := range docs {
		kind, conf, errMsg := "", "", ""
		if d.Kind != nil {
			kind = string(*d.Kind)
		}
		if d.Confidence != nil {
			conf = fmt.Sprintf("%.1f", *d.Confidence)
		}
		if d.ErrorMessage != nil {
			errMsg = *d.ErrorMessage
		}
		if err := writeRow(f, SheetDocuments, i+2,
			d.Name, kind, string(d.Status), conf, d.LowQuality, formatFields(d.Fields), truncate(errMsg, 140),
			d.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetDocuments, "A", "A", 32)
	_ = f.SetColWidth(SheetDocuments, "B", "E", 16)
	_ = f.SetColWidth(SheetDocuments, "F", "G", 48)
	_ = f.SetColWidth(SheetDocuments, "H", "H", 22)
	return nil
}

func writeTransactions(f *excelize.File, txs []*entity.Transaction, names map[uuid.UUID]string) error {
	if err := writeHeader(f, SheetTransactions,
		"Date", "Description", "Category", "Type", "Amount", "Document"); err != nil {
		return err
	}
	for i, t := range txs {
		if err := writeRow(f, SheetTransactions, i+2,
			t.TxDate.UTC().Format(common.DateLayout), t.Description, t.Category, t.Type, t.Amount,
			names[t.DocumentID]); err != nil {
			return err
		}
	}
	if len(txs) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(5, len(txs)+1)
		if err := f.SetCellStyle(SheetTransactions, "E2", end, style); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetTransactions, "A", "A", 14)
	_ = f.SetColWidth(SheetTransactions, "B", "B", 48)
	_ = f.SetColWidth(SheetTransactions, "C", "D", 16)
	_ = f.SetColWidth(SheetTransactions, "E", "E", 14)
	_ = f.SetColWidth(SheetTransactions, "F", "F", 32)
	return nil
}

// writeSummary totals the exported transactions and scores them the way a
// single analysis without a model score is scored.
func writeSummary(f *excelize.File, txs []*entity.Transaction) error {
	var (
		sum        llm.Summary
		rows       = make([]llm.Transaction, 0, len(txs))
		categories = map[string]struct{}{}
	)
	for _, t := range txs {
		if t.Type == llm.TxIncome {
			sum.TotalIncome += t.Amount
		} else {
			sum.TotalExpense += t.Amount
			categories[t.Category] = struct{}{}
		}
		rows = append(rows, llm.Transaction{
			Date: t.TxDate.UTC().Format(common.DateLayout), Description: t.Description,
			Amount: t.Amount, Category: t.Category, Type: t.Type,
		})
	}
	sum.NetSavings = sum.TotalIncome - sum.TotalExpense
	score := analysis.ScoreFromSummary(sum, len(categories), rows)

	lines := [][]any{
		{"Total Income", sum.TotalIncome},
		{"Total Expense", sum.TotalExpense},
		{"Net Savings", sum.NetSavings},
		{"Savings Rate %", analysis.SavingsRate(sum)},
		{"Financial Score", score.Score},
		{"Status", score.Status},
		{"Recommendations", strings.Join(score.Recommendations, "\n")},
	}
	for i, l := range lines {
		if err := writeRow(f, SheetSummary, i+1, l...); err != nil {
			return err
		}
	}

	if err := writeRow(f, SheetSummary, len(lines)+2, "Month", "Income", "Expense", "Savings"); err != nil {
		return err
	}
	for i, m := range analysis.MonthlyRollup(rows) {
		if err := writeRow(f, SheetSummary, len(lines)+3+i, m.Month, m.Income, m.Expense, m.Savings); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 20)
	_ = f.SetColWidth(SheetSummary, "B", "D", 16)
	return nil
}

func formatFields(fields []entity.Field) string {
	parts := make([]string, 0, len(fields))
	for _, fl := range fields {
		parts = append(parts, fl.Label+": "+fl.Value)
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
