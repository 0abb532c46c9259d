// Package llm holds the semantic analyzer contract: annotated document text
// in, transactions and a financial summary out.
package llm

import (
	"context"

	"github.com/joseph-ayodele/finextract/constants"
)

// Transaction types.
const (
	TxIncome  = "INCOME"
	TxExpense = "EXPENSE"
)

// Score statuses, best first.
const (
	StatusExcellent = "EXCELLENT"
	StatusGood      = "GOOD"
	StatusFair      = "FAIR"
	StatusPoor      = "POOR"
)

// InsufficientData is the recommendation given when there is nothing to analyze.
const InsufficientData = "Insufficient data for analysis"

// MinTextLength is the trimmed length below which no analysis is attempted.
const MinTextLength = 10

type Transaction struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
	Type        string  `json:"type"` // INCOME | EXPENSE
}

type Summary struct {
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	NetSavings   float64 `json:"netSavings"`
}

type CategoryShare struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type ScoreMetrics struct {
	SavingsRate         float64 `json:"savingsRate"`
	ExpenseDistribution float64 `json:"expenseDistribution"`
	IncomeStability     float64 `json:"incomeStability"`
	DebtToIncome        float64 `json:"debtToIncome"`
}

type Score struct {
	Score           float64      `json:"score"` // 0..100
	Status          string       `json:"status"`
	Metrics         ScoreMetrics `json:"metrics"`
	Recommendations []string     `json:"recommendations"`
}

type MonthlySummary struct {
	Month   string  `json:"month"` // YYYY-MM
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Savings float64 `json:"savings"`
}

// Analysis is the structured result of analyzing one document.
// FinancialScore and MonthlyData are nil when the model omitted them.
type Analysis struct {
	Transactions   []Transaction          `json:"transactions"`
	Summary        Summary                `json:"summary"`
	Categories     []CategoryShare        `json:"categories"`
	FinancialScore *Score                 `json:"financialScore,omitempty"`
	MonthlyData    []MonthlySummary       `json:"monthlyData,omitempty"`
	DocumentType   constants.DocumentKind `json:"documentType,omitempty"`
}

type AnalyzeRequest struct {
	// Text is the annotated text produced by the extraction core.
	Text string
	// Kind overrides detection when the caller already knows it.
	Kind constants.DocumentKind
	Name string
}

// Analyzer is the black-box collaborator the pipeline depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, []byte /*rawJSON*/, error)
}

// Insufficient is the result for text too short to analyze.
func Insufficient(kind constants.DocumentKind) Analysis {
	return Analysis{
		Transactions: []Transaction{},
		Categories:   []CategoryShare{},
		FinancialScore: &Score{
			Score:           0,
			Status:          StatusPoor,
			Recommendations: []string{InsufficientData},
		},
		DocumentType: kind,
	}
}
