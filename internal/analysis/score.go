// Package analysis fills in what the semantic analyzer left out: a rule
// based financial score, a monthly rollup and row sanitizing.
package analysis

import (
	"github.com/joseph-ayodele/finextract/internal/llm"
)

// Recommendations emitted by ScoreFromSummary.
const (
	RecRaiseSavings = "Increase your savings rate to at least 10% of income"
	RecOverspending = "Your expenses exceed your income. Consider reducing non-essential expenses"
	RecDiversify    = "Diversify your expenses across more categories for better financial health"
)

type band struct {
	minRate   float64
	inclusive bool
	score     float64
	status    string
}

// bands are checked in order; the first match wins.
var bands = []band{
	{minRate: 30, inclusive: true, score: 90, status: llm.StatusExcellent},
	{minRate: 20, inclusive: true, score: 80, status: llm.StatusGood},
	{minRate: 10, inclusive: true, score: 60, status: llm.StatusFair},
	{minRate: 0, inclusive: false, score: 40, status: llm.StatusPoor},
}

// SavingsRate is net savings as a percentage of income, 0 without income.
func SavingsRate(s llm.Summary) float64 {
	if s.TotalIncome <= 0 {
		return 0
	}
	return s.NetSavings / s.TotalIncome * 100
}

// ScoreFromSummary derives a score from the summary, the number of expense
// categories and the income transactions.
func ScoreFromSummary(s llm.Summary, categories int, txs []llm.Transaction) llm.Score {
	rate := SavingsRate(s)

	score, status := 20.0, llm.StatusPoor
	for _, b := range bands {
		if rate > b.minRate || (b.inclusive && rate == b.minRate) {
			score, status = b.score, b.status
			break
		}
	}

	distribution := 0.0
	if categories > 1 {
		distribution = min(100, float64(categories)*10)
	}

	incomeTx := 0
	for _, t := range txs {
		if t.Type == llm.TxIncome {
			incomeTx++
		}
	}
	stability := 50.0
	if incomeTx > 1 {
		stability = 80
	}

	recs := []string{}
	if rate < 10 {
		recs = append(recs, RecRaiseSavings)
	}
	if rate < 0 {
		recs = append(recs, RecOverspending)
	}
	if distribution < 50 {
		recs = append(recs, RecDiversify)
	}

	return llm.Score{
		Score:  score,
		Status: status,
		Metrics: llm.ScoreMetrics{
			SavingsRate:         rate,
			ExpenseDistribution: distribution,
			IncomeStability:     stability,
		},
		Recommendations: recs,
	}
}

// Complete fills the optional parts of an analysis the model omitted.
// Rows are sanitized first so the rollup only sees valid dates.
func Complete(a llm.Analysis) llm.Analysis {
	a.Transactions = Sanitize(a.Transactions)
	if a.Categories == nil {
		a.Categories = []llm.CategoryShare{}
	}
	if a.FinancialScore == nil {
		s := ScoreFromSummary(a.Summary, len(a.Categories), a.Transactions)
		a.FinancialScore = &s
	}
	if a.MonthlyData == nil && len(a.Transactions) > 0 {
		a.MonthlyData = MonthlyRollup(a.Transactions)
	}
	return a
}
