package analysis

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/llm"
)

// MaxDescriptionLen is the longest description kept on a transaction.
const MaxDescriptionLen = 255

// MonthlyRollup groups transactions by YYYY-MM. Rows whose date does not
// parse are skipped. The result is sorted by month.
func MonthlyRollup(txs []llm.Transaction) []llm.MonthlySummary {
	byMonth := make(map[string]*llm.MonthlySummary)
	for _, t := range txs {
		d, ok := common.ParseLooseDate(strings.TrimSpace(t.Date))
		if !ok {
			continue
		}
		key := d.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &llm.MonthlySummary{Month: key}
			byMonth[key] = m
		}
		if t.Type == llm.TxIncome {
			m.Income += t.Amount
		} else {
			m.Expense += t.Amount
		}
		m.Savings = m.Income - m.Expense
	}

	out := make([]llm.MonthlySummary, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Sanitize drops rows missing a date or a description, clips descriptions,
// replaces unparseable dates with today and forces unknown types to EXPENSE.
// Zero amounts are kept; the analyzer schema already requires an amount.
func Sanitize(txs []llm.Transaction) []llm.Transaction {
	return sanitizeAt(txs, time.Now())
}

func sanitizeAt(txs []llm.Transaction, now time.Time) []llm.Transaction {
	out := make([]llm.Transaction, 0, len(txs))
	today := common.TruncateDay(now).Format("2006-01-02")
	for _, t := range txs {
		t.Date = strings.TrimSpace(t.Date)
		t.Description = strings.TrimSpace(t.Description)
		if t.Date == "" || t.Description == "" {
			continue
		}
		if d, ok := common.ParseLooseDate(t.Date); ok {
			t.Date = d.Format("2006-01-02")
		} else {
			t.Date = today
		}
		if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
			t.Description = string([]rune(t.Description)[:MaxDescriptionLen])
		}
		if t.Type != llm.TxIncome {
			t.Type = llm.TxExpense
		}
		t.Category = strings.TrimSpace(t.Category)
		if t.Category == "" {
			t.Category = "Uncategorized"
		}
		out = append(out, t)
	}
	return out
}
