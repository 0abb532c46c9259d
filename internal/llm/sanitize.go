package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/joseph-ayodele/finextract/internal/common"
)

var topLevelKeys = map[string]struct{}{
	"transactions": {}, "summary": {}, "categories": {},
	"financialScore": {}, "monthlyData": {}, "documentType": {},
}

// NormalizeAndSanitizeJSON coerces a loosely-shaped analysis into the schema:
//   - renames snake_case synonyms (financial_score -> financialScore)
//   - drops null optionals and unknown top-level keys
//   - coerces money strings to numbers and dates to YYYY-MM-DD
//   - drops transactions that cannot satisfy the schema
//
// It returns the cleaned JSON and a list of what changed.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}
	rename("financial_score", "financialScore")
	rename("monthly_data", "monthlyData")
	rename("document_type", "documentType")

	for k := range maps.Clone(m) {
		if _, ok := topLevelKeys[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if m[k] == nil {
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		}
	}

	rows, _ := m["transactions"].([]any)
	kept := make([]any, 0, len(rows))
	for i, r := range rows {
		tx, ok := r.(map[string]any)
		if !ok || !sanitizeTransaction(tx) {
			dropped = append(dropped, fmt.Sprintf("transactions[%d]", i))
			continue
		}
		kept = append(kept, tx)
	}
	m["transactions"] = kept

	if s, ok := m["summary"].(map[string]any); ok {
		coerceNumbers(s, "totalIncome", "totalExpense", "netSavings")
	} else if _, present := m["summary"]; present {
		delete(m, "summary")
		dropped = append(dropped, "summary(type)")
	}
	if cats, ok := m["categories"].([]any); ok {
		for _, c := range cats {
			if cm, ok := c.(map[string]any); ok {
				coerceNumbers(cm, "amount", "percentage")
			}
		}
	}
	if sc, ok := m["financialScore"].(map[string]any); ok {
		coerceNumbers(sc, "score")
		if st, ok := sc["status"].(string); ok {
			sc["status"] = strings.ToUpper(strings.TrimSpace(st))
		}
		if mt, ok := sc["metrics"].(map[string]any); ok {
			coerceNumbers(mt, "savingsRate", "expenseDistribution", "incomeStability", "debtToIncome")
		}
	}
	if months, ok := m["monthlyData"].([]any); ok {
		for _, mo := range months {
			if mm, ok := mo.(map[string]any); ok {
				coerceNumbers(mm, "income", "expense", "savings")
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.analyze.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// sanitizeTransaction fixes a row in place and reports whether it is usable.
func sanitizeTransaction(tx map[string]any) bool {
	for _, k := range []string{"date", "description"} {
		s, _ := tx[k].(string)
		s = strings.TrimSpace(s)
		if s == "" {
			return false
		}
		tx[k] = s
	}
	if t, ok := common.ParseLooseDate(tx["date"].(string)); ok {
		tx["date"] = t.Format("2006-01-02")
	}
	if !coerceNumber(tx, "amount") {
		return false
	}
	t, _ := tx["type"].(string)
	if strings.EqualFold(strings.TrimSpace(t), TxIncome) {
		tx["type"] = TxIncome
	} else {
		tx["type"] = TxExpense
	}
	if c, ok := tx["category"]; ok {
		if s, ok := c.(string); ok {
			tx["category"] = strings.TrimSpace(s)
		} else {
			delete(tx, "category")
		}
	}
	return true
}

func coerceNumbers(m map[string]any, keys ...string) {
	for _, k := range keys {
		if _, ok := m[k]; ok && !coerceNumber(m, k) {
			delete(m, k)
		}
	}
}

func coerceNumber(m map[string]any, k string) bool {
	switch v := m[k].(type) {
	case float64:
		return true
	case string:
		f, ok := ParseAmount(v)
		if ok {
			m[k] = f
		}
		return ok
	}
	return false
}
