package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
)

func TestDetectKindPrefersHeader(t *testing.T) {
	text := "DOCUMENT_TYPE: UTILITY_BILL\n\nsalary slip for march"
	assert.Equal(t, constants.UtilityBill, DetectKind(text))
}

func TestDetectKindFallback(t *testing.T) {
	cases := map[string]constants.DocumentKind{
		"Salary slip for March":                constants.SalarySlip,
		"salary payment this month":            constants.SalarySlip,
		"FORM 16 part B":                       constants.Form16,
		"Pay to the order of, cheque no 12":    constants.Cheque,
		"Electricity bill for May":             constants.UtilityBill,
		"Account statement, 3 transactions":    constants.BankStatement,
		"hello world":                          constants.Unknown,
		"DOCUMENT_TYPE: NOT_A_KIND\nstatement": constants.BankStatement,
	}
	for in, want := range cases {
		assert.Equal(t, want, DetectKind(in), in)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", "Here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"nothing", "no json here", "no json here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSON(tc.in))
		})
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"₹1,200.00", 1200, true},
		{"Rs. 45", 45, true},
		{"INR 1,000", 1000, true},
		{"(12.50)", -12.5, true},
		{"-45.5", -45.5, true},
		{"$ 3", 3, true},
		{"n/a", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}
}

func TestNormalizeAndSanitizeJSON(t *testing.T) {
	raw := `{
		"transactions": [
			{"date": "01/02/2024", "description": " Salary ", "amount": "₹50,000.00", "type": "income", "category": "Salary"},
			{"date": "", "description": "no date", "amount": 1, "type": "EXPENSE"},
			{"date": "2024-02-03", "description": "Rent", "amount": "n/a", "type": "EXPENSE"},
			{"date": "2024-02-04", "description": "Groceries", "amount": 12.5, "type": "debit", "category": 7}
		],
		"financial_score": null,
		"notes": "model chatter",
		"summary": {"totalIncome": "50000", "totalExpense": 12.5}
	}`

	require.Error(t, ValidateAnalysisJSON([]byte(raw)))

	cleaned, dropped, err := NormalizeAndSanitizeJSON([]byte(raw), nil)
	require.NoError(t, err)
	require.NoError(t, ValidateAnalysisJSON(cleaned))
	assert.Contains(t, dropped, "notes(unknown)")
	assert.Contains(t, dropped, "transactions[1]")
	assert.Contains(t, dropped, "transactions[2]")
	assert.Contains(t, dropped, "financialScore(null)")

	var a Analysis
	require.NoError(t, json.Unmarshal(cleaned, &a))
	require.Len(t, a.Transactions, 2)
	assert.Equal(t, Transaction{Date: "2024-02-01", Description: "Salary", Amount: 50000, Category: "Salary", Type: TxIncome}, a.Transactions[0])
	assert.Equal(t, TxExpense, a.Transactions[1].Type)
	assert.Empty(t, a.Transactions[1].Category)
	assert.Equal(t, 50000.0, a.Summary.TotalIncome)
	assert.Nil(t, a.FinancialScore)
}

func TestSanitizeRejectsNonJSON(t *testing.T) {
	_, _, err := NormalizeAndSanitizeJSON([]byte("not json"), nil)
	assert.Error(t, err)
}

func TestValidateAnalysisJSON(t *testing.T) {
	ok := `{"transactions":[{"date":"2024-01-01","description":"x","amount":1,"type":"EXPENSE"}],
		"financialScore":{"score":80,"status":"GOOD","recommendations":["keep going"]},
		"monthlyData":[{"month":"2024-01","income":0,"expense":1,"savings":-1}]}`
	assert.NoError(t, ValidateAnalysisJSON([]byte(ok)))

	bad := []string{
		`{}`,
		`{"transactions":[{"date":"2024-01-01","description":"x","amount":"1","type":"EXPENSE"}]}`,
		`{"transactions":[],"financialScore":{"score":180,"status":"GOOD"}}`,
		`{"transactions":[],"monthlyData":[{"month":"Jan 2024"}]}`,
	}
	for _, b := range bad {
		assert.Error(t, ValidateAnalysisJSON([]byte(b)), b)
	}
}

func TestBuildSystemPromptPerKind(t *testing.T) {
	assert.Contains(t, BuildSystemPrompt(constants.Form16), "tax document analyzer")
	assert.Contains(t, BuildSystemPrompt(constants.SalarySlip), "3. Deductions (PF, TDS, etc.)")
	assert.Contains(t, BuildSystemPrompt(constants.UtilityBill), "utility bill analyzer")
	assert.Contains(t, BuildSystemPrompt(constants.Cheque), "Payment to <payee>")
	assert.Contains(t, BuildSystemPrompt(constants.BankStatement), "extract ALL transactions")
	assert.Contains(t, BuildSystemPrompt(constants.Unknown), "extract ALL transactions")
}

func TestBuildUserPromptTruncates(t *testing.T) {
	p := BuildUserPrompt(strings.Repeat("₹", 20), 5)
	assert.Equal(t, "Document text:\n₹₹₹₹₹\n…(truncated)", p)
	assert.Equal(t, "Document text:\nshort", BuildUserPrompt("  short \n", 0))
}

func TestInsufficient(t *testing.T) {
	a := Insufficient(constants.Cheque)
	require.NotNil(t, a.FinancialScore)
	assert.Zero(t, a.FinancialScore.Score)
	assert.Equal(t, StatusPoor, a.FinancialScore.Status)
	assert.Equal(t, []string{InsufficientData}, a.FinancialScore.Recommendations)
	assert.Empty(t, a.Transactions)
	assert.Equal(t, constants.Cheque, a.DocumentType)
}
