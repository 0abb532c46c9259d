package llm

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
)

// DefaultMaxPromptChars bounds the document text sent to the model.
const DefaultMaxPromptChars = 12000

type kindPrompt struct {
	role     string
	lookFor  []string
	date     string
	category string
	typeRule string
}

var kindPrompts = map[constants.DocumentKind]kindPrompt{
	constants.Form16: {
		role:     "You are a tax document analyzer. Analyze the following Form 16 or tax certificate and extract all financial information.",
		lookFor:  []string{"Salary details", "Tax deducted at source (TDS)", "Any allowances or deductions", "Total income", "Net taxable income"},
		date:     "Use the financial year end date if a specific date is not available.",
		category: "Salary/TDS/Allowance/Deduction",
		typeRule: "TDS and deductions are EXPENSE; salary and allowances are INCOME.",
	},
	constants.SalarySlip: {
		role:     "You are a salary slip analyzer. Analyze the following salary slip and extract all financial information.",
		lookFor:  []string{"Basic salary", "Allowances (HRA, DA, TA, etc.)", "Deductions (PF, TDS, etc.)", "Gross salary", "Net salary"},
		date:     "Use the salary month date if available.",
		category: "Basic/HRA/DA/TA/PF/TDS/etc.",
		typeRule: "Deductions are EXPENSE; earnings are INCOME.",
	},
	constants.UtilityBill: {
		role:     "You are a utility bill analyzer. Analyze the following utility bill and extract all financial information.",
		lookFor:  []string{"Bill amount", "Due date", "Previous balance", "Current charges", "Any taxes or fees"},
		date:     "Use the bill date or due date.",
		category: "Electricity/Water/Gas/Internet/Phone/etc.",
		typeRule: "Every charge is EXPENSE.",
	},
	constants.Cheque: {
		role:     "You are a cheque analyzer. Analyze the following cheque and extract all financial information.",
		lookFor:  []string{"Cheque amount", "Date", "Payee", "Cheque number"},
		date:     "Use the cheque date.",
		category: "Cheque Payment",
		typeRule: "The payment is EXPENSE; describe it as \"Payment to <payee>\".",
	},
}

var defaultPrompt = kindPrompt{
	role: "You are a financial document analyzer. Analyze the following financial document text and extract ALL transactions. " +
		"Even if the text is messy or incomplete, try to identify any possible transactions.",
	lookFor: []string{
		"Dates in any format (DD/MM/YYYY, DD-MM-YYYY, etc.)",
		"Amounts that look like currency values (they may carry ₹ or other symbols)",
		"Descriptions near the dates and amounts",
	},
	date:     "Use today's date if unclear.",
	category: "Food, Transport, Salary, ...; use \"Uncategorized\" when unsure",
	typeRule: "If you cannot tell income from expense, use EXPENSE.",
}

// BuildSystemPrompt composes the instructions for a document kind.
func BuildSystemPrompt(kind constants.DocumentKind) string {
	p, ok := kindPrompts[kind]
	if !ok {
		p = defaultPrompt
	}

	var b strings.Builder
	b.WriteString(p.role)
	b.WriteString("\n\nLook for:\n")
	for i, item := range p.lookFor {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(item)
		b.WriteByte('\n')
	}
	parts := []string{
		"",
		"Return ONLY JSON that matches the provided JSON Schema. No markdown fences, no extra text.",
		"Dates are ISO-8601 (YYYY-MM-DD). " + p.date,
		"Amounts are plain numbers without currency symbols or thousands separators.",
		"Categories: " + p.category + ".",
		"Transaction type is INCOME or EXPENSE. " + p.typeRule,
		"Include summary (totalIncome, totalExpense, netSavings), categories with percentages, " +
			"financialScore (0-100 with EXCELLENT/GOOD/FAIR/POOR status, metrics and recommendations) and monthlyData (YYYY-MM) when you can.",
		"The text may start with a DOCUMENT_TYPE header and end with an EXTRACTED_DATA block of fields already found by rules; treat those as hints.",
		"Never output null. If a field is not present, omit it.",
	}
	b.WriteString(strings.Join(parts, "\n"))
	return b.String()
}

// BuildUserPrompt packages the document text, truncated to maxChars runes.
func BuildUserPrompt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.WriteString("Document text:\n")
	if r := []rune(text); len(r) > maxChars {
		b.WriteString(string(r[:maxChars]))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
