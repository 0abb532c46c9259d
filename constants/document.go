package constants

import "strings"

// DocumentKind is the classification assigned to cleaned document text.
type DocumentKind string

const (
	BankStatement DocumentKind = "BANK_STATEMENT"
	SalarySlip    DocumentKind = "SALARY_SLIP"
	Form16        DocumentKind = "FORM_16"
	UtilityBill   DocumentKind = "UTILITY_BILL"
	Cheque        DocumentKind = "CHEQUE"
	Unknown       DocumentKind = "UNKNOWN"
)

var allKinds = []DocumentKind{
	BankStatement,
	SalarySlip,
	Form16,
	UtilityBill,
	Cheque,
	Unknown,
}

func (k DocumentKind) String() string { return string(k) }

// KindsAsStrings lists every kind, UNKNOWN last.
func KindsAsStrings() []string {
	result := make([]string, len(allKinds))
	for i, k := range allKinds {
		result[i] = string(k)
	}
	return result
}

// CanonicalizeKind maps a label (including legacy spellings) to a DocumentKind.
func CanonicalizeKind(input string) (DocumentKind, bool) {
	if input == "" {
		return Unknown, false
	}

	normalized := strings.ToUpper(strings.TrimSpace(input))

	synonyms := map[string]DocumentKind{
		"CHECK":          Cheque,
		"OTHER":          Unknown,
		"FORM16":         Form16,
		"FORM-16":        Form16,
		"PAYSLIP":        SalarySlip,
		"STATEMENT":      BankStatement,
		"BANK STATEMENT": BankStatement,
	}
	if k, ok := synonyms[normalized]; ok {
		return k, true
	}

	for _, k := range allKinds {
		if normalized == string(k) {
			return k, true
		}
	}
	return Unknown, false
}
