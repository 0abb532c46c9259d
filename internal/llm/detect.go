package llm

import (
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/classify"
)

// DetectKind reads the DOCUMENT_TYPE header written by the extraction core.
// Text without a header falls back to a coarse keyword check.
func DetectKind(text string) constants.DocumentKind {
	if k, ok := classify.KindFromAnnotated(text); ok {
		return k
	}
	l := strings.ToLower(text)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(l, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("salary") && has("slip", "pay"):
		return constants.SalarySlip
	case has("form") && has("16", "tax", "income"):
		return constants.Form16
	case has("cheque", "check"):
		return constants.Cheque
	case has("bill", "utility", "electricity", "water", "gas"):
		return constants.UtilityBill
	case has("statement", "account", "transaction"):
		return constants.BankStatement
	}
	return constants.Unknown
}
