// Package classify assigns a document kind to cleaned text and pulls out
// the salient fields for that kind.
package classify

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
)

type indicator struct {
	kind constants.DocumentKind
	re   *regexp.Regexp
}

// indicators are checked in priority order; the first hit wins.
var indicators = []indicator{
	{constants.SalarySlip, regexp.MustCompile(`(?i)\b(?:salary|payslip|pay\s+slip|earnings|deductions|basic|hra|da|ta|pf|gross|net\s+pay)\b`)},
	{constants.Form16, regexp.MustCompile(`(?i)\b(?:form\s+16|form-16|tds\s+certificate|income\s+tax|assessment\s+year|pan\s+of\s+deductor|pan\s+of\s+employee)\b`)},
	{constants.Cheque, regexp.MustCompile(`(?i)\b(?:cheque|check|pay\s+to\s+the\s+order\s+of|bearer|authori[sz]ed\s+signature)\b`)},
	{constants.UtilityBill, regexp.MustCompile(`(?i)\b(?:electricity|water|gas|telephone|mobile|internet|bill|consumer|meter\s+reading|units\s+consumed|due\s+date)\b`)},
	{constants.BankStatement, regexp.MustCompile(`(?i)\b(?:statement|account|opening\s+balance|closing\s+balance|withdrawal|deposit|transaction|credit|debit)\b`)},
}

// Classify returns the first kind whose indicators appear in text.
func Classify(text string) constants.DocumentKind {
	if strings.TrimSpace(text) == "" {
		return constants.Unknown
	}
	for _, ind := range indicators {
		if ind.re.MatchString(text) {
			return ind.kind
		}
	}
	return constants.Unknown
}
