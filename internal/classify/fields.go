package classify

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/finextract/constants"
)

// ExtractedField is one labelled match. Match is the whole matched text,
// Value the captured value; neither is parsed further.
type ExtractedField struct {
	Label string
	Match string
	Value string
}

type fieldPattern struct {
	label string
	re    *regexp.Regexp
}

// Value captures use [ \t] rather than \s so a value never runs onto the next line.
const (
	currencyPrefix = `(?:Rs\.?|INR|₹)?[ \t]?`
	money          = `(\d+(?:,\d+)*(?:\.\d{2})?)`
	balance        = `((?:Rs\.?|INR|₹)?[ \t]?\d+(?:,\d+)*(?:\.\d{1,2})?)`
	freeText       = `([A-Za-z0-9 \t\-/]+)`
)

func field(label, pattern string) fieldPattern {
	return fieldPattern{label: label, re: regexp.MustCompile(pattern)}
}

var fieldTables = map[constants.DocumentKind][]fieldPattern{
	constants.BankStatement: {
		field("ACCOUNT_NUMBER", `(?i)\b(?:A/c|Account|Acct|Acc)(?:\s*(?:Number|No|#)\.?)?[\s#:.]*(\d[A-Z0-9]{5,}|[A-Z]{1,4}\d[A-Z0-9]{4,})`),
		field("OPENING_BALANCE", `(?i)(?:opening|previous|begin)(?:ing)?\s+(?:balance|bal)[\s:.]*`+balance),
		field("CLOSING_BALANCE", `(?i)(?:closing|ending|final|end)\s+(?:balance|bal)[\s:.]*`+balance),
	},
	constants.SalarySlip: {
		field("EMPLOYEE_ID", `(?i)\b(?:employee|emp)\s+(?:no|number|id|code)[\s:.]*([A-Z0-9]{2,})`),
		field("BASIC_SALARY", `(?i)\b(?:basic|base)\s+(?:salary|pay|wage)[\s:.]*`+currencyPrefix+money),
		field("HRA", `(?i)\b(?:hra|house\s+rent\s+allowance)[\s:.]*`+currencyPrefix+money),
		field("GROSS_SALARY", `(?i)\b(?:gross|total)\s+(?:salary|pay|earnings)[\s:.]*`+currencyPrefix+money),
		field("NET_SALARY", `(?i)\b(?:net|take\s+home)\s+(?:salary|pay)[\s:.]*`+currencyPrefix+money),
	},
	constants.Form16: {
		field("ASSESSMENT_YEAR", `(?i)\b(?:assessment|ay)\s+year[\s:.]*([0-9]{4}-[0-9]{2,4})`),
		field("PAN_EMPLOYEE", `(?i)\bpan\s+(?:of\s+)?(?:employee|deductee)[\s:.]*([A-Z]{5}[0-9]{4}[A-Z])`),
		field("TOTAL_TAX_DEDUCTED", `(?i)\b(?:total|sum)\s+(?:tax|tds)\s+deducted[\s:.]*`+currencyPrefix+money),
	},
	constants.UtilityBill: {
		field("BILL_NUMBER", `(?i)\b(?:bill|invoice|statement)\s+(?:no|number|#)[\s:.]*([A-Z0-9]{6,})`),
		field("CONSUMER_NUMBER", `(?i)\b(?:consumer|customer|connection)\s+(?:no|number|id)[\s:.]*([A-Z0-9]{6,})`),
		field("BILL_PERIOD", `(?i)\b(?:bill|statement)\s+(?:period|cycle|for)[\s:.]*`+freeText),
		field("DUE_DATE", `(?i)\b(?:due|payment)\s+(?:date|by)[\s:.]*`+freeText),
		field("UNITS_CONSUMED", `(?i)\b(?:units|consumption|used|consumed)[\s:.]*([0-9]+(?:\.\d+)?)`),
	},
	constants.Cheque: {
		field("CHEQUE_NUMBER", `(?i)\b(?:cheque|check|chq)\s+(?:no|number|#)[\s:.]*([0-9]{6,})`),
		field("PAYEE", `(?i)\b(?:pay|payable)\s+(?:to(?:\s+the\s+order\s+of)?|in\s+favou?r\s+of)[\s:.]*([A-Za-z \t]+)`),
		field("AMOUNT", `(?i)\b(?:amount|sum|rupees)[\s:.]*`+currencyPrefix+money),
		field("DATE", `(?i)\bdate[\s:.]*`+freeText),
	},
}

// Labels lists the field labels extracted for kind, in output order.
func Labels(kind constants.DocumentKind) []string {
	table := fieldTables[kind]
	out := make([]string, 0, len(table))
	for _, f := range table {
		out = append(out, f.label)
	}
	return out
}

// ExtractFields runs kind's field table over text. Each pattern contributes
// at most its first match; patterns that do not match are omitted.
func ExtractFields(kind constants.DocumentKind, text string) []ExtractedField {
	var out []ExtractedField
	for _, f := range fieldTables[kind] {
		m := f.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		ef := ExtractedField{Label: f.label, Match: m[0]}
		if len(m) > 1 {
			ef.Value = strings.TrimSpace(m[1])
		}
		out = append(out, ef)
	}
	return out
}
