// Package normalize repairs common recognition errors in financial text.
//
// Normalize is pure and idempotent: running it on its own output is a no-op.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

var reCRLF = regexp.MustCompile(`\r\n?`)

// termFixes are literal misreadings of financial vocabulary.
var termFixes = strings.NewReplacer(
	"lnvoice", "Invoice",
	"Arnount", "Amount",
	"Payrnent", "Payment",
	"Custorner", "Customer",
	"Consurner", "Consumer",
	"Staternent", "Statement",
	"Accounl", "Account",
	"Ernployee", "Employee",
	"Incorne", "Income",
	"Assessrnent", "Assessment",
	"Deduclion", "Deduction",
	"Eleclricity", "Electricity",
	"Waler", "Water",
	"Ulility", "Utility",
	"Conlribution", "Contribution",
	"Salaly", "Salary",
	"FORM NO 16", "FORM 16",
	"FORM N0 16", "FORM 16",
	"F0RM 16", "FORM 16",
	"CHECK", "CHEQUE",
)

// confusions maps letters tesseract commonly reads in place of digits.
var confusions = map[rune]rune{
	'o': '0', 'O': '0',
	'l': '1', 'I': '1',
	's': '5', 'S': '5',
	'g': '9', 'G': '9',
	'z': '2', 'Z': '2',
}

var reNumericRun = regexp.MustCompile(`[0-9oOlIsSgGzZ]+`)

type rule struct {
	re   *regexp2.Regexp
	repl string
}

func mustRule(pattern, repl string) rule {
	return rule{re: regexp2.MustCompile(pattern, regexp2.None), repl: repl}
}

// Spacing rules only look at literal spaces so tabs and line breaks survive.
var spacingRules = []rule{
	mustRule(`(?<=\d) +(?=\d)`, ""),
	mustRule(`(?<=[.,]) +(?=\d)`, ""),
	mustRule(`(?<=[A-Za-z]) +(?=\d)`, " "),
	mustRule(`(?<=\d) +(?=[A-Za-z])`, " "),
}

var (
	reCard    = regexp.MustCompile(`\b(\d{4}) *- *(\d{4}) *- *(\d{4}) *- *(\d{4})\b`)
	reSSNLike = regexp.MustCompile(`\b(\d{2}) *- *(\d{2}) *- *(\d{2}) *- *(\d{3})\b`)
	rePhone   = regexp.MustCompile(`\b(\d{3}) *- *(\d{3}) *- *(\d{4})\b`)

	reDayMonth = regexp.MustCompile(`\b(\d{1,2})[ \t]+([A-Za-z]+),[ \t]*(\d{4})\b`)
	reMonthDay = regexp.MustCompile(`\b([A-Za-z]+)[ \t]+(\d{1,2}),[ \t]*(\d{4})\b`)
)

// The slash rule refuses to fire inside longer digit/separator chains such
// as ISO dates or hyphenated identifiers.
var slashDate = mustRule(`(?<!\d[/.\-]?)(\d{1,2}) *[/.\-] *(\d{1,2}) *[/.\-] *(\d{2,4})(?![/.\-]?\d)`, "$1/$2/$3")

var currencyRules = []rule{
	mustRule(`\bRs(?![A-Za-z])\.?\s*`, "₹"),
	mustRule(`\bINR(?![A-Za-z])\s*`, "₹"),
	mustRule(`₹\s+`, "₹"),
}

// maxPasses bounds the fixed-point loop; real text settles in two or three.
const maxPasses = 5

// Normalize repeats the rule pass until the text stops changing; a later
// rule can expose work for an earlier one (dropping "Rs" leaves "1o" free
// standing).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := text
	for i := 0; i < maxPasses; i++ {
		next := pass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// pass applies the rules once, in order: line endings, term fixes, digit
// confusions, spacing, identifiers, dates, currency.
func pass(text string) string {
	s := reCRLF.ReplaceAllString(text, "\n")
	s = termFixes.Replace(s)
	s = FixDigitConfusions(s)
	s = applyAll(s, spacingRules)

	s = reCard.ReplaceAllString(s, "$1-$2-$3-$4")
	s = reSSNLike.ReplaceAllString(s, "$1-$2-$3-$4")
	s = rePhone.ReplaceAllString(s, "$1-$2-$3")

	s = reDayMonth.ReplaceAllString(s, "$1 $2, $3")
	s = reMonthDay.ReplaceAllString(s, "$1 $2, $3")
	s = apply(s, slashDate)

	return applyAll(s, currencyRules)
}

// FixDigitConfusions rewrites confusable letters inside numeric tokens only:
// a run must contain a real digit and must not be glued to other letters.
func FixDigitConfusions(s string) string {
	locs := reNumericRun.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		run := s[start:end]
		if !strings.ContainsAny(run, "0123456789") || letterBefore(s, start) || letterAfter(s, end) {
			continue
		}
		b.WriteString(s[last:start])
		for _, r := range run {
			if d, ok := confusions[r]; ok {
				r = d
			}
			b.WriteRune(r)
		}
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

func letterBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r)
}

func letterAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r)
}

func applyAll(s string, rules []rule) string {
	for _, r := range rules {
		s = apply(s, r)
	}
	return s
}

// apply leaves s untouched if the engine reports an error; regexp2 only
// fails on match timeouts, which are not configured here.
func apply(s string, r rule) string {
	out, err := r.re.Replace(s, r.repl, -1, -1)
	if err != nil {
		return s
	}
	return out
}
