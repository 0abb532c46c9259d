package extract

import (
	"regexp"
	"strings"
)

// LowTextConfidence flags a PDF whose text layer looks too thin to analyze.
const LowTextConfidence = 40.0

var (
	reTextDate     = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b|\b(19|20)\d{2}-\d{2}-\d{2}\b`)
	reTextCurrency = regexp.MustCompile(`(?i)₹|[$£€]|\b(usd|eur|gbp|inr|rs)\b`)
	reTextAmount   = regexp.MustCompile(`\b\d{1,3}(,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
)

// TextConfidence scores embedded PDF text on the 0..100 scale OCR uses.
// There is no recognition step to report a confidence, so it is estimated
// from the financial artifacts present in the text.
func TextConfidence(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	score := 30.0
	if reTextDate.MatchString(t) {
		score += 20
	}
	if reTextCurrency.MatchString(t) {
		score += 15
	}
	if reTextAmount.MatchString(t) {
		score += 15
	}
	if len(t) > 120 {
		score += 20
	}
	return min(score, 100)
}
