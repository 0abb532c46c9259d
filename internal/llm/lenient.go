package llm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reFenced     = regexp.MustCompile("(?s)```(?:json|JSON)?(.*?)```")
	reAmountJunk = regexp.MustCompile(`(?i)₹|rs\.?|inr|usd|[$€£,\s]`)
	reDecimal    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ExtractJSON pulls the JSON object out of a model reply. Models sometimes
// wrap it in a ```json fence or surround it with prose.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	if m := reFenced.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseAmount reads a money string such as "₹1,200.00", "Rs. 45" or "(12.50)".
// Parentheses mean a negative amount.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = reAmountJunk.ReplaceAllString(s, "")
	if !reDecimal.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}
