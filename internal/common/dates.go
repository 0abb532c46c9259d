package common

import "time"

// DateLayout is the YYYY-MM-DD form dates are stored and exchanged in.
const DateLayout = "2006-01-02"

// ParseYMD parses YYYY-MM-DD as midnight UTC.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// TruncateDay drops the clock part, keeping the date in UTC.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var looseLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ParseLooseDate accepts the date shapes seen on statements. Numeric dates
// are read day first.
func ParseLooseDate(s string) (time.Time, bool) {
	for _, layout := range looseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return TruncateDay(t), true
		}
	}
	return time.Time{}, false
}
