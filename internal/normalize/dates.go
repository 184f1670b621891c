package normalize

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayouts is the ordered list of explicit layouts tried before inference:
// %d/%m/%Y, %d/%m/%y, %Y-%m-%d, %d-%m-%Y, %d %b %Y.
var DateLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"2006-1-2",
	"2-1-2006",
	"2 Jan 2006",
}

// LayoutThreshold is the share of a column a layout must parse to be chosen.
const LayoutThreshold = 0.9

// Date is a parsed date; Valid is false for entries that could not be parsed.
type Date struct {
	time.Time
	Valid bool
}

// DateColumn is the result of normalizing one column of date strings.
type DateColumn struct {
	Dates []Date
	// Layout is the explicit layout chosen, empty when inference was used.
	Layout   string
	Inferred bool
}

// Missing counts entries left unparsed.
func (c DateColumn) Missing() int {
	n := 0
	for _, d := range c.Dates {
		if !d.Valid {
			n++
		}
	}
	return n
}

// Dates parses values with the first layout that clears LayoutThreshold,
// falling back to day-first inference. Unparsed entries are marked, never
// dropped.
func Dates(values []string) DateColumn {
	for _, layout := range DateLayouts {
		dates, ok := parseAll(values, layout)
		if ok > 0 && float64(ok) >= float64(len(values))*LayoutThreshold {
			return DateColumn{Dates: dates, Layout: layout}
		}
	}

	dates := make([]Date, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		t, err := dateparse.ParseAny(v, dateparse.PreferMonthFirst(false))
		if err != nil {
			continue
		}
		dates[i] = Date{Time: t, Valid: true}
	}
	return DateColumn{Dates: dates, Inferred: true}
}

func parseAll(values []string, layout string) ([]Date, int) {
	dates := make([]Date, len(values))
	ok := 0
	for i, v := range values {
		t, err := time.Parse(layout, strings.TrimSpace(v))
		if err != nil {
			continue
		}
		dates[i] = Date{Time: t, Valid: true}
		ok++
	}
	return dates, ok
}
