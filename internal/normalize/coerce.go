package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hyperifyio/gotabular/internal/table"
)

// ISODate is always accepted for date columns, so a normalized table that was
// written back to text normalizes to the same dates.
const ISODate = "2006-01-02"

var (
	integerRe = regexp.MustCompile(`^[+-]?\d+$`)
	realRe    = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// Options tunes coercion.
type Options struct {
	// DateLayouts are Go time layouts tried in order for date columns. When
	// empty, free-form month-first parsing is used instead; it rejects bare
	// numbers and results without a year.
	DateLayouts []string
}

// Coerce converts one cell to type t. The bool is false when the cell
// degraded to missing.
func Coerce(t table.Type, cell table.Text, opt Options) (table.Value, bool) {
	return coerce(t, cell, opt)
}

func coerce(t table.Type, cell table.Text, opt Options) (table.Value, bool) {
	if cell.Blank() {
		return table.MissingValue(t), false
	}
	s := strings.TrimSpace(cell.S)
	switch t {
	case table.TypeInteger:
		if !integerRe.MatchString(s) {
			break
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			break
		}
		return table.Value{Type: t, Int: n}, true
	case table.TypeReal:
		if !realRe.MatchString(s) {
			break
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			break
		}
		return table.Value{Type: t, Real: f}, true
	case table.TypeDate:
		if d, ok := parseDate(s, opt); ok {
			return table.Value{Type: t, Date: d}, true
		}
	default:
		return table.Value{Type: table.TypeText, Text: cell.S}, true
	}
	return table.MissingValue(t), false
}

func parseDate(s string, opt Options) (table.Date, bool) {
	for _, layout := range opt.DateLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return table.DateOf(tm), true
		}
	}
	if tm, err := time.Parse(ISODate, s); err == nil {
		return table.DateOf(tm), true
	}
	if len(opt.DateLayouts) > 0 {
		return table.Date{}, false
	}
	// dateparse reads "1911" as a year, "10.6" as a month and day and
	// "1234567890" as a Unix timestamp.
	if realRe.MatchString(s) {
		return table.Date{}, false
	}
	tm, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || tm.Year() < 1 || tm.Year() > 9999 {
		return table.Date{}, false
	}
	return table.DateOf(tm), true
}
