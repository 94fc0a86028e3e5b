package replenishment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

// SpreadsheetEpoch is day zero of spreadsheet serial dates.
var SpreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

// DateOf returns t's calendar day as a UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveDate converts a raw date cell into a calendar date with time zeroed.
// Numbers are day counts from SpreadsheetEpoch; text is parsed with the
// accepted layouts. Anything else fails with domain.ErrMalformedRow.
func ResolveDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero date", domain.ErrMalformedRow)
		}
		return DateOf(t), nil
	case float64:
		return fromSerial(t)
	case int:
		return fromSerial(float64(t))
	case int64:
		return fromSerial(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, fmt.Errorf("%w: empty date", domain.ErrMalformedRow)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return DateOf(parsed), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: unparsable date %q", domain.ErrMalformedRow, s)
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing date", domain.ErrMalformedRow)
	default:
		return time.Time{}, fmt.Errorf("%w: unexpected date type %T", domain.ErrMalformedRow, v)
	}
}

func fromSerial(days float64) (time.Time, error) {
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return time.Time{}, fmt.Errorf("%w: invalid day count", domain.ErrMalformedRow)
	}
	return SpreadsheetEpoch.AddDate(0, 0, int(math.Floor(days))), nil
}
