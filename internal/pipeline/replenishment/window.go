package replenishment

import (
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

// WindowEnd returns the last day included in the window starting at today.
func WindowEnd(today time.Time) time.Time {
	return DateOf(today).AddDate(0, 0, WindowDays-1)
}

// SelectWindow keeps forecast records dated from today through today+6
// inclusive, preserving input order.
func SelectWindow(today time.Time, forecasts []domain.ForecastRecord) []domain.ForecastRecord {
	start := DateOf(today)
	end := WindowEnd(start)
	window := make([]domain.ForecastRecord, 0, WindowDays)
	for _, f := range forecasts {
		d := DateOf(f.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		window = append(window, f)
	}
	return window
}
