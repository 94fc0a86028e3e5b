package replenishment

import (
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

// ProjectTrends builds a daily consumption series for every weighted
// machine over the window starting at windowStart. Critical status plays
// no part here.
func ProjectTrends(weights []domain.WeightRecord, forecasts []domain.ForecastRecord, windowStart time.Time) domain.TrendSeries {
	index := BuildWeightIndex(weights)
	window := SelectWindow(windowStart, forecasts)

	trends := domain.TrendSeries{
		Dates:      make([]time.Time, 0, len(window)),
		Series:     make(map[domain.MachineKey][]float64, len(index)),
		Provenance: domain.ProvenanceComputed,
	}
	for _, f := range window {
		trends.Dates = append(trends.Dates, DateOf(f.Date))
	}
	for _, key := range index.Keys(weights) {
		w := index[key]
		series := make([]float64, 0, len(window))
		for _, f := range window {
			series = append(series, f.DailyNetworkConsumption*w)
		}
		trends.Series[key] = series
	}
	return trends
}
