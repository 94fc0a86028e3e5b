package replenishment

import (
	"math"
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

// CalculateInvestments produces one result per state record, in snapshot
// order. Machines absent from the aggregate get zero consumption and zero
// investment.
func CalculateInvestments(states []domain.MachineStateRecord, agg Aggregation) []domain.ReplenishmentResult {
	results := make([]domain.ReplenishmentResult, 0, len(states))
	for _, s := range states {
		r := domain.ReplenishmentResult{
			MachineID:     s.Key.String(),
			DisplayName:   s.DisplayName,
			CashAvailable: s.CashAvailable,
			DaysRemaining: s.DaysRemaining,
		}
		if total, ok := agg.Totals[s.Key]; ok {
			if agg.Days > 0 {
				r.AverageDailyConsumption = math.Max(0, total/float64(agg.Days))
			}
			r.AmountToInvest = math.Max(0, total-agg.Cash[s.Key])
		}
		results = append(results, r)
	}
	return results
}

// Compute runs the pure steps of the pipeline for one snapshot.
func Compute(states []domain.MachineStateRecord, weights []domain.WeightRecord, forecasts []domain.ForecastRecord, today time.Time) Computation {
	today = DateOf(today)
	window := SelectWindow(today, forecasts)
	critical := FilterCritical(states)
	agg := Aggregate(critical, BuildWeightIndex(weights), window)
	return Computation{
		Today:       today,
		Window:      window,
		Critical:    critical,
		Aggregation: agg,
		Results:     CalculateInvestments(states, agg),
	}
}
