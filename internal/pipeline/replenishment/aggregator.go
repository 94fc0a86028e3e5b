package replenishment

import "github.com/OthmaneWahbi/gab-flow-insights/internal/domain"

// weightedMachine is a critical machine that found a weight.
type weightedMachine struct {
	key    domain.MachineKey
	cash   float64
	weight float64
}

// JoinForecast inner-joins critical machines with their weights and crosses
// the survivors with the windowed forecast. Rows come out machine-major:
// every day of the first machine, then every day of the next.
func JoinForecast(critical []domain.MachineStateRecord, index WeightIndex, window []domain.ForecastRecord) []domain.JoinedForecastRow {
	weighted := make([]weightedMachine, 0, len(critical))
	for _, m := range critical {
		w, ok := index.Lookup(m.Key)
		if !ok {
			continue
		}
		weighted = append(weighted, weightedMachine{key: m.Key, cash: m.CashAvailable, weight: w})
	}

	rows := make([]domain.JoinedForecastRow, 0, len(weighted)*len(window))
	for _, m := range weighted {
		for _, f := range window {
			rows = append(rows, domain.JoinedForecastRow{
				Key:                     m.key,
				CashAvailable:           m.cash,
				Weight:                  m.weight,
				Date:                    f.Date,
				DailyNetworkConsumption: f.DailyNetworkConsumption,
				MachineConsumption:      f.DailyNetworkConsumption * m.weight,
			})
		}
	}
	return rows
}

// Aggregate sums machine consumption per key in joined-row order. The cash
// kept for a key is the one on its first joined row.
func Aggregate(critical []domain.MachineStateRecord, index WeightIndex, window []domain.ForecastRecord) Aggregation {
	rows := JoinForecast(critical, index, window)
	agg := Aggregation{
		JoinedRows: len(rows),
		Days:       len(window),
		Totals:     make(map[domain.MachineKey]float64),
		Cash:       make(map[domain.MachineKey]float64),
	}
	for _, r := range rows {
		if _, seen := agg.Totals[r.Key]; !seen {
			agg.Order = append(agg.Order, r.Key)
			agg.Cash[r.Key] = r.CashAvailable
		}
		agg.Totals[r.Key] += r.MachineConsumption
	}
	return agg
}
