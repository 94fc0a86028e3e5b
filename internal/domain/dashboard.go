package domain

import (
	"encoding/json"
	"time"
)

// DashboardKPIs are the headline numbers shown above the critical table.
type DashboardKPIs struct {
	MachineCount            int     `json:"machine_count"`
	CriticalCount           int     `json:"critical_count"`
	TotalInvestment         float64 `json:"total_investment"`
	TotalAverageConsumption float64 `json:"total_average_consumption"`
}

// InvestmentBucket counts machines whose amount to invest falls in a range.
type InvestmentBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ResultsView is what results queries return: the rows plus where they came from.
type ResultsView struct {
	UploadID   UploadID              `json:"upload_id"`
	Provenance Provenance            `json:"provenance"`
	Results    []ReplenishmentResult `json:"results"`
}

// Dashboard aggregates everything the dashboard page needs for one upload.
type Dashboard struct {
	UploadID          UploadID              `json:"upload_id"`
	Provenance        Provenance            `json:"provenance"`
	KPIs              DashboardKPIs         `json:"kpis"`
	CriticalMachines  []ReplenishmentResult `json:"critical_machines"`
	InvestmentBuckets []InvestmentBucket    `json:"investment_buckets"`
	Results           []ReplenishmentResult `json:"results"`
}

// TrendSeries holds one daily consumption series per machine, aligned with Dates.
type TrendSeries struct {
	Dates      []time.Time              `json:"dates"`
	Series     map[MachineKey][]float64 `json:"series"`
	Provenance Provenance               `json:"provenance"`
}

// MarshalJSON renders dates as plain calendar days.
func (t TrendSeries) MarshalJSON() ([]byte, error) {
	dates := make([]string, len(t.Dates))
	for i, d := range t.Dates {
		dates[i] = d.Format("2006-01-02")
	}

	series := t.Series
	if series == nil {
		series = map[MachineKey][]float64{}
	}

	return json.Marshal(struct {
		Dates      []string                 `json:"dates"`
		Series     map[MachineKey][]float64 `json:"series"`
		Provenance Provenance               `json:"provenance"`
	}{
		Dates:      dates,
		Series:     series,
		Provenance: t.Provenance,
	})
}
