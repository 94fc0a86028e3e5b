package service

import (
	"github.com/shopspring/decimal"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline/replenishment"
)

// investment buckets shown on the dashboard histogram
var investmentBuckets = []struct {
	label string
	upTo  float64 // inclusive upper bound, 0 for the open-ended bucket
}{
	{"0", 0},
	{"1-1000", 1000},
	{"1001-5000", 5000},
	{"5001+", 0},
}

// BuildDashboard derives KPIs and breakdowns from a results view.
func BuildDashboard(view *domain.ResultsView) *domain.Dashboard {
	results := view.Results
	if results == nil {
		results = make([]domain.ReplenishmentResult, 0)
	}

	critical := make([]domain.ReplenishmentResult, 0)
	for _, r := range results {
		if r.IsCritical(replenishment.CriticalDaysThreshold) {
			critical = append(critical, r)
		}
	}

	return &domain.Dashboard{
		UploadID:          view.UploadID,
		Provenance:        view.Provenance,
		KPIs:              computeKPIs(results, len(critical)),
		CriticalMachines:  critical,
		InvestmentBuckets: bucketInvestments(results),
		Results:           results,
	}
}

func computeKPIs(results []domain.ReplenishmentResult, criticalCount int) domain.DashboardKPIs {
	investment := decimal.Zero
	consumption := decimal.Zero
	for _, r := range results {
		investment = investment.Add(decimal.NewFromFloat(r.AmountToInvest))
		consumption = consumption.Add(decimal.NewFromFloat(r.AverageDailyConsumption))
	}
	return domain.DashboardKPIs{
		MachineCount:            len(results),
		CriticalCount:           criticalCount,
		TotalInvestment:         investment.Round(2).InexactFloat64(),
		TotalAverageConsumption: consumption.Round(2).InexactFloat64(),
	}
}

func bucketInvestments(results []domain.ReplenishmentResult) []domain.InvestmentBucket {
	buckets := make([]domain.InvestmentBucket, len(investmentBuckets))
	for i, b := range investmentBuckets {
		buckets[i].Label = b.label
	}
	for _, r := range results {
		buckets[bucketIndex(r.AmountToInvest)].Count++
	}
	return buckets
}

func bucketIndex(amount float64) int {
	if amount <= 0 {
		return 0
	}
	last := len(investmentBuckets) - 1
	for i := 1; i < last; i++ {
		if amount <= investmentBuckets[i].upTo {
			return i
		}
	}
	return last
}

func countCritical(results []domain.ReplenishmentResult) int {
	n := 0
	for _, r := range results {
		if r.IsCritical(replenishment.CriticalDaysThreshold) {
			n++
		}
	}
	return n
}
