package replenishment

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

// FallbackDataset is what the dashboard shows when reference data is
// missing or an upload is unknown.
type FallbackDataset struct {
	Machines []FallbackMachine `yaml:"machines"`
	Trends   FallbackTrends    `yaml:"trends"`
}

// FallbackMachine is one precomputed result row.
type FallbackMachine struct {
	MachineID               string  `yaml:"numero_gab"`
	DisplayName             string  `yaml:"nom_gab"`
	CashAvailable           float64 `yaml:"cash_disponible"`
	DaysRemaining           float64 `yaml:"nbr_jour"`
	AverageDailyConsumption float64 `yaml:"conso_moyenne_7j"`
	AmountToInvest          float64 `yaml:"a_investir"`
}

// FallbackTrends is a fixed consumption series keyed by machine.
type FallbackTrends struct {
	Dates  []string             `yaml:"dates"`
	Series map[string][]float64 `yaml:"series"`
}

// DefaultFallback returns the built-in dataset.
func DefaultFallback() *FallbackDataset {
	return &FallbackDataset{
		Machines: []FallbackMachine{
			{"1001", "Agence Centrale", 12500, 1.2, 8400, 6300},
			{"1002", "Centre Commercial", 8700, 2.1, 4100, 0},
			{"1003", "Gare Nord", 5200, 0.8, 6500, 5300},
			{"1004", "Aéroport T2", 24600, 3.0, 8200, 0},
			{"1005", "Quartier Affaires", 3200, 0.5, 6400, 6400},
			{"1006", "Université", 9800, 2.8, 3500, 0},
			{"1007", "Centre Ville", 4200, 1.1, 3800, 2600},
		},
		Trends: FallbackTrends{
			Dates: []string{
				"2023-05-15", "2023-05-16", "2023-05-17", "2023-05-18",
				"2023-05-19", "2023-05-20", "2023-05-21",
			},
			Series: map[string][]float64{
				"1001": {8200, 8400, 8600, 8300, 8500, 8400, 8200},
				"1003": {6300, 6400, 6600, 6500, 6700, 6800, 6200},
				"1005": {6200, 6300, 6500, 6400, 6600, 6700, 6100},
				"1007": {3700, 3800, 3900, 3800, 3700, 3900, 3800},
			},
		},
	}
}

// LoadFallbackDataset reads a YAML override of the built-in dataset.
func LoadFallbackDataset(path string) (*FallbackDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback dataset: %w", err)
	}
	var ds FallbackDataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode fallback dataset: %w", err)
	}
	if err := ds.validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (ds *FallbackDataset) validate() error {
	if len(ds.Machines) == 0 {
		return fmt.Errorf("fallback dataset has no machines")
	}
	for _, d := range ds.Trends.Dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("fallback trend date %q: %w", d, err)
		}
	}
	for key, series := range ds.Trends.Series {
		if len(series) != len(ds.Trends.Dates) {
			return fmt.Errorf("fallback series %s has %d points for %d dates", key, len(series), len(ds.Trends.Dates))
		}
	}
	return nil
}

// Results returns a fresh copy of the fallback results.
func (ds *FallbackDataset) Results() []domain.ReplenishmentResult {
	results := make([]domain.ReplenishmentResult, 0, len(ds.Machines))
	for _, m := range ds.Machines {
		results = append(results, domain.ReplenishmentResult{
			MachineID:               string(domain.NormalizeKey(m.MachineID)),
			DisplayName:             m.DisplayName,
			CashAvailable:           m.CashAvailable,
			DaysRemaining:           m.DaysRemaining,
			AverageDailyConsumption: m.AverageDailyConsumption,
			AmountToInvest:          m.AmountToInvest,
		})
	}
	return results
}

// TrendSeries returns a fresh copy of the fallback trends.
func (ds *FallbackDataset) TrendSeries() domain.TrendSeries {
	trends := domain.TrendSeries{
		Dates:      make([]time.Time, 0, len(ds.Trends.Dates)),
		Series:     make(map[domain.MachineKey][]float64, len(ds.Trends.Series)),
		Provenance: domain.ProvenanceFallback,
	}
	for _, d := range ds.Trends.Dates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		trends.Dates = append(trends.Dates, t)
	}
	for key, series := range ds.Trends.Series {
		trends.Series[domain.NormalizeKey(key)] = append([]float64(nil), series...)
	}
	return trends
}
