package replenishment

import (
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline"
)

const (
	// CriticalDaysThreshold is the days-remaining level at or below which a machine is critical.
	CriticalDaysThreshold = 3.0
	// WindowDays is the length of the forecast window, starting today.
	WindowDays = 7
)

// Column names of the three input tables and of the export.
const (
	ColMachineID     = "Numero GAB"
	ColDisplayName   = "Mon GAB"
	ColCash          = "Cash Disponible"
	ColDaysRemaining = "Nbr JOUR"
	ColWeight        = "ponderation"
	ColDate          = "Date"
	ColConsumption   = "conso_journaliere"
	ColToInvest      = "À investir"
)

// Aggregation is the per-machine outcome of the cross join.
type Aggregation struct {
	JoinedRows int                           // C x D
	Days       int                           // D, forecast rows inside the window
	Totals     map[domain.MachineKey]float64 // 7-day consumption per machine
	Cash       map[domain.MachineKey]float64 // cash available per machine
	Order      []domain.MachineKey           // first-seen order of aggregated machines
}

// Computation bundles everything the pure pipeline steps produce.
type Computation struct {
	Today       time.Time
	Window      []domain.ForecastRecord
	Critical    []domain.MachineStateRecord
	Aggregation Aggregation
	Results     []domain.ReplenishmentResult
}

// Outcome is what a pipeline run reports back to its caller.
type Outcome struct {
	pipeline.RunSummary
	WindowStart time.Time
	Results     []domain.ReplenishmentResult
	// Reason explains a fallback outcome; empty for computed ones.
	Reason string
}
