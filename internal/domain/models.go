package domain

import (
	"time"

	"github.com/google/uuid"
)

// UploadID is the opaque key correlating one ingested state snapshot with its cached results.
type UploadID string

// NewUploadID generates a fresh upload identifier.
func NewUploadID() UploadID {
	return UploadID(uuid.NewString())
}

func (id UploadID) String() string {
	return string(id)
}

// MachineStateRecord is one row of the uploaded cash state snapshot.
type MachineStateRecord struct {
	Key           MachineKey `json:"key"`
	RawID         any        `json:"raw_id"`
	DisplayName   string     `json:"display_name"`
	CashAvailable float64    `json:"cash_available"`
	DaysRemaining float64    `json:"days_remaining"`
}

// WeightRecord holds a machine's share of the network-wide daily withdrawals.
// Weights are independent per machine and need not sum to 1.
type WeightRecord struct {
	Key    MachineKey `json:"key"`
	Weight float64    `json:"weight"`
}

// ForecastRecord is the network-wide withdrawal forecast for one calendar day.
type ForecastRecord struct {
	Date                    time.Time `json:"date"`
	DailyNetworkConsumption float64   `json:"daily_network_consumption"`
}

// JoinedForecastRow is one (critical machine, forecast day) pair produced
// while aggregating. It is never stored.
type JoinedForecastRow struct {
	Key                     MachineKey
	CashAvailable           float64
	Weight                  float64
	Date                    time.Time
	DailyNetworkConsumption float64
	MachineConsumption      float64
}

// ReplenishmentResult is the computed recommendation for one machine.
type ReplenishmentResult struct {
	MachineID               string  `json:"numero_gab"`
	DisplayName             string  `json:"nom_gab"`
	CashAvailable           float64 `json:"cash_disponible"`
	DaysRemaining           float64 `json:"nbr_jour"`
	AverageDailyConsumption float64 `json:"conso_moyenne_7j"`
	AmountToInvest          float64 `json:"a_investir"`
}

// IsCritical reports whether the machine is at or below the given days-remaining threshold.
func (r ReplenishmentResult) IsCritical(threshold float64) bool {
	return r.DaysRemaining <= threshold
}

// RawJoins keeps the normalized inputs of a run so trends and exports can be
// rebuilt without re-reading the source files.
type RawJoins struct {
	State     []MachineStateRecord `json:"state"`
	Weights   []WeightRecord       `json:"weights"`
	Forecasts []ForecastRecord     `json:"forecasts"`
}

// CacheEntry is what the result cache stores per upload.
type CacheEntry struct {
	UploadID    UploadID              `json:"upload_id"`
	Filename    string                `json:"filename"`
	CreatedAt   time.Time             `json:"created_at"`
	WindowStart time.Time             `json:"window_start"`
	Provenance  Provenance            `json:"provenance"`
	Results     []ReplenishmentResult `json:"results"`
	RawJoins    RawJoins              `json:"raw_joins"`
}

// UploadRecord is one line of the upload history.
type UploadRecord struct {
	UploadID      UploadID   `json:"upload_id"`
	Filename      string     `json:"filename"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	Provenance    Provenance `json:"provenance"`
	MachineCount  int        `json:"machine_count"`
	CriticalCount int        `json:"critical_count"`
}
