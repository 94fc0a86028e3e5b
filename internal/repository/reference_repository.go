package repository

import (
	"context"
	"time"
)

// WeightRow is one row of gab_ponderation.
type WeightRow struct {
	MachineID string  `db:"numero_gab"`
	Weight    float64 `db:"ponderation"`
}

// ForecastRow is one row of conso_previsions.
type ForecastRow struct {
	Date        time.Time `db:"date"`
	Consumption float64   `db:"conso_journaliere"`
}

// ReferenceRepository reads and seeds the weighting and forecast tables.
type ReferenceRepository interface {
	EnsureSchema(ctx context.Context) error
	ListWeights(ctx context.Context) ([]WeightRow, error)
	ListForecasts(ctx context.Context) ([]ForecastRow, error)
	UpsertWeights(ctx context.Context, rows []WeightRow) (int, error)
	UpsertForecasts(ctx context.Context, rows []ForecastRow) (int, error)
}
