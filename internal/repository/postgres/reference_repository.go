package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	weightsTable   = "gab_ponderation"
	forecastsTable = "conso_previsions"
	upsertBatch    = 500
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const referenceSchema = `
CREATE TABLE IF NOT EXISTS gab_ponderation (
    numero_gab  TEXT PRIMARY KEY,
    ponderation DOUBLE PRECISION NOT NULL CHECK (ponderation >= 0),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS conso_previsions (
    date              DATE PRIMARY KEY,
    conso_journaliere DOUBLE PRECISION NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type referenceRepository struct {
	db *DB
}

func NewReferenceRepository(db *DB) repository.ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, referenceSchema); err != nil {
			return fmt.Errorf("failed to create reference tables: %w", err)
		}
		return nil
	})
}

func (r *referenceRepository) ListWeights(ctx context.Context) ([]repository.WeightRow, error) {
	query, args, err := psql.Select("numero_gab", "ponderation").
		From(weightsTable).
		OrderBy("numero_gab").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build weights query: %w", err)
	}

	var rows []repository.WeightRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list weights: %w", err)
	}
	return rows, nil
}

func (r *referenceRepository) ListForecasts(ctx context.Context) ([]repository.ForecastRow, error) {
	query, args, err := psql.Select("date", "conso_journaliere").
		From(forecastsTable).
		OrderBy("date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build forecasts query: %w", err)
	}

	var rows []repository.ForecastRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	return rows, nil
}

func (r *referenceRepository) UpsertWeights(ctx context.Context, rows []repository.WeightRow) (int, error) {
	written := 0
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(rows); start += upsertBatch {
			end := min(start+upsertBatch, len(rows))
			insert := psql.Insert(weightsTable).
				Columns("numero_gab", "ponderation", "updated_at").
				Suffix("ON CONFLICT (numero_gab) DO UPDATE SET ponderation = EXCLUDED.ponderation, updated_at = NOW()")
			for _, row := range rows[start:end] {
				insert = insert.Values(row.MachineID, row.Weight, sq.Expr("NOW()"))
			}
			if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
				return fmt.Errorf("failed to upsert weights: %w", err)
			}
			written += end - start
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int("rows", written).Str("table", weightsTable).Msg("reference weights upserted")
	return written, nil
}

func (r *referenceRepository) UpsertForecasts(ctx context.Context, rows []repository.ForecastRow) (int, error) {
	written := 0
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(rows); start += upsertBatch {
			end := min(start+upsertBatch, len(rows))
			insert := psql.Insert(forecastsTable).
				Columns("date", "conso_journaliere", "updated_at").
				Suffix("ON CONFLICT (date) DO UPDATE SET conso_journaliere = EXCLUDED.conso_journaliere, updated_at = NOW()")
			for _, row := range rows[start:end] {
				insert = insert.Values(row.Date, row.Consumption, sq.Expr("NOW()"))
			}
			if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
				return fmt.Errorf("failed to upsert forecasts: %w", err)
			}
			written += end - start
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int("rows", written).Str("table", forecastsTable).Msg("reference forecasts upserted")
	return written, nil
}
