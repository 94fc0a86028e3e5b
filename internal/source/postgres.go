package source

import (
	"context"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/repository"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// PostgresSource reads the seeded gab_ponderation and conso_previsions tables.
type PostgresSource struct {
	repo repository.ReferenceRepository
}

func NewPostgresSource(repo repository.ReferenceRepository) *PostgresSource {
	return &PostgresSource{repo: repo}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Weights(ctx context.Context) (*tabular.Table, error) {
	rows, err := s.repo.ListWeights(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Unavailable(s.Name(), "gab_ponderation", err)
	}
	table := &tabular.Table{
		Header: []string{"numero_gab", "ponderation"},
		Rows:   make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.MachineID, r.Weight})
	}
	return table, nil
}

func (s *PostgresSource) Forecasts(ctx context.Context) (*tabular.Table, error) {
	rows, err := s.repo.ListForecasts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Unavailable(s.Name(), "conso_previsions", err)
	}
	table := &tabular.Table{
		Header: []string{"date", "conso_journaliere"},
		Rows:   make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.Date, r.Consumption})
	}
	return table, nil
}
