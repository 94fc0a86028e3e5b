package replenishment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/cache"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/source"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// ReferenceLoader fetches the weighting and forecast tables for one run.
type ReferenceLoader interface {
	Load(ctx context.Context) (*source.Tables, error)
}

// Config tunes a ReplenishmentPipeline. Zero values pick the defaults.
type Config struct {
	Location *time.Location
	Now      func() time.Time
	Fallback *FallbackDataset
}

// ReplenishmentPipeline turns an uploaded cash state snapshot into
// replenishment results and caches them under the upload id.
type ReplenishmentPipeline struct {
	loader   ReferenceLoader
	cache    cache.ResultCache
	fallback *FallbackDataset
	location *time.Location
	now      func() time.Time
}

// NewReplenishmentPipeline creates a new replenishment pipeline instance.
func NewReplenishmentPipeline(loader ReferenceLoader, results cache.ResultCache, cfg Config) *ReplenishmentPipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultFallback()
	}
	return &ReplenishmentPipeline{
		loader:   loader,
		cache:    results,
		fallback: cfg.Fallback,
		location: cfg.Location,
		now:      cfg.Now,
	}
}

// Name returns the unique identifier of this pipeline.
func (p *ReplenishmentPipeline) Name() string {
	return "replenishment"
}

// Validate checks the uploaded snapshot's columns.
func (p *ReplenishmentPipeline) Validate(table *tabular.Table) error {
	return ValidateState(table)
}

// Fallback returns the dataset used when reference data is missing.
func (p *ReplenishmentPipeline) Fallback() *FallbackDataset {
	return p.fallback
}

// Today is the current calendar day in the configured zone.
func (p *ReplenishmentPipeline) Today() time.Time {
	return DateOf(p.now().In(p.location))
}

// Run implements pipeline.Pipeline.
func (p *ReplenishmentPipeline) Run(ctx context.Context, id domain.UploadID, filename string, table *tabular.Table) (*pipeline.RunSummary, error) {
	out, err := p.Process(ctx, id, filename, table)
	if err != nil {
		return nil, err
	}
	return &out.RunSummary, nil
}

// Process runs the whole pipeline for one upload. Missing reference data
// yields the fallback dataset; malformed data fails the run. The cache is
// written only once everything succeeded.
func (p *ReplenishmentPipeline) Process(ctx context.Context, id domain.UploadID, filename string, table *tabular.Table) (*Outcome, error) {
	summary := pipeline.RunSummary{
		UploadID:     id,
		PipelineName: p.Name(),
		Filename:     filename,
		Status:       pipeline.StatusProcessing,
		StartedAt:    p.now(),
	}
	fail := func(err error) (*Outcome, error) {
		summary.Finish(p.now(), err)
		log.Error().Err(err).Str("upload_id", id.String()).Str("filename", filename).Msg("replenishment run failed")
		return nil, err
	}

	states, err := DecodeState(table)
	if err != nil {
		return fail(fmt.Errorf("decode state: %w", err))
	}
	summary.TotalRows = len(states)

	today := p.Today()
	entry := &domain.CacheEntry{
		UploadID:    id,
		Filename:    filename,
		CreatedAt:   summary.StartedAt,
		WindowStart: today,
		RawJoins:    domain.RawJoins{State: states},
	}

	weights, forecasts, reason, err := p.loadReference(ctx)
	if err != nil {
		return fail(err)
	}

	if reason != "" {
		entry.Provenance = domain.ProvenanceFallback
		entry.Results = p.fallback.Results()
		summary.CriticalRows = countCritical(entry.Results)
		log.Warn().
			Str("upload_id", id.String()).
			Str("reason", reason).
			Msg("reference data unavailable, using fallback dataset")
	} else {
		comp := Compute(states, weights, forecasts, today)
		entry.Provenance = domain.ProvenanceComputed
		entry.Results = comp.Results
		entry.RawJoins.Weights = weights
		entry.RawJoins.Forecasts = forecasts
		summary.CriticalRows = len(comp.Critical)
		summary.JoinedRows = comp.Aggregation.JoinedRows
	}

	// An abandoned run must not leave an entry behind.
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := p.cache.Put(ctx, id, entry); err != nil {
		return fail(fmt.Errorf("cache results: %w", err))
	}

	summary.Provenance = entry.Provenance
	summary.Finish(p.now(), nil)
	log.Info().
		Str("upload_id", id.String()).
		Str("provenance", string(entry.Provenance)).
		Int("machines", summary.TotalRows).
		Int("critical", summary.CriticalRows).
		Int("joined_rows", summary.JoinedRows).
		Dur("took", summary.Duration()).
		Msg("replenishment run completed")

	return &Outcome{
		RunSummary:  summary,
		WindowStart: today,
		Results:     entry.Results,
		Reason:      reason,
	}, nil
}

// loadReference returns decoded reference records, or a non-empty reason
// when the fallback dataset must be used instead.
func (p *ReplenishmentPipeline) loadReference(ctx context.Context) ([]domain.WeightRecord, []domain.ForecastRecord, string, error) {
	tables, err := p.loader.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			return nil, nil, err.Error(), nil
		}
		return nil, nil, "", fmt.Errorf("load reference data: %w", err)
	}

	weights, err := DecodeWeights(tables.Weights)
	if err != nil {
		return nil, nil, "", fmt.Errorf("decode weights from %s: %w", tables.Origin, err)
	}
	forecasts, err := DecodeForecasts(tables.Forecasts)
	if err != nil {
		return nil, nil, "", fmt.Errorf("decode forecasts from %s: %w", tables.Origin, err)
	}

	switch {
	case len(weights) == 0:
		return nil, nil, "weighting source returned no rows", nil
	case len(forecasts) == 0:
		return nil, nil, "forecast source returned no rows", nil
	}
	return weights, forecasts, "", nil
}

func countCritical(results []domain.ReplenishmentResult) int {
	n := 0
	for _, r := range results {
		if r.IsCritical(CriticalDaysThreshold) {
			n++
		}
	}
	return n
}

var _ pipeline.Pipeline = (*ReplenishmentPipeline)(nil)
