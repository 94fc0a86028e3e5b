package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// Status is the last known health of the reference source.
type Status struct {
	Source       string    `json:"source"`
	Available    bool      `json:"available"`
	CheckedAt    time.Time `json:"checked_at"`
	WeightRows   int       `json:"weight_rows"`
	ForecastRows int       `json:"forecast_rows"`
	Error        string    `json:"error,omitempty"`
}

// StatusBoard keeps the latest Status for readers such as the API.
type StatusBoard struct {
	mu     sync.RWMutex
	status Status
}

func (b *StatusBoard) Record(s Status) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

func (b *StatusBoard) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Loader fetches both reference tables at once.
type Loader struct {
	src   ReferenceSource
	board *StatusBoard
	now   func() time.Time
}

func NewLoader(src ReferenceSource) *Loader {
	return &Loader{
		src:   src,
		board: &StatusBoard{status: Status{Source: src.Name()}},
		now:   time.Now,
	}
}

func (l *Loader) Source() string { return l.src.Name() }

// Status returns what the most recent Load or Probe observed.
func (l *Loader) Status() Status {
	return l.board.Snapshot()
}

// Load fetches weights and forecasts concurrently. Both must succeed. A
// table without data rows counts as unavailable. When both fetches fail, a
// format error wins over an availability error, weights before forecasts.
func (l *Loader) Load(ctx context.Context) (*Tables, error) {
	var (
		weights, forecasts       *tabular.Table
		weightsErr, forecastsErr error
	)

	// Neither fetch cancels the other so both errors are known.
	var g errgroup.Group
	g.Go(func() error {
		weights, weightsErr = l.src.Weights(ctx)
		return nil
	})
	g.Go(func() error {
		forecasts, forecastsErr = l.src.Forecasts(ctx)
		return nil
	})
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	err := pickLoadError(weightsErr, forecastsErr)
	if err == nil {
		err = checkNotEmpty(l.src.Name(), weights, forecasts)
	}

	l.record(weights, forecasts, err)
	if err != nil {
		return nil, err
	}
	return &Tables{Origin: l.src.Name(), Weights: weights, Forecasts: forecasts}, nil
}

func pickLoadError(weightsErr, forecastsErr error) error {
	if weightsErr != nil {
		weightsErr = fmt.Errorf("weights: %w", weightsErr)
	}
	if forecastsErr != nil {
		forecastsErr = fmt.Errorf("forecasts: %w", forecastsErr)
	}
	for _, err := range []error{weightsErr, forecastsErr} {
		if err != nil && !IsUnavailable(err) {
			return err
		}
	}
	if weightsErr != nil {
		return weightsErr
	}
	return forecastsErr
}

// Probe runs a Load only to refresh the status board.
func (l *Loader) Probe(ctx context.Context) Status {
	if _, err := l.Load(ctx); err != nil {
		log.Warn().Err(err).Str("source", l.src.Name()).Msg("reference source probe failed")
	}
	return l.Status()
}

func (l *Loader) record(weights, forecasts *tabular.Table, err error) {
	s := Status{
		Source:    l.src.Name(),
		Available: err == nil,
		CheckedAt: l.now(),
	}
	if weights != nil {
		s.WeightRows = len(weights.Rows)
	}
	if forecasts != nil {
		s.ForecastRows = len(forecasts.Rows)
	}
	if err != nil {
		s.Error = err.Error()
	}
	l.board.Record(s)
}

func checkNotEmpty(name string, weights, forecasts *tabular.Table) error {
	if weights == nil || len(weights.Rows) == 0 {
		return Unavailable(name, "weights", fmt.Errorf("no rows"))
	}
	if forecasts == nil || len(forecasts.Rows) == 0 {
		return Unavailable(name, "forecasts", fmt.Errorf("no rows"))
	}
	return nil
}
