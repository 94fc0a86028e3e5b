// Package source fetches the weighting and forecast reference tables from
// wherever the deployment keeps them.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// ReferenceSource yields the two reference tables. Implementations wrap
// missing or unreachable data in domain.ErrSourceUnavailable.
type ReferenceSource interface {
	Name() string
	Weights(ctx context.Context) (*tabular.Table, error)
	Forecasts(ctx context.Context) (*tabular.Table, error)
}

// Tables is what a Loader hands to the pipeline.
type Tables struct {
	Origin    string
	Weights   *tabular.Table
	Forecasts *tabular.Table
}

// Unavailable wraps err so callers can tell missing data from broken data.
func Unavailable(source, what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s %s", domain.ErrSourceUnavailable, source, what)
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrSourceUnavailable, source, what, err)
}

// IsUnavailable reports whether err means the data is absent, not broken.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrSourceUnavailable)
}

// parseFile reads a downloaded reference file. Format problems are not
// availability problems and are returned as is.
func parseFile(name string, data []byte) (*tabular.Table, error) {
	table, err := tabular.Read(name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return table, nil
}
