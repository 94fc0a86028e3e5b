package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// LocalSource reads reference files from a directory.
type LocalSource struct {
	dir           string
	weightsFile   string
	forecastsFile string
}

func NewLocalSource(dir, weightsFile, forecastsFile string) *LocalSource {
	return &LocalSource{dir: dir, weightsFile: weightsFile, forecastsFile: forecastsFile}
}

func (s *LocalSource) Name() string { return "local" }

func (s *LocalSource) Weights(ctx context.Context) (*tabular.Table, error) {
	return s.read(ctx, s.weightsFile)
}

func (s *LocalSource) Forecasts(ctx context.Context) (*tabular.Table, error) {
	return s.read(ctx, s.forecastsFile)
}

func (s *LocalSource) read(ctx context.Context, name string) (*tabular.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Unavailable(s.Name(), path, err)
	}
	return parseFile(name, data)
}
