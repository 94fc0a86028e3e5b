package source

import (
	"context"
	"path"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/storage"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// ObjectSource reads reference files from an S3-compatible bucket.
type ObjectSource struct {
	store         storage.ObjectStorage
	prefix        string
	weightsFile   string
	forecastsFile string
}

func NewObjectSource(store storage.ObjectStorage, prefix, weightsFile, forecastsFile string) *ObjectSource {
	return &ObjectSource{store: store, prefix: prefix, weightsFile: weightsFile, forecastsFile: forecastsFile}
}

func (s *ObjectSource) Name() string { return "minio" }

func (s *ObjectSource) Weights(ctx context.Context) (*tabular.Table, error) {
	return s.read(ctx, s.weightsFile)
}

func (s *ObjectSource) Forecasts(ctx context.Context) (*tabular.Table, error) {
	return s.read(ctx, s.forecastsFile)
}

// ObjectKey returns the bucket key of a reference file.
func (s *ObjectSource) ObjectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *ObjectSource) read(ctx context.Context, name string) (*tabular.Table, error) {
	key := s.ObjectKey(name)
	data, err := s.store.GetObject(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Unavailable(s.Name(), key, err)
	}
	return parseFile(name, data)
}
