package source

import (
	"context"
	"fmt"
	"os"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/config"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/drive"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/repository/postgres"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/storage"
)

// Built is a configured source plus the clients some routes need.
type Built struct {
	Source ReferenceSource
	// Drive is set only for the drive source.
	Drive *drive.Service
	// DB is set only for the postgres source.
	DB *postgres.DB
}

// New builds the source selected by SOURCE_KIND.
func New(ctx context.Context, cfg *config.Config) (*Built, error) {
	weights, forecasts := cfg.Source.WeightsFile, cfg.Source.ForecastsFile

	switch cfg.Source.Kind {
	case "", "local":
		return &Built{Source: NewLocalSource(cfg.App.DataDir, weights, forecasts)}, nil

	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return &Built{Source: NewObjectSource(client, cfg.Minio.Prefix, weights, forecasts)}, nil

	case "drive":
		creds, err := os.ReadFile(cfg.Drive.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read drive credentials: %w", err)
		}
		svc, err := drive.NewService(ctx, string(creds))
		if err != nil {
			return nil, err
		}
		return &Built{Source: NewDriveSource(svc, cfg.Drive.FolderID, weights, forecasts), Drive: svc}, nil

	case "postgres":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect reference database: %w", err)
		}
		return &Built{Source: NewPostgresSource(postgres.NewReferenceRepository(db)), DB: db}, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
