package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/repository"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/repository/postgres"
)

type ctxKey string

const repoKey ctxKey = "reference-repo"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newFileFlag(name, value, env, usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    name,
		Usage:   usage,
		Value:   value,
		EnvVars: []string{env},
	}
}

func initDB(c *cli.Context) error {
	// Initialize database connection
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	repo := postgres.NewReferenceRepository(postgres.Wrap(db, "pgx", int64(c.Int("max-concurrency"))))
	if err := repo.EnsureSchema(c.Context); err != nil {
		db.Close()
		return err
	}

	c.App.Metadata["db"] = db
	c.Context = context.WithValue(c.Context, repoKey, repo)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.App.Metadata["db"].(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func repoFrom(c *cli.Context) (repository.ReferenceRepository, error) {
	repo, ok := c.Context.Value(repoKey).(repository.ReferenceRepository)
	if !ok {
		return nil, fmt.Errorf("database not initialized")
	}
	return repo, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	dbFlags := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			newDBURLFlag(),
			&cli.IntFlag{Name: "max-concurrency", Value: 4, Usage: "Concurrent statements allowed"},
		}, extra...)
	}
	weightsFlag := newFileFlag("weights", "./data/ponderation_gab.xlsx", "SEED_WEIGHTS_FILE", "Weighting table (.xlsx or .csv)")
	forecastsFlag := newFileFlag("forecasts", "./data/previsions.xlsx", "SEED_FORECASTS_FILE", "Forecast table (.xlsx or .csv)")

	app := &cli.App{
		Name:     "seed",
		Usage:    "Load reference tables into postgres or object storage",
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			{
				Name:   "ponderation",
				Usage:  "Upsert machine weights into gab_ponderation",
				Flags:  dbFlags(weightsFlag),
				Before: initDB,
				After:  closeDB,
				Action: seedWeights,
			},
			{
				Name:   "previsions",
				Usage:  "Upsert daily network forecasts into conso_previsions",
				Flags:  dbFlags(forecastsFlag),
				Before: initDB,
				After:  closeDB,
				Action: seedForecasts,
			},
			{
				Name:   "all",
				Usage:  "Upsert both reference tables",
				Flags:  dbFlags(weightsFlag, forecastsFlag),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					if err := seedWeights(c); err != nil {
						return err
					}
					return seedForecasts(c)
				},
			},
			{
				Name:  "push",
				Usage: "Upload the reference files to the MinIO bucket read by SOURCE_KIND=minio",
				Flags: []cli.Flag{
					weightsFlag,
					forecastsFlag,
				},
				Action: pushFiles,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}
