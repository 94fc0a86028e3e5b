package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/cache"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline/replenishment"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/service"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/source"
	"github.com/OthmaneWahbi/gab-flow-insights/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:      "plan",
		Usage:     "Compute cash replenishment for a state file without running the server",
		ArgsUsage: "<etat.xlsx|etat.csv>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Value: "./data", EnvVars: []string{"APP_DATA_DIR"}, Usage: "Directory holding the reference files"},
			&cli.StringFlag{Name: "weights", Value: "ponderation_gab.xlsx", EnvVars: []string{"SOURCE_WEIGHTS_FILE"}},
			&cli.StringFlag{Name: "forecasts", Value: "previsions.xlsx", EnvVars: []string{"SOURCE_FORECASTS_FILE"}},
			&cli.StringFlag{Name: "timezone", Value: "Africa/Casablanca", EnvVars: []string{"APP_TIMEZONE"}},
			&cli.StringFlag{Name: "today", Usage: "Override today's date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "fallback", EnvVars: []string{"APP_FALLBACK_PATH"}, Usage: "YAML fallback dataset"},
			&cli.StringFlag{Name: "format", Value: service.FormatXLSX, Usage: "Export format: xlsx or csv"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "Directory the export is written to"},
			&cli.IntFlag{Name: "workers", Value: 4, Usage: "State files processed concurrently"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("plan failed")
	}
}

func run(c *cli.Context) error {
	logger.SetLevel(c.String("log-level"))

	if c.NArg() == 0 {
		return cli.Exit("expected at least one state file", 2)
	}

	loc, err := time.LoadLocation(c.String("timezone"))
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	now, err := clock(loc, c.String("today"))
	if err != nil {
		return err
	}

	fallback := replenishment.DefaultFallback()
	if path := c.String("fallback"); path != "" {
		if fallback, err = replenishment.LoadFallbackDataset(path); err != nil {
			return err
		}
	}

	results := cache.NewMemoryResultCache()
	defer results.Close(context.Background())

	loader := source.NewLoader(source.NewLocalSource(c.String("data-dir"), c.String("weights"), c.String("forecasts")))
	p := replenishment.NewReplenishmentPipeline(loader, results, replenishment.Config{
		Location: loc,
		Now:      now,
		Fallback: fallback,
	})
	svc := service.NewReplenishmentService(p, results)

	cfg := pipeline.DefaultPipelineConfig(p.Name())
	cfg.Location = loc
	cfg.WorkerCount = c.Int("workers")
	jobs, err := pipeline.NewWorker(p, cfg).ProcessFiles(c.Context, c.Args().Slice())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.String("out"), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var failed int
	for _, job := range jobs {
		if job.Err != nil {
			failed++
			continue
		}
		if err := writePlan(c, svc, job); err != nil {
			logger.Log.Error().Err(err).Str("file", job.FilePath).Msg("export failed")
			failed++
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(jobs)), 1)
	}
	return nil
}

func writePlan(c *cli.Context, svc *service.ReplenishmentService, job *pipeline.FileJob) error {
	export, err := svc.ExportResults(c.Context, job.UploadID, c.String("format"))
	if err != nil {
		return err
	}
	target := filepath.Join(c.String("out"), export.Filename)
	if err := os.WriteFile(target, export.Data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	dashboard, err := svc.GetDashboard(c.Context, job.UploadID)
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("state_file", job.FilePath).
		Str("upload_id", job.UploadID.String()).
		Str("provenance", string(dashboard.Provenance)).
		Int("machines", dashboard.KPIs.MachineCount).
		Int("critical", dashboard.KPIs.CriticalCount).
		Float64("total_investment", dashboard.KPIs.TotalInvestment).
		Int("exported_rows", export.Rows).
		Str("file", target).
		Msg("Plan written")
	return nil
}

// clock returns a fixed clock when today is set, time.Now otherwise.
func clock(loc *time.Location, today string) (func() time.Time, error) {
	if today == "" {
		return time.Now, nil
	}
	day, err := time.ParseInLocation("2006-01-02", today, loc)
	if err != nil {
		return nil, fmt.Errorf("parse --today: %w", err)
	}
	// Noon keeps the day stable whatever offset the zone has.
	fixed := day.Add(12 * time.Hour)
	return func() time.Time { return fixed }, nil
}
