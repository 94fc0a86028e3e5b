package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/config"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline/replenishment"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/repository"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/source"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/storage"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

func readTable(path string) (*tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := tabular.Read(path, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func seedWeights(c *cli.Context) error {
	repo, err := repoFrom(c)
	if err != nil {
		return err
	}
	t, err := readTable(c.String("weights"))
	if err != nil {
		return err
	}
	records, err := replenishment.DecodeWeights(t)
	if err != nil {
		return err
	}
	n, err := repo.UpsertWeights(c.Context, weightRows(records))
	if err != nil {
		return err
	}
	log.Printf("Seeded %d machine weights from %s", n, c.String("weights"))
	return nil
}

func seedForecasts(c *cli.Context) error {
	repo, err := repoFrom(c)
	if err != nil {
		return err
	}
	t, err := readTable(c.String("forecasts"))
	if err != nil {
		return err
	}
	records, err := replenishment.DecodeForecasts(t)
	if err != nil {
		return err
	}
	n, err := repo.UpsertForecasts(c.Context, forecastRows(records))
	if err != nil {
		return err
	}
	log.Printf("Seeded %d forecast days from %s", n, c.String("forecasts"))
	return nil
}

// weightRows collapses duplicate machines, keeping the last weight seen.
func weightRows(records []domain.WeightRecord) []repository.WeightRow {
	index := replenishment.BuildWeightIndex(records)
	keys := index.Keys(records)
	rows := make([]repository.WeightRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, repository.WeightRow{MachineID: k.String(), Weight: index[k]})
	}
	return rows
}

// forecastRows collapses duplicate days, keeping the last value seen.
func forecastRows(records []domain.ForecastRecord) []repository.ForecastRow {
	pos := make(map[string]int, len(records))
	rows := make([]repository.ForecastRow, 0, len(records))
	for _, r := range records {
		day := replenishment.DateOf(r.Date)
		key := day.Format("2006-01-02")
		row := repository.ForecastRow{Date: day, Consumption: r.DailyNetworkConsumption}
		if i, ok := pos[key]; ok {
			rows[i] = row
			continue
		}
		pos[key] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

func pushFiles(c *cli.Context) error {
	cfg := config.Load()
	client, err := storage.NewMinioClient(cfg.Minio)
	if err != nil {
		return err
	}
	objects := source.NewObjectSource(client, cfg.Minio.Prefix, cfg.Source.WeightsFile, cfg.Source.ForecastsFile)

	pairs := []struct{ path, name string }{
		{c.String("weights"), cfg.Source.WeightsFile},
		{c.String("forecasts"), cfg.Source.ForecastsFile},
	}
	for _, p := range pairs {
		// Parse first so a broken file never reaches the bucket.
		if _, err := readTable(p.path); err != nil {
			return err
		}
		data, err := os.ReadFile(p.path)
		if err != nil {
			return err
		}
		key := objects.ObjectKey(p.name)
		if err := client.UploadObject(c.Context, key, data, contentType(p.path)); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		log.Printf("Uploaded %s to %s/%s", p.path, cfg.Minio.Bucket, key)
	}
	return nil
}

func contentType(path string) string {
	if filepath.Ext(path) == ".csv" {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
