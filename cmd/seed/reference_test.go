package main

import (
	"testing"
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

func TestWeightRows_LastWriteWins(t *testing.T) {
	rows := weightRows([]domain.WeightRecord{
		{Key: "1001", Weight: 0.2},
		{Key: "1002", Weight: 0.1},
		{Key: "1001", Weight: 0.4},
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].MachineID != "1001" || rows[0].Weight != 0.4 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
}

func TestForecastRows_CollapsesDays(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := forecastRows([]domain.ForecastRecord{
		{Date: day, DailyNetworkConsumption: 100},
		{Date: day.AddDate(0, 0, 1), DailyNetworkConsumption: 200},
		{Date: day.Add(6 * time.Hour), DailyNetworkConsumption: 150},
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[0].Date.Equal(day) || rows[0].Consumption != 150 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("previsions.csv"); got != "text/csv" {
		t.Errorf("contentType(csv) = %q", got)
	}
	if got := contentType("previsions.xlsx"); got == "text/csv" {
		t.Errorf("contentType(xlsx) = %q", got)
	}
}
