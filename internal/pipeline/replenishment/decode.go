package replenishment

import (
	"fmt"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// rowNumber converts a data row index to its 1-based spreadsheet line, header included.
func rowNumber(i int) int {
	return i + 2
}

// ValidateState checks that an uploaded snapshot has every required column.
func ValidateState(t *tabular.Table) error {
	if t == nil {
		return fmt.Errorf("%w: empty state table", domain.ErrMissingColumn)
	}
	for _, col := range []string{ColMachineID, ColDisplayName, ColCash, ColDaysRemaining} {
		if _, err := t.RequireColumn(col); err != nil {
			return err
		}
	}
	return nil
}

// DecodeState turns the uploaded snapshot into machine state records.
// Rows without a machine identifier (totals, notes) are skipped.
func DecodeState(t *tabular.Table) ([]domain.MachineStateRecord, error) {
	if err := ValidateState(t); err != nil {
		return nil, err
	}
	idIdx := t.ColumnIndex(ColMachineID)
	nameIdx := t.ColumnIndex(ColDisplayName)
	cashIdx := t.ColumnIndex(ColCash)
	daysIdx := t.ColumnIndex(ColDaysRemaining)

	records := make([]domain.MachineStateRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		raw := tabular.Cell(row, idIdx)
		key := domain.NormalizeKey(raw)
		if key == "" {
			continue
		}
		cash, err := tabular.ToFloat(tabular.Cell(row, cashIdx))
		if err != nil {
			return nil, fmt.Errorf("state row %d, %s: %w", rowNumber(i), ColCash, err)
		}
		days, err := tabular.ToFloat(tabular.Cell(row, daysIdx))
		if err != nil {
			return nil, fmt.Errorf("state row %d, %s: %w", rowNumber(i), ColDaysRemaining, err)
		}
		records = append(records, domain.MachineStateRecord{
			Key:           key,
			RawID:         raw,
			DisplayName:   tabular.ToString(tabular.Cell(row, nameIdx)),
			CashAvailable: cash,
			DaysRemaining: days,
		})
	}
	return records, nil
}

// DecodeWeights turns the weighting table into weight records.
func DecodeWeights(t *tabular.Table) ([]domain.WeightRecord, error) {
	if t == nil {
		return nil, nil
	}
	idIdx, err := t.RequireColumn(ColMachineID)
	if err != nil {
		return nil, err
	}
	weightIdx, err := t.RequireColumn(ColWeight)
	if err != nil {
		return nil, err
	}

	records := make([]domain.WeightRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		key := domain.NormalizeKey(tabular.Cell(row, idIdx))
		if key == "" {
			continue
		}
		w, err := tabular.ToFloat(tabular.Cell(row, weightIdx))
		if err != nil {
			return nil, fmt.Errorf("weight row %d: %w", rowNumber(i), err)
		}
		if w < 0 {
			return nil, fmt.Errorf("weight row %d: %w: negative weight %v", rowNumber(i), domain.ErrMalformedRow, w)
		}
		records = append(records, domain.WeightRecord{Key: key, Weight: w})
	}
	return records, nil
}

// DecodeForecasts turns the forecast table into dated forecast records.
// A date that cannot be resolved fails the whole table.
func DecodeForecasts(t *tabular.Table) ([]domain.ForecastRecord, error) {
	if t == nil {
		return nil, nil
	}
	dateIdx, err := t.RequireColumn(ColDate)
	if err != nil {
		return nil, err
	}
	consIdx, err := t.RequireColumn(ColConsumption)
	if err != nil {
		return nil, err
	}

	records := make([]domain.ForecastRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		date, err := ResolveDate(tabular.Cell(row, dateIdx))
		if err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", rowNumber(i), err)
		}
		consumption, err := tabular.ToFloat(tabular.Cell(row, consIdx))
		if err != nil {
			return nil, fmt.Errorf("forecast row %d: %w", rowNumber(i), err)
		}
		records = append(records, domain.ForecastRecord{Date: date, DailyNetworkConsumption: consumption})
	}
	return records, nil
}
