// Package tabular reads and writes the spreadsheet tables exchanged with
// ATM operators: uploaded state snapshots, reference weighting/forecast
// files and the replenishment export.
package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

// Table is a header row plus typed data rows. Cells are nil (empty),
// float64 (numeric) or string.
type Table struct {
	Header []string
	Rows   [][]any
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "\u00a0", "")

// NormalizeColumnName lowercases a header and strips separators so
// "Numero GAB", "numero_gab" and "NUMERO-GAB" compare equal.
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// ColumnIndex returns the index of the first header matching any of names, or -1.
func (t *Table) ColumnIndex(names ...string) int {
	if len(names) == 0 {
		return -1
	}
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[NormalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.Header {
		if _, ok := targets[NormalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// RequireColumn is ColumnIndex that fails with domain.ErrMissingColumn.
func (t *Table) RequireColumn(names ...string) (int, error) {
	idx := t.ColumnIndex(names...)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", domain.ErrMissingColumn, strings.Join(names, " / "))
	}
	return idx, nil
}

// Cell returns the value at idx in row, or nil when out of range.
func Cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// ParseCell converts raw cell text into a typed value. Identifiers with
// leading zeros ("00123") stay textual so they are not silently renumbered.
func ParseCell(raw string) any {
	v := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if v == "" {
		return nil
	}
	if len(v) > 1 && v[0] == '0' && v[1] != '.' && v[1] != ',' {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return v
}

// ToFloat converts a cell into a finite number. Empty cells are zero. Text
// is accepted with spaces as thousands separators and either "," or "." as
// the decimal mark. NaN and infinities are malformed.
func ToFloat(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not a finite number", domain.ErrMalformedRow, v)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
		if strings.Contains(s, ",") && !strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", domain.ErrMalformedRow, t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: unexpected cell type %T", domain.ErrMalformedRow, v)
	}
}

// ToString renders a cell as trimmed text.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

func isEmptyRow(row []any) bool {
	for _, v := range row {
		if v != nil {
			return false
		}
	}
	return true
}
