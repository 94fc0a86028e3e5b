package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Read decodes a table, choosing the decoder from the file extension.
func Read(filename string, r io.Reader) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q (expected .xlsx or .csv)", domain.ErrUnsupportedFormat, ext)
	}
}

// ReadXLSX reads the first sheet of a workbook. The first non-empty row is the header.
// Cells are read raw so date cells arrive as day counts.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	table := &Table{}
	for rows.Next() {
		record, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		table.addRecord(record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}

	if len(table.Header) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	return table, nil
}

// ReadCSV reads a delimited table with a header row. Semicolons are
// accepted in place of commas, as written by French locale spreadsheets.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(br)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	table := &Table{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		table.addRecord(record)
	}

	if len(table.Header) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}
	return table, nil
}

func detectDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	line := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		line = peek[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func (t *Table) addRecord(record []string) {
	if len(t.Header) == 0 {
		header := make([]string, len(record))
		empty := true
		for i, h := range record {
			h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			header[i] = h
			if h != "" {
				empty = false
			}
		}
		if !empty {
			t.Header = header
		}
		return
	}

	row := make([]any, len(t.Header))
	for i := 0; i < len(record) && i < len(row); i++ {
		row[i] = ParseCell(record[i])
	}
	if isEmptyRow(row) {
		return
	}
	t.Rows = append(t.Rows, row)
}
