package ingest

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/smartcity/trafficlens/internal/domain"
)

// ReadXLSX reads the first worksheet of a workbook. The first non-empty row
// is the header; fully empty rows are skipped.
func ReadXLSX(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Source: "XLSX", Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("ingest: failed to close workbook: %v", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyDataset
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Source: "XLSX", Err: err}
	}
	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Source: "XLSX", Err: err}
	}
	dates := newDateCells(f, sheets[0])

	table := make([][]string, 0, len(rows))
	var temporal map[int]string
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if temporal == nil {
			temporal = temporalColumns(row)
		} else if i < len(raw) {
			dates.resolve(row, raw[i], i, temporal)
		}
		table = append(table, row)
	}
	if len(table) < 2 {
		return nil, ErrEmptyDataset
	}

	return rowsFromRecords(table), nil
}

// temporalColumns maps the index of each timestamp, date or time header to
// its name
func temporalColumns(header []string) map[int]string {
	cols := make(map[int]string)
	for i, h := range header {
		switch name := strings.ToLower(strings.TrimSpace(h)); name {
		case "timestamp", "date", "time":
			cols[i] = name
		}
	}
	return cols
}

// dateCells rewrites native date cells, which GetRows renders in the
// workbook's display format, as text the normalizer accepts
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateCells) resolve(row, raw []string, index int, temporal map[int]string) {
	for col, name := range temporal {
		if col >= len(row) || col >= len(raw) {
			continue
		}
		serial, err := strconv.ParseFloat(strings.TrimSpace(raw[col]), 64)
		if err != nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, index+1)
		if err != nil {
			continue
		}
		switch typ, _ := d.f.GetCellType(d.sheet, cell); typ {
		case excelize.CellTypeUnset, excelize.CellTypeNumber:
		default:
			continue
		}
		t, err := excelize.ExcelDateToTime(serial, d.date1904)
		if err != nil {
			continue
		}
		switch name {
		case "date":
			row[col] = t.Format("2006-01-02")
		case "time":
			row[col] = t.Format("15:04:05")
		default:
			row[col] = t.Format("2006-01-02 15:04:05")
		}
	}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// IsSupported reports whether the file name has an ingestible extension
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ReadFile dispatches on the file extension
func ReadFile(name string, r io.Reader) ([]RawRow, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Load reads and normalizes a whole upload
func Load(name string, r io.Reader, n *Normalizer) ([]domain.TrafficRecord, error) {
	rows, err := ReadFile(name, r)
	if err != nil {
		return nil, err
	}
	if n == nil {
		n = defaultNormalizer
	}
	return n.NormalizeAll(rows)
}
