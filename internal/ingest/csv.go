package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrEmptyDataset is returned when the input has no data rows
	ErrEmptyDataset = errors.New("dataset has no data rows")

	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ParseError reports input that is not valid tabular text. The whole batch
// is rejected.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s parsing error: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// decodeText strips a UTF-8 BOM and decodes UTF-16 input that carries a BOM
func decodeText(r io.Reader) ([]byte, error) {
	tr := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(tr)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to read input: %w", err)
	}
	return data, nil
}

// sniffDelimiter picks the separator used by the header line
func sniffDelimiter(data []byte) rune {
	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	header := string(line)
	best, bestCount := ',', strings.Count(header, ",")
	for _, d := range []rune{';', '\t', '|'} {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ReadCSV parses delimited text with a header row into raw rows.
// Header names are lowercased and trimmed; blank lines are skipped.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	data, err := decodeText(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDataset
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
		dataframe.WithDelimiter(sniffDelimiter(data)),
	)
	if df.Err != nil {
		var csvErr *csv.ParseError
		if !errors.As(df.Err, &csvErr) && strings.Contains(df.Err.Error(), "empty DataFrame") {
			return nil, ErrEmptyDataset
		}
		return nil, &ParseError{Source: "CSV", Err: df.Err}
	}
	if df.Nrow() == 0 {
		return nil, ErrEmptyDataset
	}

	return rowsFromRecords(df.Records()), nil
}

// rowsFromRecords maps a header-first string table into raw rows
func rowsFromRecords(records [][]string) []RawRow {
	if len(records) == 0 {
		return nil
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(RawRow, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
