package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

const sampleCSV = `ID,Timestamp,Location,Volume,Speed,Occupancy,Weather,Extra
a1,2024-01-15 08:00:00,Highway 101,120,45,80,rain,x

a2,2024-01-15 08:30:00,Highway 101,80,50,40,,y
a3,2024-01-16 17:00:00,NA,60,55,30,clear,z
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (blank line skipped), got %d", len(rows))
	}
	if rows[0]["location"] != "Highway 101" || rows[0]["volume"] != "120" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["weather"] != "" {
		t.Errorf("empty cell should stay empty, got %q", rows[1]["weather"])
	}
	if rows[2]["location"] != "NA" {
		t.Errorf("NA location should be kept verbatim, got %q", rows[2]["location"])
	}
	if _, ok := rows[0]["Location"]; ok {
		t.Error("headers should be lowercased")
	}
}

func TestReadCSVDelimiters(t *testing.T) {
	input := "timestamp;location;volume\n2024-01-15 08:00:00;Route 280;42\n"
	rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["location"] != "Route 280" || rows[0]["volume"] != "42" {
		t.Errorf("semicolon rows = %v", rows)
	}

	input = "timestamp\tvolume\n2024-01-15 08:00:00\t7\n"
	rows, err = ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if rows[0]["volume"] != "7" {
		t.Errorf("tab rows = %v", rows)
	}
}

func TestReadCSVEncodings(t *testing.T) {
	withBOM := "\ufefftimestamp,volume\n2024-01-15 08:00:00,9\n"
	rows, err := ReadCSV(strings.NewReader(withBOM))
	if err != nil {
		t.Fatalf("ReadCSV with BOM failed: %v", err)
	}
	if rows[0]["timestamp"] != "2024-01-15 08:00:00" {
		t.Errorf("BOM leaked into header: %v", rows[0])
	}

	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	utf16, err := enc.String("timestamp,volume\n2024-01-15 08:00:00,11\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rows, err = ReadCSV(strings.NewReader(utf16))
	if err != nil {
		t.Fatalf("ReadCSV UTF-16 failed: %v", err)
	}
	if rows[0]["volume"] != "11" {
		t.Errorf("UTF-16 rows = %v", rows)
	}
}

func TestReadCSVStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated quote", "timestamp,location\n2024-01-15,\"Highway 101\n"},
		{"inconsistent columns", "timestamp,location\n2024-01-15,a,b,c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestReadCSVEmpty(t *testing.T) {
	for _, input := range []string{"", "   \n\n", "timestamp,location,volume\n"} {
		_, err := ReadCSV(strings.NewReader(input))
		if !errors.Is(err, ErrEmptyDataset) {
			t.Errorf("ReadCSV(%q) = %v, want ErrEmptyDataset", input, err)
		}
	}
}

func TestLoad(t *testing.T) {
	records, err := Load("upload.CSV", strings.NewReader(sampleCSV), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != "a1" || records[1].Weather != "clear" || records[2].DayOfWeek != "Tuesday" {
		t.Errorf("records = %+v", records)
	}

	_, err = Load("notes.txt", strings.NewReader(sampleCSV), nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	table := [][]interface{}{
		{},
		{"Timestamp", "Location", "Volume", "Speed"},
		{"2024-01-15 08:00:00", "Interstate 5", 120, 45.5},
		{"2024-01-15 09:00:00", "Interstate 5"},
	}
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	records, err := Load("sensors.xlsx", buf, nil)
	if err != nil {
		t.Fatalf("Load xlsx failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Location != "Interstate 5" || records[0].Volume != 120 || records[0].Speed != 45.5 {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Volume != 0 || records[1].Hour != 9 {
		t.Errorf("ragged row = %+v", records[1])
	}
}

func workbook(t *testing.T, table [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestReadXLSXNativeDates(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Timestamp", "Location", "Volume"},
		{time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), "Interstate 5", 120},
		{"1/16/2024 9:30", "Interstate 5", 45306},
	})

	records, err := Load("sensors.xlsx", buf, nil)
	if err != nil {
		t.Fatalf("Load xlsx failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	want := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	if !records[0].Timestamp.Equal(want) || records[0].Volume != 120 {
		t.Errorf("record 0 = %v volume %d, want %v", records[0].Timestamp, records[0].Volume, want)
	}
	if records[1].Date != "2024-01-16" || records[1].Time != "09:30" || records[1].Volume != 45306 {
		t.Errorf("record 1 = %s %s volume %d", records[1].Date, records[1].Time, records[1].Volume)
	}

	buf = workbook(t, [][]interface{}{
		{"Date", "Time", "Volume"},
		{time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), "07:45", 10},
	})
	records, err = Load("daily.xlsx", buf, nil)
	if err != nil {
		t.Fatalf("Load date column failed: %v", err)
	}
	if records[0].Date != "2024-03-02" || records[0].Time != "07:45" || !records[0].IsWeekend {
		t.Errorf("date column record = %+v", records[0])
	}
}

func TestReadXLSXInvalid(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("definitely not a zip"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
