package aggregate

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/smartcity/trafficlens/internal/domain"
)

type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

// ExportXLSX writes every dimension table of records to w as a workbook
func ExportXLSX(w io.Writer, records []domain.TrafficRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range exportSheets(records) {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("aggregate: failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("aggregate: failed to create sheet %s: %w", s.name, err)
		}

		table := append([][]interface{}{s.header}, s.rows...)
		for r, row := range table {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return fmt.Errorf("aggregate: failed to address row: %w", err)
			}
			row := row
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("aggregate: failed to write %s row %d: %w", s.name, r+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("aggregate: failed to write workbook: %w", err)
	}
	return nil
}

func exportSheets(records []domain.TrafficRecord) []sheet {
	locations := sheet{name: "Locations", header: []interface{}{"Location", "Total Volume", "Avg Volume", "Avg Speed", "Avg Occupancy", "Count", "Peak Volume", "Peak Time"}}
	for _, s := range ByLocation(records) {
		locations.rows = append(locations.rows, []interface{}{s.Location, s.TotalVolume, s.AvgVolume, s.AvgSpeed, s.AvgOccupancy, s.Count, s.PeakVolume, s.PeakTime})
	}

	hourly := sheet{name: "Hourly", header: []interface{}{"Hour", "Avg Volume", "Avg Speed", "Avg Occupancy", "Count"}}
	for _, s := range ByHour(records) {
		hourly.rows = append(hourly.rows, []interface{}{s.Label, s.AvgVolume, s.AvgSpeed, s.AvgOccupancy, s.Count})
	}

	daily := sheet{name: "Daily", header: []interface{}{"Day", "Avg Volume", "Avg Speed", "Count"}}
	for _, s := range ByDayOfWeek(records) {
		daily.rows = append(daily.rows, []interface{}{s.Day, s.AvgVolume, s.AvgSpeed, s.Count})
	}

	monthly := sheet{name: "Monthly", header: []interface{}{"Month", "Avg Volume", "Avg Speed", "Count"}}
	for _, s := range ByMonth(records) {
		monthly.rows = append(monthly.rows, []interface{}{s.Month, s.AvgVolume, s.AvgSpeed, s.Count})
	}

	seasons := sheet{name: "Seasons", header: []interface{}{"Season", "Avg Volume", "Avg Speed", "Count"}}
	for _, s := range BySeason(records) {
		seasons.rows = append(seasons.rows, []interface{}{s.Season, s.AvgVolume, s.AvgSpeed, s.Count})
	}

	weather := sheet{name: "Weather", header: []interface{}{"Weather", "Avg Volume", "Avg Speed", "Count"}}
	for _, s := range ByWeather(records) {
		weather.rows = append(weather.rows, []interface{}{s.Weather, s.AvgVolume, s.AvgSpeed, s.Count})
	}

	return []sheet{locations, hourly, daily, monthly, seasons, weather}
}
