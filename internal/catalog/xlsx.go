package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ukydev/smart-clean/internal/models"
	"github.com/xuri/excelize/v2"
)

func parseCoord(val string) (float64, error) {
	// spreadsheets exported with a comma decimal separator
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(val, 64)
}

// LoadXLSX reads facilities from columns A (name), B (lat), C (lon) of
// sheet. The first row is a header. Rows that are short, unnamed or carry
// an unusable coordinate are skipped.
func LoadXLSX(path, sheet string) ([]models.Facility, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var facilities []models.Facility
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue
		}
		lat, err1 := parseCoord(row[1])
		lon, err2 := parseCoord(row[2])
		if err1 != nil || err2 != nil {
			continue
		}
		fac := models.Facility{
			Name:     strings.TrimSpace(row[0]),
			Location: models.Location{Lat: lat, Lon: lon},
		}
		if validate(fac) != nil {
			continue
		}
		facilities = append(facilities, fac)
	}
	if len(facilities) == 0 {
		return nil, ErrEmptyCatalog
	}
	return facilities, nil
}

// WriteXLSX saves facilities in the layout LoadXLSX reads.
func WriteXLSX(path string, facilities []models.Facility) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(DefaultSheet)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(DefaultSheet, "A1", &[]interface{}{"Name", "Lat", "Lon"}); err != nil {
		return err
	}
	for i, fac := range facilities {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{fac.Name, fac.Location.Lat, fac.Location.Lon}
		if err := f.SetSheetRow(DefaultSheet, cell, &row); err != nil {
			return err
		}
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(path)
}
