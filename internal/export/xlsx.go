package export

import (
	"io"

	"github.com/ukydev/smart-clean/internal/models"
	"github.com/xuri/excelize/v2"
)

const ReportSheet = "Reports"

// WriteXLSX streams reports into a workbook written to w.
func WriteXLSX(w io.Writer, reports []models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ReportSheet)
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(ReportSheet)
	if err != nil {
		return err
	}

	headers := []interface{}{
		"ID", "Created", "Status", "Lat", "Lon",
		"Nearest Bin", "Distance (km)", "Notes", "Image",
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	for i, r := range reports {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.ID.Hex(), r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), string(r.Status),
			"", "", "", "", r.Notes, r.ImageName,
		}
		if r.Location != nil {
			row[3], row[4] = r.Location.Lat, r.Location.Lon
		}
		if r.Nearest != nil {
			row[5], row[6] = r.Nearest.Facility.Name, r.Nearest.DistanceKm
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
