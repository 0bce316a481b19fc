// Package export renders compliance renewals as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fleetops/fleetops/internal/compliance"
)

// Sheet names.
const (
	TimelineSheet = "Timeline"
	RenewalsSheet = "Renewals"
)

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var timelineHeaders = []interface{}{"Month", "Renewals", "Critical", "Expired"}

var renewalHeaders = []interface{}{
	"Month", "Alert ID", "Asset Type", "Asset", "Title", "Description",
	"Expiry Date", "Days Until Expiry", "Priority", "Status", "Action Required",
}

var bandFills = map[compliance.Band]string{
	compliance.BandRed:   "#F8D7DA",
	compliance.BandAmber: "#FFF3CD",
	compliance.BandGreen: "#D4EDDA",
}

// RenewalsWorkbook builds a workbook with a monthly summary sheet and one
// row per renewal, in timeline order.
func RenewalsWorkbook(timeline []compliance.TimelineMonth) (*excelize.File, error) {
	f := excelize.NewFile()

	f.SetSheetName("Sheet1", TimelineSheet) //nolint:errcheck // Sheet1 always exists in a new file
	if _, err := f.NewSheet(RenewalsSheet); err != nil {
		f.Close()
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	fills := make(map[compliance.Band]int, len(bandFills))
	for band, color := range bandFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			f.Close()
			return nil, err
		}
		fills[band] = id
	}

	if err := writeTimeline(f, timeline, header); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRenewals(f, timeline, header, fills); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteRenewals renders the workbook to w.
func WriteRenewals(w io.Writer, timeline []compliance.TimelineMonth) error {
	f, err := RenewalsWorkbook(timeline)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTimeline(f *excelize.File, timeline []compliance.TimelineMonth, header int) error {
	if err := f.SetSheetRow(TimelineSheet, "A1", &timelineHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(TimelineSheet, "A1", "D1", header); err != nil {
		return err
	}

	for i, month := range timeline {
		var critical, expired int
		for _, r := range month.Renewals {
			if r.Priority == compliance.PriorityCritical {
				critical++
			}
			if r.DaysUntilExpiry <= 0 {
				expired++
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{month.Month, len(month.Renewals), critical, expired}
		if err := f.SetSheetRow(TimelineSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SetColWidth(TimelineSheet, "A", "A", 18)
}

func writeRenewals(f *excelize.File, timeline []compliance.TimelineMonth, header int, fills map[compliance.Band]int) error {
	if err := f.SetSheetRow(RenewalsSheet, "A1", &renewalHeaders); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(renewalHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(RenewalsSheet, "A1", last, header); err != nil {
		return err
	}

	rowNo := 2
	for _, month := range timeline {
		for _, r := range month.Renewals {
			cell, err := excelize.CoordinatesToCellName(1, rowNo)
			if err != nil {
				return err
			}
			row := []interface{}{
				month.Month,
				r.ID,
				string(r.AssetType),
				r.AssetName,
				r.Title,
				r.Description,
				r.ExpiryDate.Format("2006-01-02"),
				r.DaysUntilExpiry,
				string(r.Priority),
				string(r.Status),
				r.ActionRequired,
			}
			if err := f.SetSheetRow(RenewalsSheet, cell, &row); err != nil {
				return err
			}

			if style, ok := fills[r.Status]; ok {
				statusCell, err := excelize.CoordinatesToCellName(10, rowNo)
				if err != nil {
					return err
				}
				if err := f.SetCellStyle(RenewalsSheet, statusCell, statusCell, style); err != nil {
					return err
				}
			}
			rowNo++
		}
	}

	if err := f.SetColWidth(RenewalsSheet, "D", "F", 36); err != nil {
		return err
	}
	return f.SetColWidth(RenewalsSheet, "K", "K", 48)
}
