package records

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/reprocost/internal/estimate"
)

const exportSheet = "Estimates"

// ExportXLSX writes records to a workbook with the same columns as the flat
// file store.
func ExportXLSX(recs []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	header := make([]interface{}, 0, len(fixedColumns))
	for _, col := range fixedColumns {
		header = append(header, col)
	}
	items := ItemNames(recs)
	for _, item := range items {
		header = append(header, estimate.QuantityKey(item))
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastCell, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, fmt.Errorf("resolve header range: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", lastCell, bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range recs {
		fields := r.Fields()
		row := make([]interface{}, len(header))
		for j, col := range header {
			row[j] = fields[col.(string)]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("resolve row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
