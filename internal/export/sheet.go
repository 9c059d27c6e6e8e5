package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Artifact metadata.
const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "일괄등록"
)

// BuildSheet writes the header row plus one row per record. Integer columns
// are stored as numbers. No rows yields the header-only template.
func BuildSheet(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, h := range Headers() {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, style); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("resolve row %d: %w", i+1, err)
		}
		values := cells(row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cells(row Row) []any {
	out := make([]any, len(Columns))
	for i, c := range Columns {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		if c.Format == FormatInteger && v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				out[i] = n
				continue
			}
		}
		out[i] = v
	}
	return out
}
