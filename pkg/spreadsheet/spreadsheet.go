package spreadsheet

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"solar-telemetry-platform/internal/models"
)

// Parse reads the first sheet of an .xlsx export into ordered row
// mappings. The first row supplies the column names; fully blank rows are
// skipped; ragged rows are padded with empty cells. Parse does no
// validation beyond the file structure itself.
func Parse(r io.Reader) ([]models.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	cells, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	headers := make([]string, 0, len(cells[0]))
	for _, h := range cells[0] {
		headers = append(headers, strings.TrimSpace(h))
	}

	rows := make([]models.Row, 0, len(cells)-1)
	for _, line := range cells[1:] {
		if isBlankLine(line) {
			continue
		}
		row := make(models.Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(line) {
				value = strings.TrimSpace(line[i])
			}
			row[header] = value
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteErrorReport renders the defective rows of a validated batch as an
// .xlsx for download, one line per row with its defects joined up.
func WriteErrorReport(rows []models.Row, rowErrors []models.RowError) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "errors"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Row")
	_ = f.SetCellValue(sheet, "B1", "Date")
	_ = f.SetCellValue(sheet, "C1", "Time")
	_ = f.SetCellValue(sheet, "D1", "Errors")

	for i, rowErr := range rowErrors {
		line := i + 2

		date, clock := "", ""
		// Row numbers are sheet-relative: the first data row is 2
		if idx := rowErr.RowNumber - 2; idx >= 0 && idx < len(rows) {
			date = rows[idx].Get(models.FieldDate)
			clock = rows[idx].Get(models.FieldTime)
		}

		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", line), rowErr.RowNumber)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", line), date)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", line), clock)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", line), strings.Join(rowErr.Errors, "; "))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write error report: %w", err)
	}
	return buf.Bytes(), nil
}

func isBlankLine(line []string) bool {
	for _, cell := range line {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
