// Package report renders the issue reporting view as a spreadsheet.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/goatkit/issueflow/internal/models"
)

const (
	// SheetName is the name of the only worksheet.
	SheetName = "Tasks Report"
	// FileName is the suggested download name.
	FileName = "Tasks_Report.xlsx"
	// ContentType is the XLSX media type.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns are the header cells, in order.
var Columns = []string{
	"Problem",
	"Description",
	"Address",
	"Completed",
	"Department Reported",
	"Required Department",
	"Acknowledge Time",
	"Created Time",
	"Resolved Time",
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func cells(r models.ReportRow) []any {
	description := r.Description
	if description == "" {
		description = "None"
	}
	completed := "No"
	if r.Complete {
		completed = "Yes"
	}
	resolved := "-"
	if r.Resolved() {
		resolved = r.UpdatedAt
	}
	required := ""
	if r.RequiredDepartmentName != nil {
		required = *r.RequiredDepartmentName
	}
	return []any{
		r.Issue,
		description,
		r.Address,
		completed,
		orDash(r.UserDepartmentName),
		required,
		orDash(r.AcknowledgeAt),
		r.CreatedAt,
		resolved,
	}
}

// WriteXLSX writes rows as a single sheet workbook to w.
func WriteXLSX(w io.Writer, rows []models.ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 22); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := cells(r)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
