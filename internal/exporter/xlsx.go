package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"casepulse/pkg/contracts/domain"
)

// Fixed sheet names of the workbook export.
const (
	SheetSummary = "Summary"
	SheetTrend   = "Monthly Trend"
	SheetGender  = "Gender"
)

// MIME types of the export formats.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")",
)

// BuildWorkbook creates the xlsx workbook for rep. The caller must Close it.
func BuildWorkbook(rep *domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename default sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	wb := &workbook{file: f, header: header, used: map[string]bool{
		strings.ToLower(SheetSummary): true,
		strings.ToLower(SheetTrend):   true,
		strings.ToLower(SheetGender):  true,
	}}
	if err := wb.writeSummary(rep); err != nil {
		f.Close()
		return nil, err
	}
	for _, section := range rep.Sections {
		if err := wb.writeLeaderboard(section); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := wb.writeTrend(rep.Trend); err != nil {
		f.Close()
		return nil, err
	}
	if err := wb.writeGender(rep.Gender); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Hospital case report",
		Creator: "casepulse",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}
	return f, nil
}

// WriteWorkbook writes the xlsx workbook for rep to w.
func WriteWorkbook(w io.Writer, rep *domain.Report) error {
	f, err := BuildWorkbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type workbook struct {
	file   *excelize.File
	header int
	used   map[string]bool
}

func (wb *workbook) writeRows(sheet string, headers []string, rows [][]interface{}) error {
	head := make([]interface{}, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := wb.file.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("sheet %q: failed to write headers: %w", sheet, err)
	}
	if err := wb.file.SetRowStyle(sheet, 1, 1, wb.header); err != nil {
		return fmt.Errorf("sheet %q: failed to style headers: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.file.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("sheet %q: failed to write row %d: %w", sheet, i+2, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return wb.file.SetColWidth(sheet, "A", last, 22)
}

func (wb *workbook) newSheet(name string) error {
	if _, err := wb.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", name, err)
	}
	return nil
}

func (wb *workbook) writeSummary(rep *domain.Report) error {
	rows := make([][]interface{}, 0, len(rep.Sections))
	for _, s := range rep.Sections {
		rows = append(rows, []interface{}{
			s.Hospital,
			s.Metrics.CaseCount,
			optionalCell(s.Metrics.AverageDifference),
			optionalCell(s.Metrics.AverageServiceDuration),
		})
	}
	return wb.writeRows(SheetSummary,
		[]string{"Hospital", "Number of Cases", "Average Difference ($)", "Average Service Duration"},
		rows)
}

func (wb *workbook) writeLeaderboard(section domain.HospitalSection) error {
	name := wb.uniqueSheetName(section.Hospital)
	if err := wb.newSheet(name); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(section.Leaderboard))
	for _, r := range section.Leaderboard {
		rows = append(rows, []interface{}{r.Doctor, r.CaseCount, r.TotalDifference})
	}
	return wb.writeRows(name, []string{"Doctor", "Case_Count", "Total_Difference"}, rows)
}

func (wb *workbook) writeTrend(chart domain.TrendChart) error {
	if err := wb.newSheet(SheetTrend); err != nil {
		return err
	}

	var rows [][]interface{}
	for _, series := range chart.Series {
		for _, p := range series.Points {
			rows = append(rows, []interface{}{series.Hospital, monthCell(p.Month), p.Sum})
		}
	}
	return wb.writeRows(SheetTrend, []string{"Hospital", chart.XLabel, chart.YLabel}, rows)
}

func (wb *workbook) writeGender(chart domain.GenderChart) error {
	if err := wb.newSheet(SheetGender); err != nil {
		return err
	}

	var rows [][]interface{}
	for _, panel := range chart.Panels {
		for _, c := range panel.Counts {
			rows = append(rows, []interface{}{panel.Hospital, c.Gender, c.Count})
		}
	}
	return wb.writeRows(SheetGender, []string{"Hospital", chart.XLabel, chart.YLabel}, rows)
}

// uniqueSheetName derives a valid, unused sheet name from a hospital name.
func (wb *workbook) uniqueSheetName(hospital string) string {
	// Excel rejects names that start or end with an apostrophe, so trim
	// again once truncation may have exposed one
	base := sheetNameBase(truncateRunes(sheetNameBase(hospital), maxSheetName))
	if base == "" {
		base = "Hospital"
	}

	name := base
	// Sheet names are case-insensitive in Excel
	for i := 2; wb.used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = sheetNameBase(truncateRunes(base, maxSheetName-len(suffix))) + suffix
	}
	wb.used[strings.ToLower(name)] = true
	return name
}

func sheetNameBase(s string) string {
	return strings.Trim(strings.TrimSpace(sheetNameReplacer.Replace(s)), "' ")
}
