// Package export writes assessment history to CSV or XLSX files.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/aqlhr/policy-intel-cli/internal/i18n"
	"github.com/aqlhr/policy-intel-cli/internal/model"
	"github.com/aqlhr/policy-intel-cli/internal/risk"
)

// Export file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var header = []string{
	"request_id", "title", "lang", "created_at",
	"compliance_risk", "business_risk", "implementation_risk",
	"overall", "risk_level",
}

// Rows flattens assessments into tabular rows, header first. Percentages
// and the level label are localized for lang.
func Rows(results []model.PolicyRiskResult, lang string) [][]string {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, header)
	for i := range results {
		r := &results[i]
		row := []string{
			r.RequestID,
			r.Title(),
			r.Lang,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		for _, family := range model.Families {
			avg, _ := risk.FamilyScore(r, family)
			row = append(row, i18n.FormatPercent(avg, lang))
		}
		overall := risk.OverallDisplay(r)
		row = append(row, i18n.FormatPercent(overall, lang), risk.Level(overall, lang))
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes assessments as CSV.
func WriteCSV(w io.Writer, results []model.PolicyRiskResult, lang string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(results, lang)); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return nil
}

// WriteXLSX writes assessments as a single-sheet XLSX workbook.
func WriteXLSX(w io.Writer, results []model.PolicyRiskResult, lang string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Assessments")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}
	for _, row := range Rows(results, lang) {
		sheetRow := sheet.AddRow()
		for _, value := range row {
			sheetRow.AddCell().Value = value
		}
	}
	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}
