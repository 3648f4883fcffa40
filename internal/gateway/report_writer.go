package gateway

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"gstr2b-reconciler/internal/domain"
)

const reportSheet = "Reconciliation Result"

// amountHighlightThreshold marks invoice totals in red when the two sides
// differ by more than one currency unit, even inside the match tolerance.
const amountHighlightThreshold = 1.0

var reportHeaders = []string{
	"Status",
	"PB GSTIN", "PB Party", "PB Inv", "PB Date", "PB Total",
	"2B GSTIN", "2B Party", "2B Inv", "2B Date", "2B Total",
	"Remarks",
}

var reportColWidths = []float64{20, 15, 20, 15, 12, 12, 15, 20, 15, 12, 12, 25}

// ReportWriter renders a reconciliation report as an xlsx workbook with one
// row per result and status-colored cells.
type ReportWriter struct{}

// NewReportWriter creates a new report writer instance.
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write saves the report workbook to path.
func (w *ReportWriter) Write(report *domain.ReconciliationReport, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return fmt.Errorf("failed to create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	styles, err := newReportStyles(f)
	if err != nil {
		return err
	}

	for col, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(reportSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write report header: %w", err)
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		_ = f.SetColWidth(reportSheet, name, name, reportColWidths[col])
	}

	for i, res := range report.Results {
		if err := writeResultRow(f, styles, i+2, res); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report to %s: %w", path, err)
	}
	return nil
}

type reportStyles struct {
	green   int // matched
	orange  int // mismatch / inferred
	red     int // missing
	diffVal int // red bold text for differing cells
}

func newReportStyles(f *excelize.File) (*reportStyles, error) {
	fill := func(color string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
	}

	var s reportStyles
	var err error
	if s.green, err = fill("C6EFCE"); err != nil {
		return nil, fmt.Errorf("failed to build report styles: %w", err)
	}
	if s.orange, err = fill("FFEB9C"); err != nil {
		return nil, fmt.Errorf("failed to build report styles: %w", err)
	}
	if s.red, err = fill("FFC7CE"); err != nil {
		return nil, fmt.Errorf("failed to build report styles: %w", err)
	}
	if s.diffVal, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006", Bold: true},
	}); err != nil {
		return nil, fmt.Errorf("failed to build report styles: %w", err)
	}
	return &s, nil
}

func writeResultRow(f *excelize.File, styles *reportStyles, row int, res domain.ReconciliationResult) error {
	values := []any{string(res.Status)}
	values = append(values, recordCells(res.BooksRecord)...)
	values = append(values, recordCells(res.Gstr2bRecord)...)
	values = append(values, res.Remarks)

	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if err := f.SetCellValue(reportSheet, cell, v); err != nil {
			return fmt.Errorf("failed to write report row %d: %w", row, err)
		}
	}

	statusCell, _ := excelize.CoordinatesToCellName(1, row)
	statusStyle := styles.red
	switch res.Status {
	case domain.StatusMatched:
		statusStyle = styles.green
	case domain.StatusAmountMismatch, domain.StatusInferredMatch:
		statusStyle = styles.orange
	}
	_ = f.SetCellStyle(reportSheet, statusCell, statusCell, statusStyle)

	if res.BooksRecord != nil && res.Gstr2bRecord != nil {
		if res.BooksRecord.InvoiceNumber != res.Gstr2bRecord.InvoiceNumber {
			highlight(f, styles.diffVal, row, 4, 9) // PB Inv, 2B Inv
		}
		diff := res.BooksRecord.InvoiceValue.Sub(res.Gstr2bRecord.InvoiceValue).Abs()
		if diff.InexactFloat64() > amountHighlightThreshold {
			highlight(f, styles.diffVal, row, 6, 11) // PB Total, 2B Total
		}
	}
	return nil
}

func recordCells(r *domain.CanonicalRecord) []any {
	if r == nil {
		return []any{"", "", "", "", ""}
	}
	total, _ := r.InvoiceValue.Float64()
	return []any{r.Gstin, r.SupplierName, r.InvoiceNumber, r.InvoiceDate, total}
}

func highlight(f *excelize.File, style, row int, cols ...int) {
	for _, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellStyle(reportSheet, cell, cell, style)
	}
}
