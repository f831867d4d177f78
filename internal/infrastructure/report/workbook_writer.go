package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

const (
	SheetSummary  = "Summary"
	SheetItems    = "Items"
	SheetFailures = "Extraction Failures"
)

var summaryStatuses = []entity.ComparisonStatus{
	entity.StatusMatched,
	entity.StatusDiscrepancy,
	entity.StatusSupplierOnly,
	entity.StatusSystemOnly,
}

var itemHeader = []interface{}{
	"Status",
	"Supplier Item", "Supplier Qty", "Supplier Unit Price", "Supplier Total",
	"System Item", "System Qty", "System Unit Price", "System Total",
	"Details",
}

// WorkbookWriter renders a reconciliation run as an .xlsx workbook
type WorkbookWriter struct {
	logger *zap.Logger
}

// NewWorkbookWriter creates a new report writer
func NewWorkbookWriter(logger *zap.Logger) *WorkbookWriter {
	return &WorkbookWriter{logger: logger}
}

// Write returns the workbook bytes for run
func (w *WorkbookWriter) Write(run *entity.ReconciliationRun) ([]byte, error) {
	if run == nil || run.Result == nil {
		return nil, fmt.Errorf("run has no result to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := w.writeSummary(f, run, bold); err != nil {
		return nil, err
	}
	if err := w.writeItems(f, run.Result.ComparedItems, bold); err != nil {
		return nil, err
	}
	if len(run.ExtractionFailures) > 0 {
		if err := w.writeFailures(f, run.ExtractionFailures, bold); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Report workbook generated",
		zap.String("run_id", run.ID),
		zap.Int("rows", len(run.Result.ComparedItems)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

func (w *WorkbookWriter) writeSummary(f *excelize.File, run *entity.ReconciliationRun, bold int) error {
	result := run.Result
	rows := [][]interface{}{
		{"Run", run.ID},
		{"Supplier", run.SupplierEntity},
		{"Period", fmt.Sprintf("%s to %s", run.PeriodStart.Format("2006-01-02"), run.PeriodEnd.Format("2006-01-02"))},
		{"Status", run.Status},
		{"Summary", result.Summary},
		{"Total Supplier Amount", result.TotalSupplierAmount},
		{"Total System Amount", result.TotalSystemAmount},
		{"Difference", result.Difference},
	}
	counts := result.CountByStatus()
	for _, status := range summaryStatuses {
		rows = append(rows, []interface{}{status.String(), counts[status]})
	}
	if run.ErrorMessage != "" {
		rows = append(rows, []interface{}{"Classification Error", run.ErrorMessage})
	}

	if err := setRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}

func (w *WorkbookWriter) writeItems(f *excelize.File, items []entity.ComparedItem, bold int) error {
	rows := make([][]interface{}, 0, len(items)+1)
	rows = append(rows, itemHeader)
	for _, ci := range items {
		row := []interface{}{ci.Status.String()}
		row = append(row, itemCells(ci.SupplierItem)...)
		row = append(row, itemCells(ci.SystemItem)...)
		row = append(row, ci.Details)
		rows = append(rows, row)
	}

	if err := setRows(f, SheetItems, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetItems, "A1", "J1", bold); err != nil {
		return fmt.Errorf("failed to style items header: %w", err)
	}
	return f.SetPanes(SheetItems, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (w *WorkbookWriter) writeFailures(f *excelize.File, failures []entity.ExtractionFailure, bold int) error {
	if _, err := f.NewSheet(SheetFailures); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	rows := [][]interface{}{{"Document", "Error"}}
	for _, ef := range failures {
		rows = append(rows, []interface{}{ef.DocumentName, ef.Message})
	}
	if err := setRows(f, SheetFailures, rows); err != nil {
		return err
	}
	return f.SetCellStyle(SheetFailures, "A1", "B1", bold)
}

func itemCells(item *entity.LineItem) []interface{} {
	if item == nil {
		return []interface{}{"", "", "", ""}
	}
	return []interface{}{item.Name, item.Quantity, item.UnitPrice, item.TotalPrice}
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cellRef, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

var _ port.ReportWriter = (*WorkbookWriter)(nil)
