package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
)

// Column headers of the exported ledger sheet, matched case-insensitively
const (
	ColSupplier    = "supplier"
	ColDate        = "date"
	ColDocumentID  = "documentid"
	ColDescription = "description"
	ColItem        = "item"
	ColQuantity    = "quantity"
	ColUnitPrice   = "unitprice"
	ColTotal       = "total"
)

var requiredColumns = []string{ColSupplier, ColDate, ColDocumentID}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006-1-2", "2006/1/2", "02.01.2006"}

// WorkbookLedger answers ledger queries from an exported .xlsx workbook. The
// file is reopened on every query so a refreshed export is picked up.
type WorkbookLedger struct {
	path   string
	sheet  string
	logger *zap.Logger
}

// NewWorkbookLedger creates a ledger reader. An empty sheet means the first sheet.
func NewWorkbookLedger(path, sheet string, logger *zap.Logger) *WorkbookLedger {
	return &WorkbookLedger{
		path:   path,
		sheet:  sheet,
		logger: logger,
	}
}

// Query returns the supplier's ledger records dated within [start, end],
// one record per document id in sheet order.
func (l *WorkbookLedger) Query(ctx context.Context, supplierEntity string, start, end time.Time) ([]entity.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger workbook: %w", err)
	}
	defer f.Close()

	sheet := l.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("ledger workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	supplier := strings.ToLower(strings.TrimSpace(supplierEntity))
	from := dayOf(start)
	to := dayOf(end)

	var records []entity.DocumentRecord
	byID := make(map[string]int)

	for i, row := range rows[1:] {
		rowNum := i + 2
		if strings.ToLower(cell(row, cols, ColSupplier)) != supplier {
			continue
		}

		date, err := parseDate(cell(row, cols, ColDate))
		if err != nil {
			l.logger.Warn("Skipping ledger row with unreadable date",
				zap.Int("row", rowNum),
				zap.String("value", cell(row, cols, ColDate)))
			continue
		}
		if date.Before(from) || date.After(to) {
			continue
		}

		item, err := rowItem(row, cols)
		if err != nil {
			l.logger.Warn("Skipping ledger row with unreadable amounts", zap.Int("row", rowNum), zap.Error(err))
			continue
		}

		docID := cell(row, cols, ColDocumentID)
		if docID == "" {
			docID = fmt.Sprintf("row-%d", rowNum)
		}

		idx, ok := byID[docID]
		if !ok {
			d := date
			records = append(records, entity.DocumentRecord{
				ID:          docID,
				Date:        &d,
				Description: cell(row, cols, ColDescription),
			})
			idx = len(records) - 1
			byID[docID] = idx
		}

		rec := &records[idx]
		rec.Amount += item.TotalPrice
		if item.Name != "" {
			rec.Items = append(rec.Items, item)
		}
	}

	l.logger.Info("Ledger query completed",
		zap.String("supplier", supplierEntity),
		zap.Time("start", from),
		zap.Time("end", to),
		zap.Int("records", len(records)))

	return records, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.NewReplacer(" ", "", "_", "").Replace(strings.TrimSpace(h)))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("ledger sheet is missing column %q", c)
		}
	}
	return cols, nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rowItem(row []string, cols map[string]int) (entity.LineItem, error) {
	qty, err := parseNumber(cell(row, cols, ColQuantity))
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := parseNumber(cell(row, cols, ColUnitPrice))
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("unit price: %w", err)
	}
	total, err := parseNumber(cell(row, cols, ColTotal))
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("total: %w", err)
	}
	if cell(row, cols, ColTotal) == "" {
		total = qty * price
	}

	return entity.LineItem{
		Name:       cell(row, cols, ColItem),
		Quantity:   qty,
		UnitPrice:  price,
		TotalPrice: total,
	}, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseDate accepts a raw serial date or a text date
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return dayOf(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var _ port.LedgerClient = (*WorkbookLedger)(nil)
