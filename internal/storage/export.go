package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportQuotesToExcel renders an org's quote book as a spreadsheet and
// returns the file contents, ready to stream over HTTP.
func (s *PostgresStorage) ExportQuotesToExcel(ctx context.Context, orgID uuid.UUID) ([]byte, string, error) {
	quotes, err := s.ListQuotes(ctx, orgID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch quotes: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Quotes"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "Reference", "Status", "Subtotal Cost", "Overhead",
		"Profit", "Total Price", "Margin %", "Spot Price", "Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheet, "A1", "J1", style)

	for row, quote := range quotes {
		data := []interface{}{
			quote.ID.String(),
			quote.Reference,
			quote.Status,
			quote.SubtotalCost.InexactFloat64(),
			quote.Overhead.InexactFloat64(),
			quote.Profit.InexactFloat64(),
			quote.TotalPrice.InexactFloat64(),
			quote.Margin.InexactFloat64(),
			quote.SpotPrice.InexactFloat64(),
			quote.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	filename := fmt.Sprintf("quotes_%s.xlsx", time.Now().Format("20060102_1504"))
	return buf.Bytes(), filename, nil
}
