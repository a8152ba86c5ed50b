// Package report renders a merchant's flips as an Excel workbook.
package report

import (
	"fmt"

	"ge-tracker/internal/models"
	"ge-tracker/internal/profit"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Flips"

var header = []interface{}{
	"ID", "Item", "Quantity", "Buy price", "Sell price", "State",
	"Order date", "Sell date", "Profit each", "Profit total", "Hours", "Profit/hour", "ROI",
}

func optional[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// FlipWorkbook writes one row per flip. Figures that are undefined for a
// flip's state are left blank.
func FlipWorkbook(flips []models.Flip, itemNames map[int64]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 28); err != nil {
		return nil, err
	}

	for i, flip := range flips {
		s := profit.Summarize(flip)
		name, ok := itemNames[flip.ItemID]
		if !ok {
			name = fmt.Sprintf("#%d", flip.ItemID)
		}
		row := []interface{}{
			flip.ID,
			name,
			flip.Quantity,
			optional(flip.BuyPrice),
			optional(flip.SellPrice),
			s.State.String(),
			flip.OrderDate,
			optional(flip.SellDate),
			optional(s.ProfitEach),
			optional(s.ProfitTotal),
			optional(s.DurationHours),
			optional(s.ProfitPerHour),
			optional(s.ROI),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}
