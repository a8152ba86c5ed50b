package report

import (
	"bytes"
	"testing"
	"time"

	"ge-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func i64(v int64) *int64 { return &v }

func TestFlipWorkbook(t *testing.T) {
	order := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bought, sold := order.Add(time.Hour), order.Add(4*time.Hour)
	flips := []models.Flip{
		{ID: 1, ItemID: 4151, Quantity: 100, BuyPrice: i64(2), SellPrice: i64(3), OrderDate: order, BuyDate: &bought, ListedDate: &bought, SellDate: &sold},
		{ID: 2, ItemID: 9, Quantity: 5, BuyPrice: i64(10), OrderDate: order},
	}

	f, err := FlipWorkbook(flips, map[int64]string{4151: "Abyssal whip"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := reopened.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Item", rows[0][1])
	assert.Equal(t, "Abyssal whip", rows[1][1])
	assert.Equal(t, "SOLD", rows[1][5])
	assert.Equal(t, "100", rows[1][9])
	assert.Equal(t, "25", rows[1][11])

	assert.Equal(t, "#9", rows[2][1])
	assert.Equal(t, "BUYING", rows[2][5])
	profitTotal, err := reopened.GetCellValue(SheetName, "J3")
	require.NoError(t, err)
	assert.Empty(t, profitTotal)
}
