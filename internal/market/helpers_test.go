package market_test

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ge-tracker/internal/database/dbtest"
	"ge-tracker/internal/market"
	"ge-tracker/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newStore(t *testing.T) (*market.Store, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	return market.NewStore(db, zap.NewNop()), db
}

func seedItems(t *testing.T, db *gorm.DB, ids ...int64) []models.Item {
	t.Helper()
	items := make([]models.Item, len(ids))
	for i, id := range ids {
		items[i] = models.Item{ID: id, Name: fmt.Sprintf("item %d", id)}
	}
	require.NoError(t, db.CreateInBatches(items, 200).Error)
	return items
}

func seedMerchant(t *testing.T, db *gorm.DB, username string) *models.Merchant {
	t.Helper()
	acct := models.Account{Username: username, PasswordHash: "x", Token: "token-" + username}
	require.NoError(t, db.Create(&acct).Error)
	m := models.Merchant{AccountID: acct.ID}
	require.NoError(t, db.Create(&m).Error)
	return &m
}

func gp(v int64) *int64 { return &v }

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func minutes(n int) time.Time { return epoch.Add(time.Duration(n) * time.Minute) }

// countQueries counts statements that read rows, through both the query
// and the row callback chains. Dry runs only render SQL, as gorm does for
// subqueries, and never reach the database.
func countQueries(t *testing.T, db *gorm.DB) *atomic.Int64 {
	t.Helper()
	var n atomic.Int64
	inc := func(d *gorm.DB) {
		if !d.DryRun {
			n.Add(1)
		}
	}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_query", inc))
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:count_row", inc))
	return &n
}
