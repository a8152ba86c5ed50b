package market_test

import (
	"context"
	"testing"

	"ge-tracker/internal/market"
	"ge-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestPrices_NewestPerItem(t *testing.T) {
	store, db := newStore(t)
	seedItems(t, db, 1, 2, 3)
	require.NoError(t, store.RecordPrices(context.Background(), []models.Price{
		{ItemID: 1, BuyPrice: gp(10), Timestamp: minutes(0)},
		{ItemID: 1, BuyPrice: gp(30), Timestamp: minutes(20)},
		{ItemID: 1, BuyPrice: gp(20), Timestamp: minutes(10)},
		{ItemID: 2, BuyPrice: gp(5), Timestamp: minutes(3)},
	}))

	latest, err := store.LatestPrices(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(30), *latest[1].BuyPrice)
	assert.True(t, latest[1].Timestamp.Equal(minutes(20)))
	assert.Equal(t, int64(5), *latest[2].BuyPrice)
	assert.NotContains(t, latest, int64(3))
}

func TestLatestPrices_TieGoesToHighestID(t *testing.T) {
	store, db := newStore(t)
	seedItems(t, db, 7)
	rows := []models.Price{
		{ItemID: 7, SellPrice: gp(1), Timestamp: minutes(5)},
		{ItemID: 7, SellPrice: gp(2), Timestamp: minutes(5)},
		{ItemID: 7, SellPrice: gp(3), Timestamp: minutes(5)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	latest, err := store.LatestPrices(context.Background(), []int64{7})
	require.NoError(t, err)
	assert.Equal(t, rows[2].ID, latest[7].ID)
	assert.Equal(t, int64(3), *latest[7].SellPrice)
}

func TestLatestPrices_NilMeansAllWithHistory(t *testing.T) {
	store, db := newStore(t)
	seedItems(t, db, 1, 2, 3)
	require.NoError(t, store.RecordPrices(context.Background(), []models.Price{
		{ItemID: 1, Timestamp: minutes(1)},
		{ItemID: 3, Timestamp: minutes(1)},
	}))

	latest, err := store.LatestPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, latest, 2)
	assert.Contains(t, latest, int64(1))
	assert.Contains(t, latest, int64(3))
}

func TestLatestPrices_EmptyInputSkipsStore(t *testing.T) {
	store, db := newStore(t)
	queries := countQueries(t, db)

	latest, err := store.LatestPrices(context.Background(), []int64{})
	require.NoError(t, err)
	assert.Empty(t, latest)
	assert.Zero(t, queries.Load())
}

func TestLatestPrices_RoundTripsIndependentOfItemCount(t *testing.T) {
	for _, n := range []int{10, 10_000} {
		store, db := newStore(t)
		ids := make([]int64, n)
		prices := make([]models.Price, 0, 2*n)
		for i := range ids {
			ids[i] = int64(i + 1)
			prices = append(prices,
				models.Price{ItemID: ids[i], Timestamp: minutes(0)},
				models.Price{ItemID: ids[i], Timestamp: minutes(1)},
			)
		}
		seedItems(t, db, ids...)
		require.NoError(t, store.RecordPrices(context.Background(), prices))

		queries := countQueries(t, db)
		latest, err := store.LatestPrices(context.Background(), ids)
		require.NoError(t, err)
		assert.Len(t, latest, n)
		assert.Equal(t, int64(1), queries.Load(), "items=%d", n)
	}
}

func TestPriceHistory(t *testing.T) {
	store, db := newStore(t)
	seedItems(t, db, 1)
	require.NoError(t, store.RecordPrices(context.Background(), []models.Price{
		{ItemID: 1, BuyPrice: gp(1), Timestamp: minutes(0)},
		{ItemID: 1, BuyPrice: gp(2), Timestamp: minutes(2)},
		{ItemID: 1, BuyPrice: gp(3), Timestamp: minutes(1)},
	}))

	history, err := store.PriceHistory(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(2), *history[0].BuyPrice)
	assert.Equal(t, int64(3), *history[1].BuyPrice)

	_, err = store.PriceHistory(context.Background(), 99, 0)
	assert.ErrorIs(t, err, market.ErrNotFound)
}
