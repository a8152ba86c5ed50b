package market_test

import (
	"context"
	"testing"

	"ge-tracker/internal/market"
	"ge-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, store *market.Store) {
	t.Helper()
	require.NoError(t, store.UpsertItems(context.Background(), []models.Item{
		{ID: 4151, Name: "Abyssal whip", Members: true},
		{ID: 11802, Name: "Armadyl godsword", Members: true},
		{ID: 1333, Name: "Rune scimitar"},
		{ID: 2, Name: "Cannonball", Members: true},
	}))
}

func ids(items []models.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestListItems_Filters(t *testing.T) {
	store, db := newStore(t)
	seedCatalog(t, store)
	alice := seedMerchant(t, db, "alice")
	ctx := context.Background()

	items, total, err := store.ListItems(ctx, market.ItemFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []int64{2, 1333, 4151, 11802}, ids(items))

	items, _, err = store.ListItems(ctx, market.ItemFilter{Names: []string{"SCIM"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1333}, ids(items))

	items, _, err = store.ListItems(ctx, market.ItemFilter{Names: []string{"a", "sword"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{11802}, ids(items))

	f2p := false
	items, _, err = store.ListItems(ctx, market.ItemFilter{Members: &f2p}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1333}, ids(items))

	items, total, err = store.ListItems(ctx, market.ItemFilter{Page: 2, PageSize: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []int64{11802}, ids(items))

	_, err = store.AddTag(ctx, 4151, "melee", models.NoOwner)
	require.NoError(t, err)
	_, err = store.AddTag(ctx, 1333, "melee", models.NoOwner)
	require.NoError(t, err)
	_, err = store.AddTag(ctx, 4151, "buy", alice.ID)
	require.NoError(t, err)

	items, _, err = store.ListItems(ctx, market.ItemFilter{Tags: []string{"Melee"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1333, 4151}, ids(items))

	items, _, err = store.ListItems(ctx, market.ItemFilter{Tags: []string{"melee", "buy"}}, alice)
	require.NoError(t, err)
	assert.Equal(t, []int64{4151}, ids(items))

	items, total, err = store.ListItems(ctx, market.ItemFilter{Tags: []string{"melee", "buy"}}, nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestUpsertItems_RefreshesMetadata(t *testing.T) {
	store, _ := newStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpsertItems(ctx, []models.Item{{ID: 2, Name: "Cannonball", Members: true, BuyLimit: gp(11000)}}))

	item, err := store.GetItem(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, item.BuyLimit)
	assert.Equal(t, int64(11000), *item.BuyLimit)

	_, err = store.GetItem(ctx, 3)
	assert.ErrorIs(t, err, market.ErrNotFound)

	all, err := store.ItemIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1333, 4151, 11802}, all)
}

func TestSearchItems_RanksFuzzyMatches(t *testing.T) {
	store, _ := newStore(t)
	seedCatalog(t, store)

	found, err := store.SearchItems(context.Background(), "whip", 10)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, int64(4151), found[0].ID)
	assert.Equal(t, "Abyssal whip", found[0].Name)

	found, err = store.SearchItems(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestItemNames(t *testing.T) {
	store, _ := newStore(t)
	seedCatalog(t, store)

	names, err := store.ItemNames(context.Background(), []int64{2, 99})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{2: "Cannonball"}, names)
}
