package magic

import (
	"context"
	"errors"
	"testing"

	"ge-tracker/internal/market"
	"ge-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrices struct {
	prices map[int64]models.Price
	calls  int
	asked  [][]int64
	err    error
}

func (f *fakePrices) LatestPrices(_ context.Context, ids []int64) (map[int64]models.Price, error) {
	f.calls++
	f.asked = append(f.asked, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64]models.Price)
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func i64(v int64) *int64 { return &v }

func buy(id, v int64) models.Price { return models.Price{ItemID: id, BuyPrice: i64(v)} }

func TestLookup(t *testing.T) {
	s, err := Lookup("high level alchemy")
	require.NoError(t, err)
	assert.Equal(t, 55, s.Level)

	_, err = Lookup("Ice Barrage")
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestCosts_OneLookupForAllSpells(t *testing.T) {
	src := &fakePrices{prices: map[int64]models.Price{
		AirRune:  buy(AirRune, 4),
		MindRune: buy(MindRune, 3),
	}}
	calc := NewCalculator(src)

	wind, err := Lookup("Wind Strike")
	require.NoError(t, err)
	costs, err := calc.Costs(context.Background(), []Spell{wind, HighAlchemy})
	require.NoError(t, err)
	require.Len(t, costs, 2)
	require.NotNil(t, costs[0].Cost)
	assert.Equal(t, int64(7), *costs[0].Cost)
	assert.Nil(t, costs[1].Cost, "no fire or nature rune price")

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []int64{FireRune, AirRune, MindRune, NatureRune}, src.asked[0])
}

func TestAlchemize(t *testing.T) {
	src := &fakePrices{prices: map[int64]models.Price{
		FireRune:   buy(FireRune, 5),
		NatureRune: buy(NatureRune, 180),
		1333:       buy(1333, 15000),
	}}
	calc := NewCalculator(src)
	item := models.Item{ID: 1333, Name: "Rune scimitar", HighAlch: i64(15360), LowAlch: i64(10240)}

	got, err := calc.Alchemize(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, src.calls)

	high := got[0]
	assert.Equal(t, HighAlchemy.Name, high.Spell)
	assert.Equal(t, int64(205), *high.CastCost)
	assert.Equal(t, int64(15360-15000-205), *high.Profit)
	assert.Equal(t, int64(155*AlchsPerHour), *high.ProfitPerHour)

	low := got[1]
	assert.Equal(t, int64(195), *low.CastCost)
	assert.Equal(t, int64(10240-15000-195), *low.Profit)
}

func TestAlchemize_Undefined(t *testing.T) {
	src := &fakePrices{prices: map[int64]models.Price{
		FireRune:   buy(FireRune, 5),
		NatureRune: buy(NatureRune, 180),
	}}
	got, err := NewCalculator(src).Alchemize(context.Background(), models.Item{ID: 2, HighAlch: i64(3)})
	require.NoError(t, err)
	assert.Nil(t, got[0].ItemPrice)
	assert.Nil(t, got[0].Profit)
	assert.Nil(t, got[0].ProfitPerHour)
	assert.NotNil(t, got[0].CastCost)

	src.err = errors.New("db down")
	_, err = NewCalculator(src).Alchemize(context.Background(), models.Item{ID: 2})
	assert.Error(t, err)
}
