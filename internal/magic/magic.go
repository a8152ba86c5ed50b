// Package magic prices spells by their runes and works out what alchemy
// earns on an item at the latest exchange prices.
package magic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ge-tracker/internal/market"
	"ge-tracker/internal/models"
	"ge-tracker/internal/profit"
)

// Rune item ids.
const (
	FireRune   int64 = 554
	WaterRune  int64 = 555
	AirRune    int64 = 556
	EarthRune  int64 = 557
	MindRune   int64 = 558
	NatureRune int64 = 561
	LawRune    int64 = 563
)

// AlchsPerHour is the cast rate of either alchemy spell.
const AlchsPerHour = 1200

type Spell struct {
	Name  string            `json:"name"`
	Level int               `json:"level"`
	XP    float64           `json:"xp"`
	Runes []profit.RuneCost `json:"runes"`
}

var (
	LowAlchemy = Spell{Name: "Low Level Alchemy", Level: 21, XP: 31, Runes: []profit.RuneCost{
		{ItemID: FireRune, Quantity: 3}, {ItemID: NatureRune, Quantity: 1},
	}}
	HighAlchemy = Spell{Name: "High Level Alchemy", Level: 55, XP: 65, Runes: []profit.RuneCost{
		{ItemID: FireRune, Quantity: 5}, {ItemID: NatureRune, Quantity: 1},
	}}
)

// Spells is the standard spellbook subset, ordered by level.
var Spells = []Spell{
	{Name: "Wind Strike", Level: 1, XP: 5.5, Runes: []profit.RuneCost{
		{ItemID: AirRune, Quantity: 1}, {ItemID: MindRune, Quantity: 1},
	}},
	{Name: "Water Strike", Level: 5, XP: 7.5, Runes: []profit.RuneCost{
		{ItemID: WaterRune, Quantity: 1}, {ItemID: AirRune, Quantity: 1}, {ItemID: MindRune, Quantity: 1},
	}},
	{Name: "Earth Strike", Level: 9, XP: 9.5, Runes: []profit.RuneCost{
		{ItemID: EarthRune, Quantity: 2}, {ItemID: AirRune, Quantity: 1}, {ItemID: MindRune, Quantity: 1},
	}},
	{Name: "Fire Strike", Level: 13, XP: 11.5, Runes: []profit.RuneCost{
		{ItemID: FireRune, Quantity: 3}, {ItemID: AirRune, Quantity: 2}, {ItemID: MindRune, Quantity: 1},
	}},
	LowAlchemy,
	{Name: "Varrock Teleport", Level: 25, XP: 35, Runes: []profit.RuneCost{
		{ItemID: FireRune, Quantity: 1}, {ItemID: AirRune, Quantity: 3}, {ItemID: LawRune, Quantity: 1},
	}},
	{Name: "Superheat Item", Level: 43, XP: 53, Runes: []profit.RuneCost{
		{ItemID: FireRune, Quantity: 4}, {ItemID: NatureRune, Quantity: 1},
	}},
	HighAlchemy,
}

// Lookup finds a spell by name, ignoring case.
func Lookup(name string) (Spell, error) {
	for _, s := range Spells {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return Spell{}, fmt.Errorf("%w: spell %q", market.ErrNotFound, name)
}

// PriceSource resolves the latest price per item in one round trip.
type PriceSource interface {
	LatestPrices(ctx context.Context, itemIDs []int64) (map[int64]models.Price, error)
}

type Calculator struct {
	prices PriceSource
}

func NewCalculator(prices PriceSource) *Calculator {
	return &Calculator{prices: prices}
}

// SpellCost is a spell with the price of one cast, nil when a rune has
// no buy price.
type SpellCost struct {
	Spell
	Cost *int64 `json:"cost"`
}

func runeIDs(spells ...Spell) []int64 {
	seen := make(map[int64]bool)
	ids := []int64{}
	for _, s := range spells {
		for _, r := range s.Runes {
			if !seen[r.ItemID] {
				seen[r.ItemID] = true
				ids = append(ids, r.ItemID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func defined(v int64, err error) (*int64, error) {
	if errors.Is(err, profit.ErrUndefined) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Costs prices every spell from one price lookup.
func (c *Calculator) Costs(ctx context.Context, spells []Spell) ([]SpellCost, error) {
	prices, err := c.prices.LatestPrices(ctx, runeIDs(spells...))
	if err != nil {
		return nil, err
	}
	out := make([]SpellCost, len(spells))
	for i, s := range spells {
		cost, err := defined(profit.CastCost(s.Runes, prices))
		if err != nil {
			return nil, err
		}
		out[i] = SpellCost{Spell: s, Cost: cost}
	}
	return out, nil
}

// Alchemy is the outcome of casting one alchemy spell on an item. Figures
// are nil when a price or the item's alchemy value is missing.
type Alchemy struct {
	Spell         string `json:"spell"`
	Value         *int64 `json:"value"`
	ItemPrice     *int64 `json:"item_price"`
	CastCost      *int64 `json:"cast_cost"`
	Profit        *int64 `json:"profit"`
	ProfitPerHour *int64 `json:"profit_per_hour"`
}

// Alchemize works out high and low alchemy on item from one price lookup
// covering the item and the runes.
func (c *Calculator) Alchemize(ctx context.Context, item models.Item) ([]Alchemy, error) {
	ids := append(runeIDs(HighAlchemy, LowAlchemy), item.ID)
	prices, err := c.prices.LatestPrices(ctx, ids)
	if err != nil {
		return nil, err
	}
	latest := prices[item.ID]

	spells := []struct {
		spell Spell
		value *int64
	}{
		{HighAlchemy, item.HighAlch},
		{LowAlchemy, item.LowAlch},
	}
	out := make([]Alchemy, len(spells))
	for i, s := range spells {
		a := Alchemy{Spell: s.spell.Name, Value: s.value, ItemPrice: latest.BuyPrice}
		cost, err := defined(profit.CastCost(s.spell.Runes, prices))
		if err != nil {
			return nil, err
		}
		a.CastCost = cost
		if cost != nil {
			if a.Profit, err = defined(profit.AlchProfit(s.value, latest, *cost)); err != nil {
				return nil, err
			}
		}
		if a.Profit != nil {
			perHour := *a.Profit * AlchsPerHour
			a.ProfitPerHour = &perHour
		}
		out[i] = a
	}
	return out, nil
}
