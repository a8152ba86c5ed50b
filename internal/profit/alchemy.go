package profit

import "ge-tracker/internal/models"

// RuneCost is the number of one rune a spell consumes per cast.
type RuneCost struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

// CastCost is the buy price of the runes one cast consumes. It is undefined
// when any rune has no buy price.
func CastCost(runes []RuneCost, prices map[int64]models.Price) (int64, error) {
	var total int64
	for _, r := range runes {
		p, ok := prices[r.ItemID]
		if !ok || p.BuyPrice == nil {
			return 0, ErrUndefined
		}
		total += r.Quantity * *p.BuyPrice
	}
	return total, nil
}

// AlchProfit is what one cast earns: the alchemy value minus the item's
// buy price and the cast cost.
func AlchProfit(value *int64, item models.Price, castCost int64) (int64, error) {
	if value == nil || item.BuyPrice == nil {
		return 0, ErrUndefined
	}
	return *value - *item.BuyPrice - castCost, nil
}
