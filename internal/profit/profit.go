// Package profit derives profit, ROI and demand figures from price
// observations and flips. Every function is pure.
package profit

import (
	"errors"
	"time"

	"ge-tracker/internal/models"
)

var (
	// ErrUndefined means an operand is missing or a divisor is zero.
	ErrUndefined = errors.New("value undefined")
	// ErrIncompleteFlip means the flip has not reached the lifecycle state
	// the figure needs.
	ErrIncompleteFlip = errors.New("flip incomplete")
	// ErrZeroDuration means a sold flip took no time, so a per-hour rate
	// does not exist.
	ErrZeroDuration = errors.New("flip duration is zero")
)

// PriceProfit is sell - buy.
func PriceProfit(p models.Price) (int64, error) {
	if p.BuyPrice == nil || p.SellPrice == nil {
		return 0, ErrUndefined
	}
	return *p.SellPrice - *p.BuyPrice, nil
}

// PriceROI is sell / buy.
func PriceROI(p models.Price) (float64, error) {
	return ratio(p.SellPrice, p.BuyPrice)
}

// PriceDemand is buy volume / sell volume.
func PriceDemand(p models.Price) (float64, error) {
	return ratio(p.BuyVolume, p.SellVolume)
}

func ratio(num, den *int64) (float64, error) {
	if num == nil || den == nil || *den == 0 {
		return 0, ErrUndefined
	}
	return float64(*num) / float64(*den), nil
}

// PriceSummary is a price row with its derived figures. Undefined figures
// are nil and serialize as null.
type PriceSummary struct {
	models.Price
	Profit *int64   `json:"profit"`
	ROI    *float64 `json:"roi"`
	Demand *float64 `json:"demand"`
}

func SummarizePrice(p models.Price) PriceSummary {
	s := PriceSummary{Price: p}
	if v, err := PriceProfit(p); err == nil {
		s.Profit = &v
	}
	if v, err := PriceROI(p); err == nil {
		s.ROI = &v
	}
	if v, err := PriceDemand(p); err == nil {
		s.Demand = &v
	}
	return s
}

// FlipState is the derived lifecycle position of a flip. States are
// ordered, so later states compare greater.
type FlipState int

const (
	StateInvalid FlipState = iota
	StateBuying
	StateBank
	StateSelling
	StateSold
)

func (s FlipState) String() string {
	switch s {
	case StateBuying:
		return "BUYING"
	case StateBank:
		return "BANK"
	case StateSelling:
		return "SELLING"
	case StateSold:
		return "SOLD"
	default:
		return "INVALID"
	}
}

func (s FlipState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State evaluates the lifecycle table top-down; the first match wins.
func State(f models.Flip) FlipState {
	switch {
	case f.SellDate != nil:
		return StateSold
	case f.ListedDate != nil && f.SellPrice != nil:
		return StateSelling
	case f.BuyDate != nil:
		return StateBank
	case !f.OrderDate.IsZero() && f.BuyPrice != nil:
		return StateBuying
	default:
		return StateInvalid
	}
}

// Duration is sell_date - order_date and needs a SOLD flip.
func Duration(f models.Flip) (time.Duration, error) {
	if State(f) != StateSold || f.OrderDate.IsZero() {
		return 0, ErrIncompleteFlip
	}
	return f.SellDate.Sub(f.OrderDate), nil
}

// ProfitEach is sell_price - buy_price and needs SELLING or later.
func ProfitEach(f models.Flip) (int64, error) {
	if State(f) < StateSelling || f.BuyPrice == nil || f.SellPrice == nil {
		return 0, ErrIncompleteFlip
	}
	return *f.SellPrice - *f.BuyPrice, nil
}

func ProfitTotal(f models.Flip) (int64, error) {
	each, err := ProfitEach(f)
	if err != nil {
		return 0, err
	}
	return f.Quantity * each, nil
}

// ProfitPerHour divides the total profit by the duration in hours.
func ProfitPerHour(f models.Flip) (float64, error) {
	d, err := Duration(f)
	if err != nil {
		return 0, err
	}
	total, err := ProfitTotal(f)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, ErrZeroDuration
	}
	return float64(total) / d.Hours(), nil
}

// FlipROI is sell_price / buy_price and needs SELLING or later.
func FlipROI(f models.Flip) (float64, error) {
	if State(f) < StateSelling || f.BuyPrice == nil || f.SellPrice == nil {
		return 0, ErrIncompleteFlip
	}
	return ratio(f.SellPrice, f.BuyPrice)
}

// FlipSummary carries the state and whichever metrics the state defines.
type FlipSummary struct {
	State         FlipState `json:"state"`
	ProfitEach    *int64    `json:"profit_each"`
	ProfitTotal   *int64    `json:"profit_total"`
	DurationHours *float64  `json:"duration_hours"`
	ProfitPerHour *float64  `json:"profit_per_hour"`
	ROI           *float64  `json:"roi"`
}

func Summarize(f models.Flip) FlipSummary {
	s := FlipSummary{State: State(f)}
	if v, err := ProfitEach(f); err == nil {
		s.ProfitEach = &v
	}
	if v, err := ProfitTotal(f); err == nil {
		s.ProfitTotal = &v
	}
	if d, err := Duration(f); err == nil {
		h := d.Hours()
		s.DurationHours = &h
	}
	if v, err := ProfitPerHour(f); err == nil {
		s.ProfitPerHour = &v
	}
	if v, err := FlipROI(f); err == nil {
		s.ROI = &v
	}
	return s
}
