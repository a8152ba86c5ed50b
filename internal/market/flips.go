package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ge-tracker/internal/models"
	"ge-tracker/internal/profit"

	"go.uber.org/zap"
)

// Nullable is an optional field that can be cleared. An absent key leaves
// Set false; an explicit null sets it with a nil Value.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Value returns a Nullable holding v.
func Value[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) applyTo(dst **T, norm func(T) T) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		*dst = nil
		return
	}
	v := *n.Value
	if norm != nil {
		v = norm(v)
	}
	*dst = &v
}

// FlipInput carries the writable flip fields. Absent fields are left
// unchanged on update. The optional prices and dates accept null, which
// clears them and can move a flip back to an earlier state.
type FlipInput struct {
	ItemID     *int64              `json:"item_id"`
	Quantity   *int64              `json:"quantity"`
	OrderDate  *time.Time          `json:"order_date"`
	BuyPrice   Nullable[int64]     `json:"buy_price"`
	SellPrice  Nullable[int64]     `json:"sell_price"`
	BuyDate    Nullable[time.Time] `json:"buy_date"`
	ListedDate Nullable[time.Time] `json:"listed_date"`
	SellDate   Nullable[time.Time] `json:"sell_date"`
}

func utc(t time.Time) time.Time { return t.UTC() }

func (in FlipInput) apply(f *models.Flip) {
	if in.ItemID != nil {
		f.ItemID = *in.ItemID
	}
	if in.Quantity != nil {
		f.Quantity = *in.Quantity
	}
	if in.OrderDate != nil {
		f.OrderDate = in.OrderDate.UTC()
	}
	in.BuyPrice.applyTo(&f.BuyPrice, nil)
	in.SellPrice.applyTo(&f.SellPrice, nil)
	in.BuyDate.applyTo(&f.BuyDate, utc)
	in.ListedDate.applyTo(&f.ListedDate, utc)
	in.SellDate.applyTo(&f.SellDate, utc)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// ValidateFlip checks that a flip's dates fill in order and never run
// backwards.
func ValidateFlip(f models.Flip) error {
	if f.Quantity <= 0 {
		return invalid("quantity must be positive")
	}
	if f.OrderDate.IsZero() {
		return invalid("order_date is required")
	}
	for _, p := range []*int64{f.BuyPrice, f.SellPrice} {
		if p != nil && *p < 0 {
			return invalid("prices must not be negative")
		}
	}

	steps := []struct {
		name string
		at   *time.Time
	}{
		{"buy_date", f.BuyDate},
		{"listed_date", f.ListedDate},
		{"sell_date", f.SellDate},
	}
	prevName, prev := "order_date", f.OrderDate
	for _, s := range steps {
		if s.at == nil {
			prevName = ""
			continue
		}
		if prevName == "" {
			return invalid("%s requires the earlier dates", s.name)
		}
		if s.at.Before(prev) {
			return invalid("%s is before %s", s.name, prevName)
		}
		prevName, prev = s.name, *s.at
	}
	return nil
}

func (s *Store) CreateFlip(ctx context.Context, merchantID uint, in FlipInput) (*models.Flip, error) {
	if in.ItemID == nil {
		return nil, invalid("item_id is required")
	}
	ok, err := s.itemExists(ctx, *in.ItemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("unknown item %d", *in.ItemID)
	}

	f := models.Flip{MerchantID: merchantID}
	in.apply(&f)
	if err := ValidateFlip(f); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return nil, err
	}
	s.log.Debug("flip created", zap.Uint("flip_id", f.ID), zap.Uint("merchant_id", merchantID))
	return &f, nil
}

// GetFlip returns ErrNotFound for flips owned by another merchant.
func (s *Store) GetFlip(ctx context.Context, merchantID, id uint) (*models.Flip, error) {
	var f models.Flip
	err := s.db.WithContext(ctx).Where("id = ? AND merchant_id = ?", id, merchantID).First(&f).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &f, nil
}

// ListFlips returns the merchant's flips, most recent order first.
func (s *Store) ListFlips(ctx context.Context, merchantID uint) ([]models.Flip, error) {
	flips := []models.Flip{}
	err := s.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("order_date DESC, id DESC").
		Find(&flips).Error
	return flips, err
}

func (s *Store) UpdateFlip(ctx context.Context, merchantID, id uint, in FlipInput) (*models.Flip, error) {
	f, err := s.GetFlip(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if in.ItemID != nil && *in.ItemID != f.ItemID {
		ok, err := s.itemExists(ctx, *in.ItemID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid("unknown item %d", *in.ItemID)
		}
	}

	in.apply(f)
	if err := ValidateFlip(*f); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(f).Error; err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) DeleteFlip(ctx context.Context, merchantID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND merchant_id = ?", id, merchantID).Delete(&models.Flip{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemProfit is a merchant's realized profit on one item.
type ItemProfit struct {
	ItemID  int64 `json:"item_id"`
	Profit  int64 `json:"profit"`
	Flips   int   `json:"flips"`
	Counted int   `json:"counted"`
}

// ItemProfit totals the profit of the merchant's flips on an item. Flips
// without a sell price yet have no profit and are not counted.
func (s *Store) ItemProfit(ctx context.Context, merchantID uint, itemID int64) (ItemProfit, error) {
	out := ItemProfit{ItemID: itemID}
	ok, err := s.itemExists(ctx, itemID)
	if err != nil {
		return out, err
	}
	if !ok {
		return out, ErrNotFound
	}

	var flips []models.Flip
	err = s.db.WithContext(ctx).
		Where("merchant_id = ? AND item_id = ?", merchantID, itemID).
		Find(&flips).Error
	if err != nil {
		return out, err
	}
	out.Flips = len(flips)
	for _, f := range flips {
		total, err := profit.ProfitTotal(f)
		if err != nil {
			continue
		}
		out.Profit += total
		out.Counted++
	}
	return out, nil
}
