package market

import (
	"context"
	"fmt"

	"ge-tracker/internal/models"
)

// Favorited pairs an item with whether the requesting merchant favorited it.
type Favorited struct {
	Item      models.Item
	Favorited bool
}

// AnnotateFavorited flags each item with the merchant's favorite status
// using one grouped count. Order and length follow items. A nil merchant
// flags everything false without querying.
func (s *Store) AnnotateFavorited(ctx context.Context, items []models.Item, merchant *models.Merchant) ([]Favorited, error) {
	out := make([]Favorited, len(items))
	for i, it := range items {
		out[i] = Favorited{Item: it}
	}
	if merchant == nil || len(items) == 0 {
		return out, nil
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	var counts []struct {
		ItemID int64
		Cnt    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Select("item_id, COUNT(*) AS cnt").
		Where("merchant_id = ? AND item_id IN ?", merchant.ID, ids).
		Group("item_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("annotate favorites: %w", err)
	}

	fav := make(map[int64]bool, len(counts))
	for _, c := range counts {
		fav[c.ItemID] = c.Cnt >= 1
	}
	for i := range out {
		out[i].Favorited = fav[out[i].Item.ID]
	}
	return out, nil
}

// AddFavorite relies on the (merchant, item) unique index to reject
// duplicates, so concurrent requests cannot both succeed.
func (s *Store) AddFavorite(ctx context.Context, merchantID uint, itemID int64) (*models.Favorite, error) {
	ok, err := s.itemExists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	fav := &models.Favorite{MerchantID: merchantID, ItemID: itemID}
	if err := s.db.WithContext(ctx).Create(fav).Error; err != nil {
		return nil, conflictOr(err)
	}
	return fav, nil
}

func (s *Store) RemoveFavorite(ctx context.Context, merchantID uint, itemID int64) error {
	res := s.db.WithContext(ctx).
		Where("merchant_id = ? AND item_id = ?", merchantID, itemID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) IsFavorited(ctx context.Context, merchantID uint, itemID int64) (bool, error) {
	ok, err := s.itemExists(ctx, itemID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotFound
	}

	var n int64
	err = s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("merchant_id = ? AND item_id = ?", merchantID, itemID).
		Count(&n).Error
	return n > 0, err
}

// ListFavorites returns the merchant's favorited items, most recently
// favorited first.
func (s *Store) ListFavorites(ctx context.Context, merchantID uint) ([]models.Item, error) {
	items := []models.Item{}
	err := s.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.item_id = items.id").
		Where("favorites.merchant_id = ?", merchantID).
		Order("favorites.created_at DESC, favorites.id DESC").
		Find(&items).Error
	return items, err
}
