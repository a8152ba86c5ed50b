package market

import (
	"context"
	"fmt"

	"ge-tracker/internal/models"
)

// LatestPrices returns the newest price row per item in one query. A nil
// itemIDs covers every item with history; items without history are
// absent from the result. When several rows share an item's newest
// timestamp, the one with the highest id wins.
func (s *Store) LatestPrices(ctx context.Context, itemIDs []int64) (map[int64]models.Price, error) {
	out := make(map[int64]models.Price)
	if itemIDs != nil && len(itemIDs) == 0 {
		return out, nil
	}

	db := s.db.WithContext(ctx)
	latest := db.Model(&models.Price{}).
		Select("item_id, MAX(timestamp) AS max_ts").
		Group("item_id")
	if itemIDs != nil {
		latest = latest.Where("item_id IN ?", itemIDs)
	}

	var rows []models.Price
	err := db.Table("prices AS p").
		Select("p.*").
		Joins("JOIN (?) AS latest ON latest.item_id = p.item_id AND latest.max_ts = p.timestamp", latest).
		Order("p.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("latest prices: %w", err)
	}

	for _, r := range rows {
		out[r.ItemID] = r
	}
	return out, nil
}

// PriceHistory lists an item's prices newest first.
func (s *Store) PriceHistory(ctx context.Context, itemID int64, limit int) ([]models.Price, error) {
	ok, err := s.itemExists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	q := s.db.WithContext(ctx).Where("item_id = ?", itemID).Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	prices := []models.Price{}
	if err := q.Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// RecordPrices appends price observations in batches.
func (s *Store) RecordPrices(ctx context.Context, prices []models.Price) error {
	if len(prices) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(prices, 500).Error
}
