package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ge-tracker/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NormalizeTag trims and lower-cases a tag name; tags match case-insensitively.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// visibleTo limits item_tags rows to global ones plus, for a merchant,
// that merchant's own.
func visibleTo(db *gorm.DB, merchant *models.Merchant) *gorm.DB {
	if merchant == nil {
		return db.Where("item_tags.owner_id = ?", models.NoOwner)
	}
	return db.Where("item_tags.owner_id IN ?", []uint{models.NoOwner, merchant.ID})
}

// VisibleTags returns the sorted, de-duplicated tag names of an item that
// the merchant (or an anonymous caller, when nil) may see.
func (s *Store) VisibleTags(ctx context.Context, itemID int64, merchant *models.Merchant) ([]string, error) {
	ok, err := s.itemExists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	byItem, err := s.VisibleTagsByItem(ctx, []int64{itemID}, merchant)
	if err != nil {
		return nil, err
	}
	if tags := byItem[itemID]; tags != nil {
		return tags, nil
	}
	return []string{}, nil
}

// VisibleTagsByItem resolves visible tags for many items in one query.
// Items without visible tags are absent from the map.
func (s *Store) VisibleTagsByItem(ctx context.Context, itemIDs []int64, merchant *models.Merchant) (map[int64][]string, error) {
	out := make(map[int64][]string)
	if len(itemIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ItemID int64
		Name   string
	}
	q := s.db.WithContext(ctx).Model(&models.ItemTag{}).
		Distinct("item_tags.item_id", "tags.name").
		Joins("JOIN tags ON tags.id = item_tags.tag_id").
		Where("item_tags.item_id IN ?", itemIDs)
	if err := visibleTo(q, merchant).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("visible tags: %w", err)
	}

	for _, r := range rows {
		out[r.ItemID] = append(out[r.ItemID], r.Name)
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out, nil
}

// getOrCreateTag inserts the tag if missing and reads it back, so two
// callers racing on the same name end up with the same row.
func getOrCreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	tag := models.Tag{Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// AddTag attaches the named tag to an item. ownerID models.NoOwner makes the
// association global. A repeated (tag, item, owner) is ErrConflict.
func (s *Store) AddTag(ctx context.Context, itemID int64, name string, ownerID uint) (*models.ItemTag, error) {
	name = NormalizeTag(name)
	if name == "" || len(name) > 100 {
		return nil, fmt.Errorf("%w: tag name must be 1-100 characters", ErrInvalid)
	}
	ok, err := s.itemExists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	var assoc *models.ItemTag
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tag, err := getOrCreateTag(tx, name)
		if err != nil {
			return err
		}
		assoc = &models.ItemTag{TagID: tag.ID, Tag: *tag, ItemID: itemID, OwnerID: ownerID}
		return tx.Omit("Tag").Create(assoc).Error
	})
	if err != nil {
		return nil, conflictOr(err)
	}

	s.log.Debug("tag added", zap.Int64("item_id", itemID), zap.String("tag", name), zap.Uint("owner_id", ownerID))
	return assoc, nil
}

// RemoveTags deletes the owner's associations of the named tags on an
// item. Other owners' associations are never touched.
func (s *Store) RemoveTags(ctx context.Context, itemID int64, names []string, ownerID uint) (int64, error) {
	normalized := make([]string, 0, len(names))
	for _, n := range names {
		if n = NormalizeTag(n); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return 0, nil
	}

	db := s.db.WithContext(ctx)
	tagIDs := db.Model(&models.Tag{}).Select("id").Where("name IN ?", normalized)
	res := db.Where("item_id = ? AND owner_id = ? AND tag_id IN (?)", itemID, ownerID, tagIDs).
		Delete(&models.ItemTag{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
