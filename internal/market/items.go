package market

import (
	"context"
	"strings"

	"ge-tracker/internal/models"

	"github.com/sahilm/fuzzy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// ItemFilter narrows ListItems. Every name fragment must match and every
// tag must be visible to the caller.
type ItemFilter struct {
	Names    []string
	Members  *bool
	Tags     []string
	Page     int
	PageSize int
}

// Normalize applies the default page and clamps the page size.
func (f *ItemFilter) Normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > MaxPageSize {
		f.PageSize = DefaultPageSize
	}
}

// ListItems returns one page of items ordered by id and the total match
// count.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter, merchant *models.Merchant) ([]models.Item, int64, error) {
	filter.Normalize()
	db := s.db.WithContext(ctx)

	q := db.Model(&models.Item{})
	for _, name := range filter.Names {
		if name = strings.TrimSpace(name); name != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
		}
	}
	if filter.Members != nil {
		q = q.Where("members = ?", *filter.Members)
	}
	if names := uniqueTags(filter.Tags); len(names) > 0 {
		tagged := db.Model(&models.ItemTag{}).
			Select("item_tags.item_id").
			Joins("JOIN tags ON tags.id = item_tags.tag_id").
			Where("tags.name IN ?", names)
		tagged = visibleTo(tagged, merchant).
			Group("item_tags.item_id").
			Having("COUNT(DISTINCT tags.name) = ?", len(names))
		q = q.Where("id IN (?)", tagged)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.Item{}
	err := q.Order("id ASC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&items).Error
	return items, total, err
}

func uniqueTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = NormalizeTag(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func (s *Store) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &item, nil
}

// ItemIDs lists every catalog id in ascending order.
func (s *Store) ItemIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	err := s.db.WithContext(ctx).Model(&models.Item{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

type itemNames []models.Item

func (n itemNames) Len() int            { return len(n) }
func (n itemNames) String(i int) string { return strings.ToLower(n[i].Name) }

// SearchItems ranks items by fuzzy match of their name against query,
// best first.
func (s *Store) SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []models.Item{}, nil
	}

	var rows []models.Item
	if err := s.db.WithContext(ctx).Select("id", "name").Find(&rows).Error; err != nil {
		return nil, err
	}
	all := itemNames(rows)

	matches := fuzzy.FindFrom(query, all)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	if len(matches) == 0 {
		return []models.Item{}, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = all[m.Index].ID
	}
	var found []models.Item
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}

	out := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// UpsertItems inserts new catalog items and refreshes the metadata of
// existing ones.
func (s *Store) UpsertItems(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "members", "store_price",
			"buy_limit", "high_alch", "low_alch", "updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

// ItemNames maps the given ids to item names. Unknown ids are absent.
func (s *Store) ItemNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Item
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}
