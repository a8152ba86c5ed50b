package market

import (
	"context"
	"encoding/json"
	"fmt"

	"ge-tracker/internal/models"
	"ge-tracker/internal/profit"
)

// Extra selects which optional fields an ItemView carries on top of the
// base item.
type Extra uint8

const (
	WithFavorited Extra = 1 << iota
	WithPrice
	WithTags

	Base Extra = 0
)

func (e Extra) Has(f Extra) bool { return e&f == f }

// Valid reports whether e is one of the served view shapes.
func (e Extra) Valid() bool {
	switch e {
	case Base, WithFavorited, WithPrice, WithFavorited | WithPrice, WithTags:
		return true
	}
	return false
}

// Sources is the data gathered for one item. Only the parts selected by
// Extra are read.
type Sources struct {
	Extra     Extra
	Favorited bool
	Price     *models.Price
	Tags      []string
}

// extraFields maps each Extra bit to its JSON key and value. A new
// optional field is one more row here.
var extraFields = []struct {
	bit   Extra
	key   string
	value func(Sources) any
}{
	{WithFavorited, "favorited", func(s Sources) any { return s.Favorited }},
	{WithPrice, "price", func(s Sources) any {
		if s.Price == nil {
			return nil
		}
		return profit.SummarizePrice(*s.Price)
	}},
	{WithTags, "tags", func(s Sources) any {
		if s.Tags == nil {
			return []string{}
		}
		return s.Tags
	}},
}

// ItemView is an item plus the extras it was composed with.
type ItemView struct {
	Item    models.Item
	Sources Sources
}

func Compose(item models.Item, src Sources) ItemView {
	return ItemView{Item: item, Sources: src}
}

func (v ItemView) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(v.Item)
	if err != nil {
		return nil, err
	}
	if v.Sources.Extra == Base {
		return base, nil
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for _, f := range extraFields {
		if !v.Sources.Extra.Has(f.bit) {
			continue
		}
		raw, err := json.Marshal(f.value(v.Sources))
		if err != nil {
			return nil, err
		}
		fields[f.key] = raw
	}
	return json.Marshal(fields)
}

// ComposeItems gathers the sources selected by extra for a page of items
// and composes their views. Each extra costs one query regardless of the
// page size.
func (s *Store) ComposeItems(ctx context.Context, items []models.Item, merchant *models.Merchant, extra Extra) ([]ItemView, error) {
	if !extra.Valid() {
		return nil, fmt.Errorf("%w: unsupported item view %03b", ErrInvalid, extra)
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	var (
		favs   []Favorited
		prices map[int64]models.Price
		tags   map[int64][]string
		err    error
	)
	if extra.Has(WithFavorited) {
		if favs, err = s.AnnotateFavorited(ctx, items, merchant); err != nil {
			return nil, err
		}
	}
	if extra.Has(WithPrice) {
		if prices, err = s.LatestPrices(ctx, ids); err != nil {
			return nil, err
		}
	}
	if extra.Has(WithTags) {
		if tags, err = s.VisibleTagsByItem(ctx, ids, merchant); err != nil {
			return nil, err
		}
	}

	views := make([]ItemView, len(items))
	for i, it := range items {
		src := Sources{Extra: extra}
		if favs != nil {
			src.Favorited = favs[i].Favorited
		}
		if p, ok := prices[it.ID]; ok {
			src.Price = &p
		}
		src.Tags = tags[it.ID]
		views[i] = Compose(it, src)
	}
	return views, nil
}
