// Package ingest pulls the catalog, prices and icons from the exchange
// data source into the store.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"ge-tracker/internal/config"
	"ge-tracker/internal/market"
	"ge-tracker/internal/models"
	"ge-tracker/internal/services/osrs"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source is the part of the exchange client ingestion needs.
type Source interface {
	Summaries(ctx context.Context) (map[int64]osrs.Summary, error)
	Detail(ctx context.Context, id int64) (*osrs.Detail, error)
	QuoteBatch(ctx context.Context, ids []int64) (map[int64]osrs.Quote, error)
}

type IconSource interface {
	Fetch(ctx context.Context, ids []int64) (int, error)
}

// Result counts the work a sync finished before it returned.
type Result struct {
	Chunks int64
	Rows   int64
}

type Service struct {
	store  *market.Store
	source Source
	icons  IconSource
	cfg    config.ScraperConfig
	log    *zap.Logger
	now    func() time.Time
}

func New(store *market.Store, source Source, icons IconSource, cfg config.ScraperConfig, log *zap.Logger) *Service {
	if cfg.BatchSize <= 0 || cfg.BatchSize > osrs.MaxBatchSize {
		cfg.BatchSize = osrs.MaxBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{
		store:  store,
		source: source,
		icons:  icons,
		cfg:    cfg,
		log:    log.Named("ingest"),
		now:    time.Now,
	}
}

// SyncCatalog upserts every summarized item with its metadata, one chunk
// at a time. A failing chunk stops the run; earlier chunks stay committed.
func (s *Service) SyncCatalog(ctx context.Context) (Result, error) {
	var res Result
	summaries, err := s.source.Summaries(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch summaries: %w", err)
	}

	ids := make([]int64, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, chunk := range osrs.Chunk(ids, s.cfg.BatchSize) {
		items, err := s.catalogChunk(ctx, chunk, summaries)
		if err != nil {
			return res, err
		}
		if err := s.store.UpsertItems(ctx, items); err != nil {
			return res, fmt.Errorf("upsert items: %w", err)
		}
		res.Chunks++
		res.Rows += int64(len(items))
	}

	s.log.Info("catalog synced", zap.Int64("chunks", res.Chunks), zap.Int64("items", res.Rows))
	return res, nil
}

func (s *Service) catalogChunk(ctx context.Context, ids []int64, summaries map[int64]osrs.Summary) ([]models.Item, error) {
	items := make([]models.Item, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			detail, err := s.source.Detail(gctx, id)
			if err != nil {
				return fmt.Errorf("fetch detail %d: %w", id, err)
			}
			items[i] = itemFrom(summaries[id], detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func itemFrom(sum osrs.Summary, d *osrs.Detail) models.Item {
	item := models.Item{
		ID:         sum.ID,
		Name:       sum.Name,
		Members:    sum.Members,
		StorePrice: sum.StorePrice,
	}
	if d != nil {
		item.Description = d.Examine
		if d.Members != nil {
			item.Members = *d.Members
		}
		item.HighAlch = d.HighAlch
		item.LowAlch = d.LowAlch
		item.BuyLimit = d.BuyLimit
	}
	return item
}

// SyncPrices records one price observation per quoted item. A nil ids
// covers the whole catalog. Chunks run concurrently; the first failure
// cancels the rest and is returned with the counts of committed chunks.
func (s *Service) SyncPrices(ctx context.Context, ids []int64) (Result, error) {
	if ids == nil {
		all, err := s.store.ItemIDs(ctx)
		if err != nil {
			return Result{}, err
		}
		ids = all
	}

	var chunks, rows atomic.Int64
	ts := s.now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, chunk := range osrs.Chunk(ids, s.cfg.BatchSize) {
		g.Go(func() error {
			quotes, err := s.source.QuoteBatch(gctx, chunk)
			if err != nil {
				return fmt.Errorf("fetch quotes: %w", err)
			}
			prices := make([]models.Price, 0, len(quotes))
			for _, id := range chunk {
				if q, ok := quotes[id]; ok {
					prices = append(prices, q.Price(id, ts))
				}
			}
			if err := s.store.RecordPrices(gctx, prices); err != nil {
				return fmt.Errorf("record prices: %w", err)
			}
			chunks.Add(1)
			rows.Add(int64(len(prices)))
			return nil
		})
	}
	err := g.Wait()

	res := Result{Chunks: chunks.Load(), Rows: rows.Load()}
	if err != nil {
		s.log.Error("price sync failed", zap.Int64("chunks", res.Chunks), zap.Error(err))
		return res, err
	}
	s.log.Info("prices synced", zap.Int64("chunks", res.Chunks), zap.Int64("rows", res.Rows))
	return res, nil
}

// SyncIcons downloads missing icons for the whole catalog.
func (s *Service) SyncIcons(ctx context.Context) (int, error) {
	ids, err := s.store.ItemIDs(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.icons.Fetch(ctx, ids)
	if err != nil {
		return n, fmt.Errorf("fetch icons: %w", err)
	}
	s.log.Info("icons synced", zap.Int("downloaded", n))
	return n, nil
}
