package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"ge-tracker/internal/auth"
	"ge-tracker/internal/market"
	"ge-tracker/internal/models"
	"ge-tracker/internal/profit"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	defaultSearchLimit  = 20
)

// ListItems: GET /api/v1/items?name=&members=&tag=&price=true&page=&page_size=
// Repeated name and tag params must all match.
func (h *APIHandler) ListItems(c *gin.Context) {
	filter := market.ItemFilter{
		Names: c.QueryArray("name"),
		Tags:  c.QueryArray("tag"),
	}
	if raw := c.Query("members"); raw != "" {
		members, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid members")
			return
		}
		filter.Members = &members
	}
	var ok bool
	if filter.Page, ok = intQuery(c, "page", 1); !ok {
		return
	}
	if filter.PageSize, ok = intQuery(c, "page_size", market.DefaultPageSize); !ok {
		return
	}

	filter.Normalize()

	merchant := auth.CurrentMerchant(c)
	extra := market.Base
	if merchant != nil {
		extra |= market.WithFavorited
	}
	if c.Query("price") == "true" {
		extra |= market.WithPrice
	}

	items, total, err := h.store.ListItems(c.Request.Context(), filter, merchant)
	if err != nil {
		h.respondError(c, err)
		return
	}
	views, err := h.store.ComposeItems(c.Request.Context(), items, merchant, extra)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"items":     views,
		"page":      filter.Page,
		"page_size": filter.PageSize,
		"total":     total,
	})
}

// SearchItems: GET /api/v1/items/search?q=whip&limit=20
func (h *APIHandler) SearchItems(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "q is required")
		return
	}
	limit, ok := intQuery(c, "limit", defaultSearchLimit)
	if !ok {
		return
	}

	items, err := h.store.SearchItems(c.Request.Context(), q, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	merchant := auth.CurrentMerchant(c)
	extra := market.Base
	if merchant != nil {
		extra = market.WithFavorited
	}
	views, err := h.store.ComposeItems(c.Request.Context(), items, merchant, extra)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, views)
}

// GetItem: GET /api/v1/items/:id, the item with its latest price and, for
// a merchant, the favorite flag. With tags=true it carries the visible tags
// instead.
func (h *APIHandler) GetItem(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	item, err := h.store.GetItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	merchant := auth.CurrentMerchant(c)
	extra := market.WithPrice
	if merchant != nil {
		extra |= market.WithFavorited
	}
	if c.Query("tags") == "true" {
		extra = market.WithTags
	}
	views, err := h.store.ComposeItems(c.Request.Context(), []models.Item{*item}, merchant, extra)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, views[0])
}

// PriceHistory: GET /api/v1/items/:id/prices?limit=100, newest first.
func (h *APIHandler) PriceHistory(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultHistoryLimit)
	if !ok {
		return
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	prices, err := h.store.PriceHistory(c.Request.Context(), id, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]profit.PriceSummary, len(prices))
	for i, p := range prices {
		out[i] = profit.SummarizePrice(p)
	}
	respond(c, http.StatusOK, out)
}

// LatestPrices: GET /api/v1/prices/latest?ids=2,4151. Without ids every
// item with history is returned.
func (h *APIHandler) LatestPrices(c *gin.Context) {
	var ids []int64
	if raw := strings.TrimSpace(c.Query("ids")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				badRequest(c, "invalid ids")
				return
			}
			ids = append(ids, id)
		}
	}

	latest, err := h.store.LatestPrices(c.Request.Context(), ids)
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]profit.PriceSummary, 0, len(latest))
	for _, p := range latest {
		out = append(out, profit.SummarizePrice(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	respond(c, http.StatusOK, out)
}
