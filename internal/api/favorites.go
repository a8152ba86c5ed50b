package api

import (
	"net/http"

	"ge-tracker/internal/auth"
	"ge-tracker/internal/market"

	"github.com/gin-gonic/gin"
)

// FavoriteStatus: GET /api/v1/items/:id/favorite. Anonymous callers get
// false.
func (h *APIHandler) FavoriteStatus(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	merchant := auth.CurrentMerchant(c)
	if merchant == nil {
		if _, err := h.store.GetItem(c.Request.Context(), id); err != nil {
			h.respondError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"item_id": id, "favorited": false})
		return
	}

	fav, err := h.store.IsFavorited(c.Request.Context(), merchant.ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"item_id": id, "favorited": fav})
}

func (h *APIHandler) AddFavorite(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	fav, err := h.store.AddFavorite(c.Request.Context(), auth.CurrentMerchant(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, fav)
}

func (h *APIHandler) RemoveFavorite(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	if err := h.store.RemoveFavorite(c.Request.Context(), auth.CurrentMerchant(c).ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFavorites: GET /api/v1/favorites, each with its latest price.
func (h *APIHandler) ListFavorites(c *gin.Context) {
	merchant := auth.CurrentMerchant(c)
	items, err := h.store.ListFavorites(c.Request.Context(), merchant.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	views, err := h.store.ComposeItems(c.Request.Context(), items, merchant, market.WithFavorited|market.WithPrice)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, views)
}
