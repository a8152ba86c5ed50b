package api

import (
	"net/http"

	"ge-tracker/internal/auth"
	"ge-tracker/internal/magic"

	"github.com/gin-gonic/gin"
)

// ListSpells: GET /api/v1/spells, each with the price of one cast.
func (h *APIHandler) ListSpells(c *gin.Context) {
	costs, err := h.magic.Costs(c.Request.Context(), magic.Spells)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, costs)
}

// GetSpell: GET /api/v1/spells/:name
func (h *APIHandler) GetSpell(c *gin.Context) {
	spell, err := magic.Lookup(c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	costs, err := h.magic.Costs(c.Request.Context(), []magic.Spell{spell})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, costs[0])
}

// ItemAlchemy: GET /api/v1/items/:id/alchemy
func (h *APIHandler) ItemAlchemy(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	item, err := h.store.GetItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	out, err := h.magic.Alchemize(c.Request.Context(), *item)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// ItemProfit: GET /api/v1/items/:id/profit, the caller's realized profit
// on the item.
func (h *APIHandler) ItemProfit(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	out, err := h.store.ItemProfit(c.Request.Context(), auth.CurrentMerchant(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}
