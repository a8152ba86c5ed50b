package api

import (
	"net/http"

	"ge-tracker/internal/auth"
	"ge-tracker/internal/market"
	"ge-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

type addTagRequest struct {
	Name   string `json:"name" binding:"required"`
	Global bool   `json:"global"`
}

// ListTags: GET /api/v1/items/:id/tags
func (h *APIHandler) ListTags(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	tags, err := h.store.VisibleTags(c.Request.Context(), id, auth.CurrentMerchant(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, tags)
}

// AddTag: POST /api/v1/items/:id/tags {"name":"melee","global":false}.
// Only staff may add global tags.
func (h *APIHandler) AddTag(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	var req addTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	owner := auth.CurrentMerchant(c).ID
	if req.Global {
		if acct := auth.CurrentAccount(c); acct == nil || !acct.IsStaff {
			h.respondError(c, market.ErrUnauthorized)
			return
		}
		owner = models.NoOwner
	}

	assoc, err := h.store.AddTag(c.Request.Context(), id, req.Name, owner)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"item_id": assoc.ItemID,
		"tag":     assoc.Tag.Name,
		"global":  assoc.OwnerID == models.NoOwner,
	})
}

// RemoveTags: DELETE /api/v1/items/:id/tags?name=a&name=b removes the
// caller's own associations only.
func (h *APIHandler) RemoveTags(c *gin.Context) {
	id, ok := itemIDParam(c)
	if !ok {
		return
	}
	names := c.QueryArray("name")
	if len(names) == 0 {
		badRequest(c, "name is required")
		return
	}
	if _, err := h.store.GetItem(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	removed, err := h.store.RemoveTags(c.Request.Context(), id, names, auth.CurrentMerchant(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"removed": removed})
}
