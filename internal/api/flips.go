package api

import (
	"fmt"
	"net/http"

	"ge-tracker/internal/auth"
	"ge-tracker/internal/market"
	"ge-tracker/internal/models"
	"ge-tracker/internal/profit"
	"ge-tracker/internal/report"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// flipView is a flip with its derived state and metrics inlined.
type flipView struct {
	models.Flip
	profit.FlipSummary
}

func viewFlip(f models.Flip) flipView {
	return flipView{Flip: f, FlipSummary: profit.Summarize(f)}
}

func (h *APIHandler) ListFlips(c *gin.Context) {
	flips, err := h.store.ListFlips(c.Request.Context(), auth.CurrentMerchant(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]flipView, len(flips))
	for i, f := range flips {
		out[i] = viewFlip(f)
	}
	respond(c, http.StatusOK, out)
}

func (h *APIHandler) CreateFlip(c *gin.Context) {
	var in market.FlipInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	f, err := h.store.CreateFlip(c.Request.Context(), auth.CurrentMerchant(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, viewFlip(*f))
}

func (h *APIHandler) GetFlip(c *gin.Context) {
	id, ok := flipIDParam(c)
	if !ok {
		return
	}
	f, err := h.store.GetFlip(c.Request.Context(), auth.CurrentMerchant(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, viewFlip(*f))
}

// FlipProfit: GET /api/v1/flips/:id/profit. Unlike the flip view, a flip
// that has not sold yet is an error here.
func (h *APIHandler) FlipProfit(c *gin.Context) {
	id, ok := flipIDParam(c)
	if !ok {
		return
	}
	f, err := h.store.GetFlip(c.Request.Context(), auth.CurrentMerchant(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	total, err := profit.ProfitTotal(*f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	perHour, err := profit.ProfitPerHour(*f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"flip_id":         f.ID,
		"profit_total":    total,
		"profit_per_hour": perHour,
	})
}

func (h *APIHandler) UpdateFlip(c *gin.Context) {
	id, ok := flipIDParam(c)
	if !ok {
		return
	}
	var in market.FlipInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	f, err := h.store.UpdateFlip(c.Request.Context(), auth.CurrentMerchant(c).ID, id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, viewFlip(*f))
}

func (h *APIHandler) DeleteFlip(c *gin.Context) {
	id, ok := flipIDParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteFlip(c.Request.Context(), auth.CurrentMerchant(c).ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FlipReport: GET /api/v1/flips/report.xlsx
func (h *APIHandler) FlipReport(c *gin.Context) {
	ctx := c.Request.Context()
	merchant := auth.CurrentMerchant(c)
	flips, err := h.store.ListFlips(ctx, merchant.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ids := make([]int64, 0, len(flips))
	for _, f := range flips {
		ids = append(ids, f.ItemID)
	}
	names, err := h.store.ItemNames(ctx, ids)
	if err != nil {
		h.respondError(c, err)
		return
	}

	wb, err := report.FlipWorkbook(flips, names)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer wb.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="flips-%d.xlsx"`, merchant.ID))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if _, err := wb.WriteTo(c.Writer); err != nil {
		h.log.Warn("write flip report", zap.Error(err))
	}
}
