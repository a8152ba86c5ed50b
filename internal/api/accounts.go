package api

import (
	"net/http"

	"ge-tracker/internal/auth"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register: POST /api/v1/accounts
func (h *APIHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	acct, merchant, err := auth.Register(c.Request.Context(), h.db, req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"id":          acct.ID,
		"username":    acct.Username,
		"merchant_id": merchant.ID,
		"token":       acct.Token,
	})
}

// Login: POST /api/v1/accounts/login
func (h *APIHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	acct, err := auth.Login(c.Request.Context(), h.db, req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"token": acct.Token})
}

// Me: GET /api/v1/accounts/me
func (h *APIHandler) Me(c *gin.Context) {
	acct := auth.CurrentAccount(c)
	respond(c, http.StatusOK, gin.H{
		"id":          acct.ID,
		"username":    acct.Username,
		"is_staff":    acct.IsStaff,
		"merchant_id": auth.CurrentMerchant(c).ID,
	})
}

// DeleteAccount: DELETE /api/v1/accounts/me
func (h *APIHandler) DeleteAccount(c *gin.Context) {
	if err := auth.DeleteAccount(c.Request.Context(), h.db, auth.CurrentAccount(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
