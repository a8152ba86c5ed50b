package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ge-tracker/internal/auth"
	"ge-tracker/internal/magic"
	"ge-tracker/internal/market"
	"ge-tracker/internal/profit"
	"ge-tracker/internal/services/osrs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type APIHandler struct {
	db    *gorm.DB
	store *market.Store
	magic *magic.Calculator
	log   *zap.Logger
}

// NewRouter builds the engine with logging, recovery, the health probe and
// the versioned API.
func NewRouter(db *gorm.DB, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(log), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	SetupRoutes(r.Group("/api/v1"), db, log)
	return r
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, log *zap.Logger) *APIHandler {
	store := market.NewStore(db, log)
	handler := &APIHandler{
		db:    db,
		store: store,
		magic: magic.NewCalculator(store),
		log:   log.Named("api"),
	}
	requireMerchant := auth.RequireMerchant()

	r.Use(auth.Middleware(db, log))

	accounts := r.Group("/accounts")
	{
		accounts.POST("", handler.Register)
		accounts.POST("/login", handler.Login)
		accounts.GET("/me", requireMerchant, handler.Me)
		accounts.DELETE("/me", requireMerchant, handler.DeleteAccount)
	}

	items := r.Group("/items")
	{
		items.GET("", handler.ListItems)
		items.GET("/search", handler.SearchItems)
		items.GET("/:id", handler.GetItem)
		items.GET("/:id/prices", handler.PriceHistory)
		items.GET("/:id/alchemy", handler.ItemAlchemy)
		items.GET("/:id/profit", requireMerchant, handler.ItemProfit)

		items.GET("/:id/tags", handler.ListTags)
		items.POST("/:id/tags", requireMerchant, handler.AddTag)
		items.DELETE("/:id/tags", requireMerchant, handler.RemoveTags)

		items.GET("/:id/favorite", handler.FavoriteStatus)
		items.POST("/:id/favorite", requireMerchant, handler.AddFavorite)
		items.DELETE("/:id/favorite", requireMerchant, handler.RemoveFavorite)
	}

	r.GET("/prices/latest", handler.LatestPrices)
	r.GET("/spells", handler.ListSpells)
	r.GET("/spells/:name", handler.GetSpell)
	r.GET("/favorites", requireMerchant, handler.ListFavorites)

	flips := r.Group("/flips", requireMerchant)
	{
		flips.GET("", handler.ListFlips)
		flips.POST("", handler.CreateFlip)
		flips.GET("/report.xlsx", handler.FlipReport)
		flips.GET("/:id", handler.GetFlip)
		flips.GET("/:id/profit", handler.FlipProfit)
		flips.PATCH("/:id", handler.UpdateFlip)
		flips.DELETE("/:id", handler.DeleteFlip)
	}

	return handler
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"code": status,
		"msg":  "ok",
		"data": data,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, market.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, market.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, profit.ErrIncompleteFlip), errors.Is(err, profit.ErrZeroDuration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, osrs.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError maps err to its status and writes the error envelope.
// Internal errors are logged and hidden from the client.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"code":  status,
		"error": msg,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"code":  http.StatusBadRequest,
		"error": msg,
	})
}

func itemIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid item id")
		return 0, false
	}
	return id, true
}

func flipIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid flip id")
		return 0, false
	}
	return uint(id), true
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+key)
		return 0, false
	}
	return v, true
}
