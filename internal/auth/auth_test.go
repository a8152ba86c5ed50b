package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ge-tracker/internal/auth"
	"ge-tracker/internal/database/dbtest"
	"ge-tracker/internal/market"
	"ge-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRegisterAndLogin(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	acct, merchant, err := auth.Register(ctx, db, "zezima", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, acct.Token)
	assert.NotEqual(t, "hunter2hunter2", acct.PasswordHash)
	assert.Equal(t, acct.ID, merchant.AccountID)

	_, _, err = auth.Register(ctx, db, "zezima", "another-password")
	assert.ErrorIs(t, err, market.ErrConflict)

	var merchants int64
	require.NoError(t, db.Model(&models.Merchant{}).Count(&merchants).Error)
	assert.Equal(t, int64(1), merchants)

	got, err := auth.Login(ctx, db, "zezima", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, acct.Token, got.Token)

	_, err = auth.Login(ctx, db, "zezima", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
	_, err = auth.Login(ctx, db, "nobody", "hunter2hunter2")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}

func TestDeleteAccount_RemovesPrivateTags(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Item{ID: 4151, Name: "Abyssal whip"}).Error)
	store := market.NewStore(db, zap.NewNop())

	acct, merchant, err := auth.Register(ctx, db, "zezima", "hunter2hunter2")
	require.NoError(t, err)
	_, err = store.AddTag(ctx, 4151, "mine", merchant.ID)
	require.NoError(t, err)
	_, err = store.AddTag(ctx, 4151, "weapon", models.NoOwner)
	require.NoError(t, err)
	_, err = store.AddFavorite(ctx, merchant.ID, 4151)
	require.NoError(t, err)

	require.NoError(t, auth.DeleteAccount(ctx, db, acct.ID))

	var private, global, favorites, merchants int64
	require.NoError(t, db.Model(&models.ItemTag{}).Where("owner_id = ?", merchant.ID).Count(&private).Error)
	require.NoError(t, db.Model(&models.ItemTag{}).Where("owner_id = ?", models.NoOwner).Count(&global).Error)
	require.NoError(t, db.Model(&models.Favorite{}).Count(&favorites).Error)
	require.NoError(t, db.Model(&models.Merchant{}).Count(&merchants).Error)
	assert.Zero(t, private)
	assert.Equal(t, int64(1), global)
	assert.Zero(t, favorites)
	assert.Zero(t, merchants)

	assert.ErrorIs(t, auth.DeleteAccount(ctx, db, acct.ID), market.ErrNotFound)
}

func TestRegister_Validation(t *testing.T) {
	db := dbtest.New(t)
	_, _, err := auth.Register(context.Background(), db, "  ", "long-enough-password")
	assert.ErrorIs(t, err, market.ErrInvalid)
	_, _, err = auth.Register(context.Background(), db, "short", "abc")
	assert.ErrorIs(t, err, market.ErrInvalid)
}

func TestMiddleware(t *testing.T) {
	db := dbtest.New(t)
	acct, merchant, err := auth.Register(context.Background(), db, "zezima", "hunter2hunter2")
	require.NoError(t, err)

	r := gin.New()
	r.Use(auth.Middleware(db, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		if m := auth.CurrentMerchant(c); m != nil {
			c.JSON(http.StatusOK, gin.H{"merchant": m.ID, "username": auth.CurrentAccount(c).Username})
			return
		}
		c.JSON(http.StatusOK, gin.H{"merchant": nil})
	})
	r.POST("/private", auth.RequireMerchant(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name   string
		method string
		path   string
		header string
		status int
		body   string
	}{
		{"anonymous read", http.MethodGet, "/whoami", "", http.StatusOK, `{"merchant":null}`},
		{"unknown token is anonymous", http.MethodGet, "/whoami", "Token nope", http.StatusOK, `{"merchant":null}`},
		{"wrong scheme is anonymous", http.MethodGet, "/whoami", "Bearer " + acct.Token, http.StatusOK, `{"merchant":null}`},
		{"known token", http.MethodGet, "/whoami", "Token " + acct.Token, http.StatusOK, ""},
		{"anonymous mutation", http.MethodPost, "/private", "", http.StatusForbidden, ""},
		{"authenticated mutation", http.MethodPost, "/private", "Token " + acct.Token, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token "+acct.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"merchant":`+itoa(merchant.ID)+`,"username":"zezima"}`, w.Body.String())
}

func itoa(v uint) string {
	return fmt.Sprint(v)
}
