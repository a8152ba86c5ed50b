// Package auth registers accounts, issues tokens and resolves the
// requesting merchant from the Authorization header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ge-tracker/internal/market"
	"ge-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrBadCredentials is a failed login: unknown username or wrong password.
var ErrBadCredentials = errors.New("invalid username or password")

const (
	merchantKey = "auth.merchant"
	accountKey  = "auth.account"

	MinPasswordLength = 8
)

// Register creates an account and its merchant in one transaction.
func Register(ctx context.Context, db *gorm.DB, username, password string) (*models.Account, *models.Merchant, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 150 {
		return nil, nil, fmt.Errorf("%w: username must be 1-150 characters", market.ErrInvalid)
	}
	if len(password) < MinPasswordLength {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters", market.ErrInvalid, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &models.Account{Username: username, PasswordHash: string(hash), Token: uuid.NewString()}
	merchant := &models.Merchant{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acct).Error; err != nil {
			return err
		}
		merchant.AccountID = acct.ID
		return tx.Create(merchant).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, nil, market.ErrConflict
	}
	if err != nil {
		return nil, nil, err
	}
	return acct, merchant, nil
}

// Login checks the password and returns the account with its token.
func Login(ctx context.Context, db *gorm.DB, username, password string) (*models.Account, error) {
	var acct models.Account
	err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return &acct, nil
}

// DeleteAccount removes an account with its merchant. The merchant's
// favorites and flips cascade; its private tag associations are removed
// by the merchant's delete hook.
func DeleteAccount(ctx context.Context, db *gorm.DB, accountID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var merchant models.Merchant
		err := tx.Where("account_id = ?", accountID).First(&merchant).Error
		switch {
		case err == nil:
			if err := tx.Delete(&merchant).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		res := tx.Delete(&models.Account{}, accountID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return market.ErrNotFound
		}
		return nil
	})
}

func tokenFrom(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Token") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware resolves the token to its merchant. Missing or unknown tokens
// leave the request anonymous.
func Middleware(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.Next()
			return
		}

		var merchant models.Merchant
		err := db.WithContext(c.Request.Context()).
			Joins("Account").
			Where("Account.token = ?", token).
			First(&merchant).Error
		switch {
		case err == nil:
			c.Set(merchantKey, &merchant)
			c.Set(accountKey, &merchant.Account)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			log.Warn("resolve token", zap.Error(err))
		}
		c.Next()
	}
}

// CurrentMerchant returns the authenticated merchant, or nil.
func CurrentMerchant(c *gin.Context) *models.Merchant {
	if v, ok := c.Get(merchantKey); ok {
		return v.(*models.Merchant)
	}
	return nil
}

func CurrentAccount(c *gin.Context) *models.Account {
	if v, ok := c.Get(accountKey); ok {
		return v.(*models.Account)
	}
	return nil
}

// RequireMerchant rejects anonymous requests with 403.
func RequireMerchant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentMerchant(c) == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":  http.StatusForbidden,
				"error": market.ErrUnauthorized.Error(),
			})
			return
		}
		c.Next()
	}
}
