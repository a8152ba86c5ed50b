// Package market holds the catalog queries: the latest-price index, the
// favorite annotator, tag visibility, the item view composer and flips.
package market

import (
	"context"
	"errors"

	"ge-tracker/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("authentication required")
	ErrInvalid      = errors.New("invalid request")
)

// Store runs every market query against one gorm handle.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log.Named("market")}
}

// DB exposes the underlying handle for callers that share a transaction.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) itemExists(ctx context.Context, itemID int64) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", itemID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func conflictOr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
