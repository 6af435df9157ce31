// Package store holds the GORM repositories. Every query on fleet data is
// filtered by owner_id.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Vehicle{},
		&models.Driver{},
		&models.Transaction{},
		&models.Trip{},
		&models.PaymentOrder{},
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func (s *Store) scoped(ctx context.Context, ownerID string) *gorm.DB {
	return s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
}

// translate maps gorm errors onto the application taxonomy.
func translate(op, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Duplicate(what + " already exists")
	}
	return apperr.Wrap(op, err)
}

// save writes every column of a row that belongs to ownerID.
func save(tx *gorm.DB, ownerID string, row interface{}) (int64, error) {
	res := tx.Model(row).Where("owner_id = ?", ownerID).Select("*").Omit("created_at").Updates(row)
	return res.RowsAffected, res.Error
}
