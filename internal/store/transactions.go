package store

import (
	"context"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

func (s *Store) ListTransactions(ctx context.Context, ownerID string) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := s.scoped(ctx, ownerID).Order("date DESC, created_at DESC").Find(&out).Error; err != nil {
		return nil, apperr.Wrap("list transactions", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.scoped(ctx, ownerID).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translate("load transaction", "transaction", err)
	}
	return &t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return translate("add transaction", "transaction", s.db.WithContext(ctx).Create(t).Error)
}

func (s *Store) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	n, err := save(s.db.WithContext(ctx), t.OwnerID, t)
	if err != nil {
		return translate("update transaction", "transaction", err)
	}
	if n == 0 {
		return apperr.NotFound("transaction")
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res := s.scoped(ctx, ownerID).Where("id = ?", id).Delete(&models.Transaction{})
	if res.Error != nil {
		return apperr.Wrap("remove transaction", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("transaction")
	}
	return nil
}
