package store

import (
	"context"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

func (s *Store) ListTrips(ctx context.Context, ownerID string) ([]models.Trip, error) {
	var out []models.Trip
	if err := s.scoped(ctx, ownerID).Order("scheduled_start").Find(&out).Error; err != nil {
		return nil, apperr.Wrap("list trips", err)
	}
	return out, nil
}

func (s *Store) CreateTrip(ctx context.Context, t *models.Trip) error {
	return translate("create trip", "trip", s.db.WithContext(ctx).Create(t).Error)
}

func (s *Store) SaveTrip(ctx context.Context, t *models.Trip) error {
	n, err := save(s.db.WithContext(ctx), t.OwnerID, t)
	if err != nil {
		return translate("update trip", "trip", err)
	}
	if n == 0 {
		return apperr.NotFound("trip")
	}
	return nil
}

func (s *Store) DeleteTrip(ctx context.Context, ownerID, id string) error {
	res := s.scoped(ctx, ownerID).Where("id = ?", id).Delete(&models.Trip{})
	if res.Error != nil {
		return apperr.Wrap("remove trip", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("trip")
	}
	return nil
}
