package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

func (s *Store) CreateOrder(ctx context.Context, o *models.PaymentOrder) error {
	return translate("create order", "order", s.db.WithContext(ctx).Create(o).Error)
}

func (s *Store) SaveOrder(ctx context.Context, o *models.PaymentOrder) error {
	n, err := save(s.db.WithContext(ctx), o.OwnerID, o)
	if err != nil {
		return translate("update order", "order", err)
	}
	if n == 0 {
		return apperr.NotFound("order")
	}
	return nil
}

// GetOrder loads an order by id alone; gateway callbacks carry no owner.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, translate("load order", "order", err)
	}
	return &o, nil
}

// SettleOrder marks a pending order paid and lets apply extend the owner's
// subscription inside the same transaction. It returns settled=false without
// writing anything when the order was already paid.
func (s *Store) SettleOrder(ctx context.Context, orderID string, paidAt time.Time, apply func(*models.Profile, *models.PaymentOrder) error) (bool, *models.Profile, error) {
	var (
		settled bool
		profile models.Profile
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PaymentOrder{}).
			Where("id = ? AND status <> ?", orderID, models.OrderPaid).
			Updates(map[string]interface{}{"status": models.OrderPaid, "paid_at": paidAt})
		if res.Error != nil {
			return res.Error
		}
		var o models.PaymentOrder
		if err := tx.Where("id = ?", orderID).First(&o).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return nil
		}
		settled = true

		if err := tx.Where("id = ?", o.OwnerID).First(&profile).Error; err != nil {
			return err
		}
		if err := apply(&profile, &o); err != nil {
			return err
		}
		return tx.Model(&profile).Updates(map[string]interface{}{
			"subscription_active":     profile.SubscriptionActive,
			"subscription_tier":       profile.SubscriptionTier,
			"subscription_expires_at": profile.SubscriptionExpiresAt,
		}).Error
	})
	if err != nil {
		return false, nil, translate("settle order", "order", err)
	}
	if !settled {
		return false, nil, nil
	}
	return true, &profile, nil
}

// FailOrder marks a pending order failed. Paid orders are left alone.
func (s *Store) FailOrder(ctx context.Context, orderID string) error {
	res := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", orderID, models.OrderPending).
		Update("status", models.OrderFailed)
	return apperr.Wrap("update order", res.Error)
}
