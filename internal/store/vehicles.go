package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

func (s *Store) ListVehicles(ctx context.Context, ownerID string) ([]models.Vehicle, error) {
	var out []models.Vehicle
	if err := s.scoped(ctx, ownerID).Order("created_at").Find(&out).Error; err != nil {
		return nil, apperr.Wrap("list vehicles", err)
	}
	return out, nil
}

func (s *Store) GetVehicle(ctx context.Context, ownerID, id string) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.scoped(ctx, ownerID).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, translate("load vehicle", "vehicle", err)
	}
	return &v, nil
}

// RegistrationExists reports whether ownerID already has a vehicle with reg,
// ignoring the vehicle excludeID.
func (s *Store) RegistrationExists(ctx context.Context, ownerID, reg, excludeID string) (bool, error) {
	var n int64
	q := s.scoped(ctx, ownerID).Model(&models.Vehicle{}).Where("registration_number = ?", reg)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, apperr.Wrap("check registration", err)
	}
	return n > 0, nil
}

func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	return translate("add vehicle", "vehicle "+v.RegistrationNumber, s.db.WithContext(ctx).Create(v).Error)
}

func (s *Store) SaveVehicle(ctx context.Context, v *models.Vehicle) error {
	n, err := save(s.db.WithContext(ctx), v.OwnerID, v)
	if err != nil {
		return translate("update vehicle", "vehicle "+v.RegistrationNumber, err)
	}
	if n == 0 {
		return apperr.NotFound("vehicle")
	}
	return nil
}

// DeleteVehicle removes the vehicle and drops it from its driver's set.
// The updated driver is returned when there was one.
func (s *Store) DeleteVehicle(ctx context.Context, ownerID, id string) (*models.Driver, error) {
	var driver *models.Driver
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v models.Vehicle
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&v).Error; err != nil {
			return err
		}
		if v.DriverID != nil {
			var d models.Driver
			err := tx.Where("id = ? AND owner_id = ?", *v.DriverID, ownerID).First(&d).Error
			switch {
			case err == nil:
				d.RemoveVehicle(v.ID)
				if err := tx.Model(&d).Update("assigned_vehicles", d.AssignedVehicles).Error; err != nil {
					return err
				}
				driver = &d
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}
		return tx.Where("owner_id = ?", ownerID).Delete(&v).Error
	})
	if err != nil {
		return nil, translate("remove vehicle", "vehicle", err)
	}
	return driver, nil
}

// TopUp credits the vehicle balance and records the matching add_money
// transaction atomically.
func (s *Store) TopUp(ctx context.Context, ownerID, vehicleID string, entry *models.Transaction) (*models.Vehicle, error) {
	var v models.Vehicle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Vehicle{}).
			Where("id = ? AND owner_id = ?", vehicleID, ownerID).
			Update("balance", gorm.Expr("balance + ?", entry.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("id = ?", vehicleID).First(&v).Error; err != nil {
			return err
		}
		entry.OwnerID = ownerID
		entry.VehicleID = &v.ID
		entry.VehicleNumber = v.RegistrationNumber
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, translate("top up", "vehicle", err)
	}
	return &v, nil
}
