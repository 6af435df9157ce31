package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

func (s *Store) ListDrivers(ctx context.Context, ownerID string) ([]models.Driver, error) {
	var out []models.Driver
	if err := s.scoped(ctx, ownerID).Order("created_at").Find(&out).Error; err != nil {
		return nil, apperr.Wrap("list drivers", err)
	}
	return out, nil
}

func (s *Store) GetDriver(ctx context.Context, ownerID, id string) (*models.Driver, error) {
	var d models.Driver
	if err := s.scoped(ctx, ownerID).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate("load driver", "driver", err)
	}
	return &d, nil
}

func (s *Store) CreateDriver(ctx context.Context, d *models.Driver) error {
	return translate("add driver", "driver", s.db.WithContext(ctx).Create(d).Error)
}

func (s *Store) SaveDriver(ctx context.Context, d *models.Driver) error {
	n, err := save(s.db.WithContext(ctx), d.OwnerID, d)
	if err != nil {
		return translate("update driver", "driver", err)
	}
	if n == 0 {
		return apperr.NotFound("driver")
	}
	return nil
}

// DeleteDriver removes the driver and clears driver_id on every vehicle that
// pointed at it. The ids of those vehicles are returned.
func (s *Store) DeleteDriver(ctx context.Context, ownerID, id string) ([]string, error) {
	var released []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Driver
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&d).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Vehicle{}).
			Where("owner_id = ? AND driver_id = ?", ownerID, id).
			Pluck("id", &released).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Vehicle{}).
			Where("owner_id = ? AND driver_id = ?", ownerID, id).
			Update("driver_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("owner_id = ?", ownerID).Delete(&d).Error
	})
	if err != nil {
		return nil, translate("remove driver", "driver", err)
	}
	return released, nil
}

// Assignment is the state of both sides after an assign or unassign.
type Assignment struct {
	Vehicle models.Vehicle
	Driver  models.Driver
	// Previous is the driver the vehicle was taken from, if any.
	Previous *models.Driver
}

// AssignVehicle points the vehicle at the driver and adds it to the driver's
// set in one transaction. A vehicle held by another driver is moved.
func (s *Store) AssignVehicle(ctx context.Context, ownerID, driverID, vehicleID string) (*Assignment, error) {
	var out Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, d, err := loadPair(tx, ownerID, driverID, vehicleID)
		if err != nil {
			return err
		}

		if v.DriverID != nil && *v.DriverID != d.ID {
			var prev models.Driver
			err := tx.Where("id = ? AND owner_id = ?", *v.DriverID, ownerID).First(&prev).Error
			switch {
			case err == nil:
				prev.RemoveVehicle(v.ID)
				if err := tx.Model(&prev).Update("assigned_vehicles", prev.AssignedVehicles).Error; err != nil {
					return err
				}
				out.Previous = &prev
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		v.DriverID = &d.ID
		if err := tx.Model(v).Update("driver_id", d.ID).Error; err != nil {
			return err
		}
		d.AddVehicle(v.ID)
		if err := tx.Model(d).Update("assigned_vehicles", d.AssignedVehicles).Error; err != nil {
			return err
		}
		out.Vehicle, out.Driver = *v, *d
		return nil
	})
	if err != nil {
		return nil, translate("assign driver", "driver or vehicle", err)
	}
	return &out, nil
}

// UnassignVehicle clears both sides of the relationship in one transaction.
func (s *Store) UnassignVehicle(ctx context.Context, ownerID, driverID, vehicleID string) (*Assignment, error) {
	var out Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, d, err := loadPair(tx, ownerID, driverID, vehicleID)
		if err != nil {
			return err
		}
		linked := v.DriverID != nil && *v.DriverID == d.ID
		if !linked && !d.HasVehicle(v.ID) {
			return apperr.Conflict("vehicle is not assigned to this driver")
		}

		if linked {
			v.DriverID = nil
			if err := tx.Model(v).Update("driver_id", nil).Error; err != nil {
				return err
			}
		}
		d.RemoveVehicle(v.ID)
		if err := tx.Model(d).Update("assigned_vehicles", d.AssignedVehicles).Error; err != nil {
			return err
		}
		out.Vehicle, out.Driver = *v, *d
		return nil
	})
	if err != nil {
		return nil, translate("unassign driver", "driver or vehicle", err)
	}
	return &out, nil
}

func loadPair(tx *gorm.DB, ownerID, driverID, vehicleID string) (*models.Vehicle, *models.Driver, error) {
	var v models.Vehicle
	if err := tx.Where("id = ? AND owner_id = ?", vehicleID, ownerID).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("vehicle")
		}
		return nil, nil, err
	}
	var d models.Driver
	if err := tx.Where("id = ? AND owner_id = ?", driverID, ownerID).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("driver")
		}
		return nil, nil, err
	}
	return &v, &d, nil
}
