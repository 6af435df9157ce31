package fleet

import (
	"context"
	"strings"

	"github.com/lib/pq"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/validation"
)

type DriverInput struct {
	FullName      string `json:"full_name" validate:"required,min=2,max=100"`
	LicenseNumber string `json:"license_number" validate:"required,min=5,max=20"`
	Phone         string `json:"phone" validate:"phone10"`
}

type DriverPatch struct {
	FullName      *string `json:"full_name" validate:"omitempty,min=2,max=100"`
	LicenseNumber *string `json:"license_number" validate:"omitempty,min=5,max=20"`
	Phone         *string `json:"phone" validate:"omitempty,phone10"`
}

// Drivers is the owner's driver collection.
type Drivers struct{ w *Workspace }

func (c Drivers) List(ctx context.Context) ([]models.Driver, error) {
	var out []models.Driver
	err := c.w.read("list drivers", func() error {
		if err := c.w.drivers.ensure(ctx); err != nil {
			return err
		}
		out = c.w.drivers.list()
		return nil
	})
	return out, err
}

func (c Drivers) Get(ctx context.Context, id string) (*models.Driver, error) {
	var out models.Driver
	err := c.w.read("load driver", func() error {
		d, err := c.w.driver(ctx, id)
		out = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (w *Workspace) driver(ctx context.Context, id string) (models.Driver, error) {
	if err := w.drivers.ensure(ctx); err != nil {
		return models.Driver{}, err
	}
	d, ok := w.drivers.get(id)
	if !ok {
		return models.Driver{}, apperr.NotFound("driver")
	}
	return d, nil
}

func (c Drivers) Add(ctx context.Context, in DriverInput) (*models.Driver, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.LicenseNumber = strings.ToUpper(strings.TrimSpace(in.LicenseNumber))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var out models.Driver
	err := c.w.mutate("add driver", func() error {
		if err := c.w.drivers.ensure(ctx); err != nil {
			return err
		}
		d := models.Driver{
			OwnerID:          c.w.ownerID,
			FullName:         in.FullName,
			LicenseNumber:    in.LicenseNumber,
			Phone:            in.Phone,
			AssignedVehicles: pq.StringArray{},
		}
		if err := c.w.reg.store.CreateDriver(ctx, &d); err != nil {
			return err
		}
		c.w.drivers.put(d)
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes a driver's details. Assignments are not touched here; use
// AssignVehicle and UnassignVehicle.
func (c Drivers) Update(ctx context.Context, id string, p DriverPatch) (*models.Driver, error) {
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	var out models.Driver
	err := c.w.mutate("update driver", func() error {
		d, err := c.w.driver(ctx, id)
		if err != nil {
			return err
		}
		if p.FullName != nil {
			d.FullName = strings.TrimSpace(*p.FullName)
		}
		if p.LicenseNumber != nil {
			d.LicenseNumber = strings.ToUpper(strings.TrimSpace(*p.LicenseNumber))
		}
		if p.Phone != nil {
			d.Phone = *p.Phone
		}
		if err := c.w.reg.store.SaveDriver(ctx, &d); err != nil {
			return err
		}
		c.w.drivers.put(d)
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes the driver and clears it from every vehicle it drove.
func (c Drivers) Remove(ctx context.Context, id string) error {
	return c.w.mutate("remove driver", func() error {
		if _, err := c.w.driver(ctx, id); err != nil {
			return err
		}
		if err := c.w.vehicles.ensure(ctx); err != nil {
			return err
		}
		released, err := c.w.reg.store.DeleteDriver(ctx, c.w.ownerID, id)
		if err != nil {
			return err
		}
		c.w.drivers.drop(id)
		for _, vid := range released {
			if v, ok := c.w.vehicles.get(vid); ok {
				v.DriverID = nil
				c.w.vehicles.put(v)
			}
		}
		return nil
	})
}

// AssignVehicle links a driver and a vehicle on both sides. The store applies
// both sides in one transaction; the caches change only after it commits.
func (c Drivers) AssignVehicle(ctx context.Context, driverID, vehicleID string) (*models.Vehicle, *models.Driver, error) {
	w := c.w
	var (
		v models.Vehicle
		d models.Driver
	)
	err := w.mutate("assign driver", func() error {
		if _, err := w.vehicle(ctx, vehicleID); err != nil {
			return err
		}
		if _, err := w.driver(ctx, driverID); err != nil {
			return err
		}
		a, err := w.reg.store.AssignVehicle(ctx, w.ownerID, driverID, vehicleID)
		if err != nil {
			return err
		}
		w.applyAssignment(a.Vehicle, a.Driver, a.Previous)
		v, d = a.Vehicle, a.Driver
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &v, &d, nil
}

// UnassignVehicle removes the link on both sides.
func (c Drivers) UnassignVehicle(ctx context.Context, driverID, vehicleID string) (*models.Vehicle, *models.Driver, error) {
	w := c.w
	var (
		v models.Vehicle
		d models.Driver
	)
	err := w.mutate("unassign driver", func() error {
		if _, err := w.vehicle(ctx, vehicleID); err != nil {
			return err
		}
		if _, err := w.driver(ctx, driverID); err != nil {
			return err
		}
		a, err := w.reg.store.UnassignVehicle(ctx, w.ownerID, driverID, vehicleID)
		if err != nil {
			return err
		}
		w.applyAssignment(a.Vehicle, a.Driver, nil)
		v, d = a.Vehicle, a.Driver
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &v, &d, nil
}

func (w *Workspace) applyAssignment(v models.Vehicle, d models.Driver, previous *models.Driver) {
	w.vehicles.put(v)
	w.drivers.put(d)
	if previous != nil {
		w.drivers.put(*previous)
	}
}
