package fleet

import (
	"context"
	"strings"
	"time"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/validation"
)

type VehicleInput struct {
	RegistrationNumber string     `json:"registration_number" validate:"required,min=4,max=20,alphanum"`
	Model              string     `json:"model" validate:"max=60"`
	ActivationCode     string     `json:"activation_code" validate:"omitempty,alphanum,min=6,max=20"`
	Balance            float64    `json:"balance" validate:"gte=0"`
	FastagLinked       bool       `json:"fastag_linked"`
	GPSLinked          bool       `json:"gps_linked"`
	LastService        *time.Time `json:"last_service"`
	Challans           int        `json:"challans" validate:"gte=0"`
}

type VehiclePatch struct {
	RegistrationNumber *string    `json:"registration_number" validate:"omitempty,min=4,max=20,alphanum"`
	Model              *string    `json:"model" validate:"omitempty,max=60"`
	Balance            *float64   `json:"balance" validate:"omitempty,gte=0"`
	FastagLinked       *bool      `json:"fastag_linked"`
	GPSLinked          *bool      `json:"gps_linked"`
	LastService        *time.Time `json:"last_service"`
	Challans           *int       `json:"challans" validate:"omitempty,gte=0"`
}

type DocumentInput struct {
	Status     string     `json:"status" validate:"required,oneof=uploaded missing expired"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

type TopUpInput struct {
	Amount        float64 `json:"amount" validate:"gt=0,max=100000"`
	PaymentMethod string  `json:"payment_method" validate:"omitempty,oneof=cash upi card netbanking"`
}

// Vehicles is the owner's vehicle collection.
type Vehicles struct{ w *Workspace }

func (c Vehicles) List(ctx context.Context) ([]models.Vehicle, error) {
	var out []models.Vehicle
	err := c.w.read("list vehicles", func() error {
		if err := c.w.vehicles.ensure(ctx); err != nil {
			return err
		}
		out = c.w.vehicles.list()
		return nil
	})
	return out, err
}

func (c Vehicles) Get(ctx context.Context, id string) (*models.Vehicle, error) {
	var out models.Vehicle
	err := c.w.read("load vehicle", func() error {
		v, err := c.w.vehicle(ctx, id)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// vehicle returns a cached vehicle by id. The workspace lock must be held.
func (w *Workspace) vehicle(ctx context.Context, id string) (models.Vehicle, error) {
	if err := w.vehicles.ensure(ctx); err != nil {
		return models.Vehicle{}, err
	}
	v, ok := w.vehicles.get(id)
	if !ok {
		return models.Vehicle{}, apperr.NotFound("vehicle")
	}
	return v, nil
}

func (w *Workspace) checkRegistration(ctx context.Context, reg, excludeID string) error {
	exists, err := w.reg.store.RegistrationExists(ctx, w.ownerID, reg, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Duplicate("vehicle " + reg + " already exists in your fleet")
	}
	return nil
}

// Add registers a vehicle. A registration number already in the owner's
// fleet fails with a duplicate error before anything is written.
func (c Vehicles) Add(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	in.RegistrationNumber = models.NormalizeRegistration(in.RegistrationNumber)
	in.Model = strings.TrimSpace(in.Model)
	in.ActivationCode = strings.TrimSpace(in.ActivationCode)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var out models.Vehicle
	err := c.w.mutate("add vehicle", func() error {
		if err := c.w.vehicles.ensure(ctx); err != nil {
			return err
		}
		if err := c.w.checkRegistration(ctx, in.RegistrationNumber, ""); err != nil {
			return err
		}

		v := models.Vehicle{
			OwnerID:            c.w.ownerID,
			RegistrationNumber: in.RegistrationNumber,
			Model:              in.Model,
			Balance:            in.Balance,
			FastagLinked:       in.FastagLinked || in.ActivationCode != "",
			GPSLinked:          in.GPSLinked,
			LastService:        in.LastService,
			Challans:           in.Challans,
			Documents:          models.MissingDocuments(),
		}
		if v.Model == "" {
			v.Model = models.DefaultVehicleModel
		}
		if err := c.w.reg.store.CreateVehicle(ctx, &v); err != nil {
			return err
		}
		c.w.vehicles.put(v)
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c Vehicles) Update(ctx context.Context, id string, p VehiclePatch) (*models.Vehicle, error) {
	if p.RegistrationNumber != nil {
		reg := models.NormalizeRegistration(*p.RegistrationNumber)
		p.RegistrationNumber = &reg
	}
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	var out models.Vehicle
	err := c.w.mutate("update vehicle", func() error {
		v, err := c.w.vehicle(ctx, id)
		if err != nil {
			return err
		}
		if p.RegistrationNumber != nil && *p.RegistrationNumber != v.RegistrationNumber {
			if err := c.w.checkRegistration(ctx, *p.RegistrationNumber, id); err != nil {
				return err
			}
			v.RegistrationNumber = *p.RegistrationNumber
		}
		if p.Model != nil {
			v.Model = strings.TrimSpace(*p.Model)
			if v.Model == "" {
				v.Model = models.DefaultVehicleModel
			}
		}
		if p.Balance != nil {
			v.Balance = *p.Balance
		}
		if p.FastagLinked != nil {
			v.FastagLinked = *p.FastagLinked
		}
		if p.GPSLinked != nil {
			v.GPSLinked = *p.GPSLinked
		}
		if p.LastService != nil {
			v.LastService = p.LastService
		}
		if p.Challans != nil {
			v.Challans = *p.Challans
		}

		if err := c.w.reg.store.SaveVehicle(ctx, &v); err != nil {
			return err
		}
		c.w.vehicles.put(v)
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDocument sets the status and expiry of one compliance document.
func (c Vehicles) UpdateDocument(ctx context.Context, id, kind string, in DocumentInput) (*models.Vehicle, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if (&models.Documents{}).Slot(kind) == nil {
		return nil, apperr.Validation("kind", "document must be one of: "+strings.Join(models.DocumentKinds, ", "))
	}

	var out models.Vehicle
	err := c.w.mutate("update document", func() error {
		v, err := c.w.vehicle(ctx, id)
		if err != nil {
			return err
		}
		slot := v.Documents.Slot(kind)
		slot.Status = in.Status
		slot.ExpiryDate = in.ExpiryDate

		if err := c.w.reg.store.SaveVehicle(ctx, &v); err != nil {
			return err
		}
		c.w.vehicles.put(v)
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TopUp adds money to the vehicle's prepaid balance and records it as an
// add_money transaction.
func (c Vehicles) TopUp(ctx context.Context, id string, in TopUpInput) (*models.Vehicle, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.DefaultPaymentMethod
	}

	var out models.Vehicle
	err := c.w.mutate("top up", func() error {
		if _, err := c.w.vehicle(ctx, id); err != nil {
			return err
		}
		if err := c.w.transactions.ensure(ctx); err != nil {
			return err
		}
		entry := models.Transaction{
			Date:          models.Day(c.w.reg.now()),
			Type:          models.TxAddMoney,
			Amount:        in.Amount,
			Description:   "Balance top-up",
			Category:      models.CategoryFor(models.TxAddMoney),
			PaymentMethod: in.PaymentMethod,
		}
		v, err := c.w.reg.store.TopUp(ctx, c.w.ownerID, id, &entry)
		if err != nil {
			return err
		}
		c.w.vehicles.put(*v)
		c.w.transactions.put(entry)
		out = *v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes the vehicle and drops it from its driver's assignments.
func (c Vehicles) Remove(ctx context.Context, id string) error {
	return c.w.mutate("remove vehicle", func() error {
		if _, err := c.w.vehicle(ctx, id); err != nil {
			return err
		}
		if err := c.w.drivers.ensure(ctx); err != nil {
			return err
		}
		driver, err := c.w.reg.store.DeleteVehicle(ctx, c.w.ownerID, id)
		if err != nil {
			return err
		}
		c.w.vehicles.drop(id)
		if driver != nil {
			c.w.drivers.put(*driver)
		}
		return nil
	})
}
