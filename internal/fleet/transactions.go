package fleet

import (
	"context"
	"strings"
	"time"

	"myfleet/internal/apperr"
	"myfleet/internal/filter"
	"myfleet/internal/models"
	"myfleet/internal/validation"
)

const txTypes = "revenue fuel parking toll maintenance insurance add_money permit fine manual_income manual_expense"

type TransactionInput struct {
	Date          *time.Time `json:"date"`
	VehicleID     string     `json:"vehicle_id"`
	Type          string     `json:"type" validate:"required,oneof=revenue fuel parking toll maintenance insurance add_money permit fine manual_income manual_expense"`
	Amount        float64    `json:"amount" validate:"gte=0"`
	Description   string     `json:"description" validate:"max=500"`
	Reference     string     `json:"reference" validate:"max=100"`
	Location      string     `json:"location" validate:"max=200"`
	Category      string     `json:"category" validate:"omitempty,oneof=income expense"`
	PaymentMethod string     `json:"payment_method" validate:"omitempty,oneof=cash upi card netbanking fastag"`
}

type TransactionPatch struct {
	Date          *time.Time `json:"date"`
	Type          *string    `json:"type" validate:"omitempty,oneof=revenue fuel parking toll maintenance insurance add_money permit fine manual_income manual_expense"`
	Amount        *float64   `json:"amount" validate:"omitempty,gte=0"`
	Description   *string    `json:"description" validate:"omitempty,max=500"`
	Location      *string    `json:"location" validate:"omitempty,max=200"`
	Category      *string    `json:"category" validate:"omitempty,oneof=income expense"`
	PaymentMethod *string    `json:"payment_method" validate:"omitempty,oneof=cash upi card netbanking fastag"`
}

// Transactions is the owner's ledger, newest first.
type Transactions struct{ w *Workspace }

func (c Transactions) List(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	err := c.w.read("list transactions", func() error {
		if err := c.w.transactions.ensure(ctx); err != nil {
			return err
		}
		out = c.w.transactions.list()
		return nil
	})
	return out, err
}

// Search returns the cached transactions that match f.
func (c Transactions) Search(ctx context.Context, f filter.Filter) ([]models.Transaction, error) {
	var out []models.Transaction
	err := c.w.read("search transactions", func() error {
		if err := c.w.transactions.ensure(ctx); err != nil {
			return err
		}
		out = f.Apply(c.w.transactions.list())
		return nil
	})
	return out, err
}

// Add records a manual entry. Category and payment method are derived when
// omitted and the vehicle number is copied from the vehicle.
func (c Transactions) Add(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var out models.Transaction
	err := c.w.mutate("add transaction", func() error {
		if err := c.w.transactions.ensure(ctx); err != nil {
			return err
		}
		t := models.Transaction{
			OwnerID:       c.w.ownerID,
			Date:          models.Day(c.w.reg.now()),
			Type:          in.Type,
			Amount:        in.Amount,
			Description:   in.Description,
			Reference:     in.Reference,
			Location:      strings.TrimSpace(in.Location),
			Category:      in.Category,
			PaymentMethod: in.PaymentMethod,
			IsManual:      true,
		}
		if in.Date != nil {
			t.Date = models.Day(*in.Date)
		}
		if t.Category == "" {
			t.Category = models.CategoryFor(t.Type)
		}
		if t.PaymentMethod == "" {
			t.PaymentMethod = models.DefaultPaymentMethod
		}
		if in.VehicleID != "" {
			v, err := c.w.vehicle(ctx, in.VehicleID)
			if err != nil {
				return err
			}
			t.VehicleID = &v.ID
			t.VehicleNumber = v.RegistrationNumber
		}

		if err := c.w.reg.store.CreateTransaction(ctx, &t); err != nil {
			return err
		}
		c.w.transactions.put(t)
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c Transactions) Update(ctx context.Context, id string, p TransactionPatch) (*models.Transaction, error) {
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	var out models.Transaction
	err := c.w.mutate("update transaction", func() error {
		if err := c.w.transactions.ensure(ctx); err != nil {
			return err
		}
		t, ok := c.w.transactions.get(id)
		if !ok {
			return apperr.NotFound("transaction")
		}
		if p.Date != nil {
			t.Date = models.Day(*p.Date)
		}
		if p.Type != nil {
			t.Type = *p.Type
			if p.Category == nil {
				t.Category = models.CategoryFor(t.Type)
			}
		}
		if p.Amount != nil {
			t.Amount = *p.Amount
		}
		if p.Description != nil {
			t.Description = strings.TrimSpace(*p.Description)
		}
		if p.Location != nil {
			t.Location = strings.TrimSpace(*p.Location)
		}
		if p.Category != nil {
			t.Category = *p.Category
		}
		if p.PaymentMethod != nil {
			t.PaymentMethod = *p.PaymentMethod
		}

		if err := c.w.reg.store.SaveTransaction(ctx, &t); err != nil {
			return err
		}
		c.w.transactions.put(t)
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c Transactions) Remove(ctx context.Context, id string) error {
	return c.w.mutate("remove transaction", func() error {
		if err := c.w.transactions.ensure(ctx); err != nil {
			return err
		}
		if _, ok := c.w.transactions.get(id); !ok {
			return apperr.NotFound("transaction")
		}
		if err := c.w.reg.store.DeleteTransaction(ctx, c.w.ownerID, id); err != nil {
			return err
		}
		c.w.transactions.drop(id)
		return nil
	})
}

// TransactionTypes lists the accepted transaction types.
func TransactionTypes() []string { return strings.Fields(txTypes) }
