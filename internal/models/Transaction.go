package models

import "time"

// Transaction types
const (
	TxRevenue       = "revenue"
	TxFuel          = "fuel"
	TxParking       = "parking"
	TxToll          = "toll"
	TxMaintenance   = "maintenance"
	TxInsurance     = "insurance"
	TxAddMoney      = "add_money"
	TxPermit        = "permit"
	TxFine          = "fine"
	TxManualIncome  = "manual_income"
	TxManualExpense = "manual_expense"
)

const (
	CategoryIncome  = "income"
	CategoryExpense = "expense"
)

const DefaultPaymentMethod = "cash"

// CategoryFor derives the category for a transaction type.
func CategoryFor(txType string) string {
	switch txType {
	case TxRevenue, TxManualIncome:
		return CategoryIncome
	}
	return CategoryExpense
}

type Transaction struct {
	Base
	OwnerID       string    `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Date          time.Time `gorm:"not null;index" json:"date"`
	VehicleID     *string   `gorm:"type:varchar(36);index" json:"vehicle_id"`
	VehicleNumber string    `json:"vehicle_number"`
	Type          string    `gorm:"size:20;not null" json:"type"`
	Amount        float64   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description   string    `json:"description"`
	Reference     string    `json:"reference,omitempty"`
	Location      string    `json:"location,omitempty"`
	Category      string    `gorm:"size:10;not null" json:"category"`
	PaymentMethod string    `gorm:"size:20;not null;default:cash" json:"payment_method"`
	IsManual      bool      `json:"is_manual"`
}

func (t Transaction) Clone() Transaction {
	t.VehicleID = clonePtr(t.VehicleID)
	return t
}
