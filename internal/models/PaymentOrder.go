package models

import "time"

const (
	OrderPending = "pending"
	OrderPaid    = "paid"
	OrderFailed  = "failed"
)

// PaymentOrder tracks one subscription checkout with the payment gateway.
type PaymentOrder struct {
	Base
	OwnerID          string     `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Plan             string     `gorm:"size:12;not null" json:"plan"`
	Amount           float64    `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status           string     `gorm:"size:10;not null;default:pending" json:"status"`
	GatewaySessionID string     `json:"payment_session_id,omitempty"`
	PaymentLink      string     `json:"payment_link,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}
