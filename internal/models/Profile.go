package models

import "time"

const (
	RoleOwner  = "owner"
	RoleDriver = "driver"
)

// Subscription tiers
const (
	TierTrial      = "trial"
	TierSemiannual = "semiannual"
	TierAnnual     = "annual"
)

// Languages a profile may prefer.
var Languages = []string{"en", "hi", "kn"}

// Profile is a fleet operator (or driver) identity, created on first OTP login.
type Profile struct {
	Base
	Phone       string `gorm:"uniqueIndex;size:10;not null" json:"phone"`
	FullName    string `json:"full_name"`
	Email       string `json:"email,omitempty"`
	Company     string `json:"company,omitempty"`
	PAN         string `gorm:"column:pan;size:10" json:"pan,omitempty"`
	IsOnboarded bool   `gorm:"not null;default:false" json:"is_onboarded"`
	Role        string `gorm:"size:10;not null;default:owner" json:"role"`
	Language    string `gorm:"size:2;not null;default:en" json:"language"`

	SubscriptionActive    bool       `json:"-"`
	SubscriptionTier      string     `gorm:"size:12" json:"subscription_tier,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	TrialUsedAt           *time.Time `json:"trial_used_at,omitempty"`
}

// SubscribedAt reports whether the subscription is active at now. The stored
// flag is never trusted past the expiry.
func (p *Profile) SubscribedAt(now time.Time) bool {
	return p.SubscriptionActive && p.SubscriptionExpiresAt != nil && now.Before(*p.SubscriptionExpiresAt)
}
