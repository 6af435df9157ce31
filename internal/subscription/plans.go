// Package subscription holds the plan catalogue and the rules that move a
// profile's subscription window.
package subscription

import (
	"time"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
)

type Plan struct {
	Tier   string  `json:"tier"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Months int     `json:"months"`
	Days   int     `json:"days"`
}

var (
	Trial      = Plan{Tier: models.TierTrial, Name: "Free Trial", Days: 30}
	Semiannual = Plan{Tier: models.TierSemiannual, Name: "6 Months", Amount: 12000, Months: 6}
	Annual     = Plan{Tier: models.TierAnnual, Name: "1 Year", Amount: 24000, Months: 12}
)

// Catalogue lists the plans in display order.
func Catalogue() []Plan { return []Plan{Trial, Semiannual, Annual} }

// Paid looks up a plan that goes through checkout.
func Paid(tier string) (Plan, error) {
	switch tier {
	case models.TierSemiannual:
		return Semiannual, nil
	case models.TierAnnual:
		return Annual, nil
	}
	return Plan{}, apperr.Validation("plan", "plan must be semiannual or annual")
}

// Lookup finds any plan by tier.
func Lookup(tier string) (Plan, error) {
	if tier == models.TierTrial {
		return Trial, nil
	}
	return Paid(tier)
}

// Expiry is the end of a plan that starts at from.
func (p Plan) Expiry(from time.Time) time.Time {
	return from.AddDate(0, p.Months, p.Days)
}

// Activate applies plan to the profile. A paid plan bought while another
// subscription is still running extends from the current expiry.
func Activate(p *models.Profile, plan Plan, now time.Time) {
	start := now
	if plan.Tier != models.TierTrial && p.SubscribedAt(now) {
		start = *p.SubscriptionExpiresAt
	}
	exp := plan.Expiry(start)
	p.SubscriptionActive = true
	p.SubscriptionTier = plan.Tier
	p.SubscriptionExpiresAt = &exp
	if plan.Tier == models.TierTrial {
		started := now
		p.TrialUsedAt = &started
	}
}
