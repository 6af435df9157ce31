package auth

import (
	"time"

	"myfleet/internal/models"
)

type State string

const (
	Unauthenticated State = "unauthenticated"
	OtpPending      State = "otp_pending"
	Authenticated   State = "authenticated"
	Onboarded       State = "onboarded"
	Subscribed      State = "subscribed"
)

// Resolve derives the lifecycle state. Subscription is read against now on
// every call and never cached.
func Resolve(p *models.Profile, otpPending bool, now time.Time) State {
	switch {
	case p == nil && otpPending:
		return OtpPending
	case p == nil:
		return Unauthenticated
	case !p.IsOnboarded:
		return Authenticated
	case p.SubscribedAt(now):
		return Subscribed
	}
	return Onboarded
}
