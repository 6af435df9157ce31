package apperr

// Authentication errors
var (
	ErrInvalidPhone       = Validation("phone", "phone number must be exactly 10 digits")
	ErrInvalidOTPFormat   = Validation("code", "code must be 6 digits")
	ErrOTPInvalid         = Auth("invalid or expired code")
	ErrOTPMaxAttempts     = Auth("too many attempts, request a new code")
	ErrTokenInvalid       = Auth("invalid or expired token")
	ErrSessionNotFound    = Auth("session not found")
	ErrInsufficientRole   = Forbidden("insufficient permissions")
	ErrNotOnboarded       = Forbidden("complete onboarding first")
	ErrSubscriptionNeeded = Forbidden("an active subscription is required")
)

// Lifecycle errors
var (
	ErrAlreadyOnboarded = Conflict("profile is already onboarded")
	ErrTrialUnavailable = Conflict("the free trial is not available for this account")
	ErrSignatureInvalid = Auth("invalid webhook signature")
)
