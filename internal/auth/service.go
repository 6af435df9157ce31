// Package auth drives the login, onboarding and subscription lifecycle:
// unauthenticated, OTP pending, authenticated, onboarded, subscribed.
package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/session"
	"myfleet/internal/store"
	"myfleet/internal/subscription"
	"myfleet/internal/validation"
)

// Onboarding identity modes
const (
	IdentityPAN   = "pan"
	IdentityEmail = "email"
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

type ProfileStore interface {
	FindProfileByPhone(ctx context.Context, phone string) (*models.Profile, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
	CompleteOnboarding(ctx context.Context, profileID string, u store.OnboardingUpdate, vehicle *models.Vehicle) (*models.Profile, error)
	ClaimTrial(ctx context.Context, p *models.Profile) error
	SetLanguage(ctx context.Context, id, lang string) error
}

type SessionStore interface {
	HandleAuthStateChange(ctx context.Context, ev session.Event) (*session.Session, error)
}

type TokenIssuer interface {
	Issue(userID, role, sessionID string) (string, time.Time, error)
}

type Service struct {
	otp      *OTPStore
	profiles ProfileStore
	sessions SessionStore
	tokens   TokenIssuer
	identity string
	now      func() time.Time
}

func NewService(otp *OTPStore, profiles ProfileStore, sessions SessionStore, tokens TokenIssuer, identity string) *Service {
	if identity != IdentityEmail {
		identity = IdentityPAN
	}
	return &Service{
		otp:      otp,
		profiles: profiles,
		sessions: sessions,
		tokens:   tokens,
		identity: identity,
		now:      time.Now,
	}
}

// Identity reports which identity field onboarding asks for.
func (s *Service) Identity() string { return s.identity }

type OTPDispatch struct {
	Phone      string `json:"phone"`
	Sent       bool   `json:"sent"`
	RetryAfter int    `json:"retry_after"`
	State      State  `json:"state"`
}

// SendOTP moves a phone number into the OTP pending state. Retrying inside
// the resend window is safe and keeps the outstanding code.
func (s *Service) SendOTP(ctx context.Context, phone string) (*OTPDispatch, error) {
	phone = strings.TrimSpace(phone)
	if !validation.IsPhone(phone) {
		return nil, apperr.ErrInvalidPhone
	}

	wait, sent, err := s.otp.Issue(ctx, phone)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"phone": phone, "sent": sent}).Info("OTP requested")
	return &OTPDispatch{Phone: phone, Sent: sent, RetryAfter: int(wait.Seconds()), State: OtpPending}, nil
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	SessionID string          `json:"session_id"`
	Profile   *models.Profile `json:"profile"`
	State     State           `json:"state"`
	Created   bool            `json:"created"`
}

// VerifyOTP checks the code and opens a session. The first successful
// verification for a phone creates its profile.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (*LoginResult, error) {
	phone, code = strings.TrimSpace(phone), strings.TrimSpace(code)
	if !validation.IsPhone(phone) {
		return nil, apperr.ErrInvalidPhone
	}
	if !codePattern.MatchString(code) {
		return nil, apperr.ErrInvalidOTPFormat
	}

	claim, err := s.otp.Verify(ctx, phone, code)
	if err != nil {
		logrus.WithError(err).WithField("phone", phone).Warn("OTP verification failed")
		return nil, err
	}

	res, err := s.signIn(ctx, phone)
	if err != nil {
		// the caller may retry with the same code
		if rerr := s.otp.Release(context.WithoutCancel(ctx), claim); rerr != nil {
			logrus.WithError(rerr).WithField("phone", phone).Error("Claimed OTP could not be restored")
		}
		return nil, err
	}
	s.otp.Commit(ctx, claim)
	return res, nil
}

func (s *Service) signIn(ctx context.Context, phone string) (*LoginResult, error) {
	profile, created, err := s.findOrCreateProfile(ctx, phone)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.HandleAuthStateChange(ctx, session.Event{
		Kind:    session.SignedIn,
		Session: session.Session{UserID: profile.ID, Phone: profile.Phone, Role: profile.Role},
	})
	if err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(profile.ID, profile.Role, sess.ID)
	if err != nil {
		return nil, apperr.Wrap("issue token", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		SessionID: sess.ID,
		Profile:   profile,
		State:     Resolve(profile, false, s.now()),
		Created:   created,
	}, nil
}

func (s *Service) findOrCreateProfile(ctx context.Context, phone string) (*models.Profile, bool, error) {
	p, err := s.profiles.FindProfileByPhone(ctx, phone)
	if err == nil {
		return p, false, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, false, err
	}

	p = &models.Profile{Phone: phone, Role: models.RoleOwner, Language: "en"}
	if err := s.profiles.CreateProfile(ctx, p); err != nil {
		// a parallel verification for the same phone created it first
		if apperr.IsKind(err, apperr.KindDuplicate) {
			p, err = s.profiles.FindProfileByPhone(ctx, phone)
			return p, false, err
		}
		return nil, false, err
	}
	logrus.WithField("profile_id", p.ID).Info("Profile created")
	return p, true, nil
}

// Logout ends the session. Subscribers drop any cached data of the user.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	_, err := s.sessions.HandleAuthStateChange(ctx, session.Event{
		Kind:    session.SignedOut,
		Session: session.Session{ID: sessionID},
	})
	return err
}

type Status struct {
	Profile    *models.Profile `json:"profile"`
	State      State           `json:"state"`
	Subscribed bool            `json:"subscribed"`
	Identity   string          `json:"onboarding_identity"`
}

// Me resolves the current state of a signed-in profile.
func (s *Service) Me(ctx context.Context, profileID string) (*Status, error) {
	p, err := s.profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &Status{Profile: p, State: Resolve(p, false, now), Subscribed: p.SubscribedAt(now), Identity: s.identity}, nil
}

// SetLanguage stores the preferred display language.
func (s *Service) SetLanguage(ctx context.Context, profileID, lang string) error {
	for _, l := range models.Languages {
		if l == lang {
			return s.profiles.SetLanguage(ctx, profileID, lang)
		}
	}
	return apperr.Validation("language", "language must be one of: "+strings.Join(models.Languages, ", "))
}

// StartTrial grants the free trial to an onboarded profile without a running
// subscription. Each profile gets one trial.
func (s *Service) StartTrial(ctx context.Context, profileID string) (*models.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch Resolve(p, false, now) {
	case Authenticated:
		return nil, apperr.ErrNotOnboarded
	case Subscribed:
		return nil, apperr.ErrTrialUnavailable
	}
	if p.TrialUsedAt != nil {
		return nil, apperr.ErrTrialUnavailable
	}

	subscription.Activate(p, subscription.Trial, now)
	if err := s.profiles.ClaimTrial(ctx, p); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"profile_id": p.ID,
		"expires_at": p.SubscriptionExpiresAt,
	}).Info("Trial started")
	return p, nil
}
