package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/session"
	"myfleet/internal/store"
)

const phone = "9876543210"

var codeInMessage = regexp.MustCompile(`[0-9]{6}`)

type mockSMS struct {
	mu          sync.Mutex
	SendSMSFunc func(ctx context.Context, phone, message string) error
	messages    []string
}

func (m *mockSMS) SendSMS(ctx context.Context, phone, message string) error {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, phone, message)
	}
	return nil
}

func (m *mockSMS) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages)
	return codeInMessage.FindString(m.messages[len(m.messages)-1])
}

type mockTokens struct{}

func (mockTokens) Issue(userID, role, sessionID string) (string, time.Time, error) {
	return "token-" + userID + "-" + sessionID, time.Now().Add(time.Hour), nil
}

// flakyProfiles fails the next failures phone lookups.
type flakyProfiles struct {
	*store.Store
	failures int
}

func (f *flakyProfiles) FindProfileByPhone(ctx context.Context, phone string) (*models.Profile, error) {
	if f.failures > 0 {
		f.failures--
		return nil, apperr.Wrap("load profile", errors.New("connection reset by peer"))
	}
	return f.Store.FindProfileByPhone(ctx, phone)
}

type fixture struct {
	svc      *Service
	sms      *mockSMS
	mr       *miniredis.Miniredis
	store    *store.Store
	sessions *session.Store
	events   []session.Event
}

func newFixture(t *testing.T, identity string) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, store.Migrate(db))

	f := &fixture{sms: &mockSMS{}, mr: mr, store: store.New(db)}
	f.sessions = session.NewStore(rdb, time.Hour)
	f.sessions.Subscribe(func(ev session.Event) { f.events = append(f.events, ev) })

	otp := NewOTPStore(rdb, f.sms, OTPConfig{
		TTL:          5 * time.Minute,
		MaxAttempts:  3,
		ResendWindow: 30 * time.Second,
		HashCost:     bcrypt.MinCost,
	})
	f.svc = NewService(otp, f.store, f.sessions, mockTokens{}, identity)
	return f
}

func (f *fixture) login(t *testing.T) *LoginResult {
	t.Helper()
	_, err := f.svc.SendOTP(context.Background(), phone)
	require.NoError(t, err)
	res, err := f.svc.VerifyOTP(context.Background(), phone, f.sms.lastCode(t))
	require.NoError(t, err)
	return res
}

func TestSendOTPValidatesPhone(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	for _, bad := range []string{"", "98765", "98765432101", "98765abcde", "+919876543210"} {
		_, err := f.svc.SendOTP(context.Background(), bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidPhone, bad)
	}
	assert.Empty(t, f.sms.messages)
}

func TestSendOTPResendIsIdempotent(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()

	first, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	assert.True(t, first.Sent)
	assert.Equal(t, OtpPending, first.State)
	code := f.sms.lastCode(t)

	again, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	assert.False(t, again.Sent)
	assert.Positive(t, again.RetryAfter)
	assert.Len(t, f.sms.messages, 1)

	f.mr.FastForward(31 * time.Second)
	third, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	assert.True(t, third.Sent)
	assert.Len(t, f.sms.messages, 2)

	newCode := f.sms.lastCode(t)
	if newCode != code {
		_, err = f.svc.VerifyOTP(ctx, phone, code)
		assert.ErrorIs(t, err, apperr.ErrOTPInvalid)
	}
}

func TestSendOTPSMSFailureLeavesNoCode(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	f.sms.SendSMSFunc = func(context.Context, string, string) error { return errors.New("gateway down") }

	_, err := f.svc.SendOTP(context.Background(), phone)
	assert.True(t, apperr.IsKind(err, apperr.KindCollaborator))

	pending, err := f.svc.otp.Pending(context.Background(), phone)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestVerifyOTPGate(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	code := f.sms.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	_, err = f.svc.VerifyOTP(ctx, phone, wrong)
	assert.ErrorIs(t, err, apperr.ErrOTPInvalid)
	_, err = f.store.FindProfileByPhone(ctx, phone)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "no profile before a correct code")
	assert.Empty(t, f.events, "no session before a correct code")

	res, err := f.svc.VerifyOTP(ctx, phone, code)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, res.State)
	assert.True(t, res.Created)
	assert.False(t, res.Profile.IsOnboarded)
	assert.NotEmpty(t, res.Token)
	require.Len(t, f.events, 1)
	assert.Equal(t, session.SignedIn, f.events[0].Kind)

	_, err = f.svc.VerifyOTP(ctx, phone, code)
	assert.ErrorIs(t, err, apperr.ErrOTPInvalid, "a code works once")
	assert.Len(t, f.events, 1)
}

func TestVerifyOTPKeepsCodeWhenSignInFails(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()
	profiles := &flakyProfiles{Store: f.store, failures: 1}
	svc := NewService(f.svc.otp, profiles, f.sessions, mockTokens{}, IdentityPAN)

	_, err := svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	code := f.sms.lastCode(t)

	_, err = svc.VerifyOTP(ctx, phone, code)
	assert.True(t, apperr.IsKind(err, apperr.KindCollaborator))
	assert.Empty(t, f.events)
	pending, err := f.svc.otp.Pending(ctx, phone)
	require.NoError(t, err)
	assert.True(t, pending, "the code survives a failed sign-in")

	res, err := svc.VerifyOTP(ctx, phone, code)
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.Len(t, f.events, 1)
	assert.False(t, f.mr.Exists(attemptsKey(phone)))
	assert.False(t, f.mr.Exists(resendKey(phone)))

	_, err = svc.VerifyOTP(ctx, phone, code)
	assert.ErrorIs(t, err, apperr.ErrOTPInvalid)
}

func TestVerifyOTPReusesProfile(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	first := f.login(t)
	f.mr.FastForward(time.Minute)
	second := f.login(t)

	assert.False(t, second.Created)
	assert.Equal(t, first.Profile.ID, second.Profile.ID)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestVerifyOTPMaxAttempts(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()
	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	code := f.sms.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		_, err = f.svc.VerifyOTP(ctx, phone, wrong)
		assert.ErrorIs(t, err, apperr.ErrOTPInvalid)
	}
	_, err = f.svc.VerifyOTP(ctx, phone, code)
	assert.ErrorIs(t, err, apperr.ErrOTPMaxAttempts)

	_, err = f.svc.VerifyOTP(ctx, phone, code)
	assert.ErrorIs(t, err, apperr.ErrOTPInvalid, "code is discarded after too many attempts")
}

func TestVerifyOTPExpiredAndMalformed(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()
	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	code := f.sms.lastCode(t)

	_, err = f.svc.VerifyOTP(ctx, phone, "12ab")
	assert.ErrorIs(t, err, apperr.ErrInvalidOTPFormat)

	f.mr.FastForward(6 * time.Minute)
	_, err = f.svc.VerifyOTP(ctx, phone, code)
	assert.ErrorIs(t, err, apperr.ErrOTPInvalid)
}

func TestOnboardingCreatesOneVehicle(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()
	res := f.login(t)

	in := OnboardingInput{FullName: " Asha Rao ", VehicleNumber: "ka 05 mn 7777", PAN: "abcde1234f"}
	p, err := f.svc.CompleteOnboarding(ctx, res.Profile.ID, in)
	require.NoError(t, err)
	assert.True(t, p.IsOnboarded)
	assert.Equal(t, "Asha Rao", p.FullName)
	assert.Equal(t, "ABCDE1234F", p.PAN)

	_, err = f.svc.CompleteOnboarding(ctx, res.Profile.ID, in)
	assert.ErrorIs(t, err, apperr.ErrAlreadyOnboarded)

	vs, err := f.store.ListVehicles(ctx, res.Profile.ID)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "KA05MN7777", vs[0].RegistrationNumber)
	assert.Equal(t, models.DefaultVehicleModel, vs[0].Model)
	assert.Equal(t, 0, vs[0].Documents.Uploaded())
	assert.Equal(t, models.DocMissing, vs[0].Documents.Insurance.Status)

	st, err := f.svc.Me(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, Onboarded, st.State)
}

func TestOnboardingValidation(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		in       OnboardingInput
		field    string
	}{
		{"missing name", IdentityPAN, OnboardingInput{VehicleNumber: "KA01AB1234", PAN: "ABCDE1234F"}, "full_name"},
		{"missing vehicle", IdentityPAN, OnboardingInput{FullName: "Asha", PAN: "ABCDE1234F"}, "vehicle_number"},
		{"vehicle with symbols", IdentityPAN, OnboardingInput{FullName: "Asha", VehicleNumber: "KA01/AB#1234", PAN: "ABCDE1234F"}, "vehicle_number"},
		{"missing pan", IdentityPAN, OnboardingInput{FullName: "Asha", VehicleNumber: "KA01AB1234"}, "pan"},
		{"short pan", IdentityPAN, OnboardingInput{FullName: "Asha", VehicleNumber: "KA01AB1234", PAN: "ABC"}, "pan"},
		{"missing email", IdentityEmail, OnboardingInput{FullName: "Asha", VehicleNumber: "KA01AB1234", PAN: "ABCDE1234F"}, "email"},
		{"bad email", IdentityEmail, OnboardingInput{FullName: "Asha", VehicleNumber: "KA01AB1234", Email: "asha@"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.identity)
			res := f.login(t)

			_, err := f.svc.CompleteOnboarding(context.Background(), res.Profile.ID, tt.in)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Equal(t, tt.field, ae.Field)

			p, err := f.store.GetProfile(context.Background(), res.Profile.ID)
			require.NoError(t, err)
			assert.False(t, p.IsOnboarded)
		})
	}
}

func TestEmailIdentityOnboarding(t *testing.T) {
	f := newFixture(t, IdentityEmail)
	res := f.login(t)

	p, err := f.svc.CompleteOnboarding(context.Background(), res.Profile.ID, OnboardingInput{
		FullName: "Asha", VehicleNumber: "KA01AB1234", Email: "asha@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Empty(t, p.PAN)
}

func TestStartTrial(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()
	res := f.login(t)
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.StartTrial(ctx, res.Profile.ID)
	assert.ErrorIs(t, err, apperr.ErrNotOnboarded)

	_, err = f.svc.CompleteOnboarding(ctx, res.Profile.ID, OnboardingInput{FullName: "Asha", VehicleNumber: "KA01AB1234", PAN: "ABCDE1234F"})
	require.NoError(t, err)

	p, err := f.svc.StartTrial(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierTrial, p.SubscriptionTier)
	assert.Equal(t, now.AddDate(0, 0, 30), *p.SubscriptionExpiresAt)

	_, err = f.svc.StartTrial(ctx, res.Profile.ID)
	assert.ErrorIs(t, err, apperr.ErrTrialUnavailable)

	st, err := f.svc.Me(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, Subscribed, st.State)

	f.svc.now = func() time.Time { return now.AddDate(0, 0, 31) }
	st, err = f.svc.Me(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, Onboarded, st.State, "expiry is evaluated on read")
	assert.False(t, st.Subscribed)

	_, err = f.svc.StartTrial(ctx, res.Profile.ID)
	assert.ErrorIs(t, err, apperr.ErrTrialUnavailable, "a lapsed trial cannot be restarted")
	stored, err := f.store.GetProfile(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 30), stored.SubscriptionExpiresAt.UTC())
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()
	res := f.login(t)

	require.NoError(t, f.svc.Logout(ctx, res.SessionID))

	_, err := f.sessions.Get(ctx, res.SessionID)
	assert.ErrorIs(t, err, apperr.ErrSessionNotFound)
	require.Len(t, f.events, 2)
	assert.Equal(t, session.SignedOut, f.events[1].Kind)
	assert.Equal(t, res.Profile.ID, f.events[1].Session.UserID)

	assert.ErrorIs(t, f.svc.Logout(ctx, res.SessionID), apperr.ErrSessionNotFound)
}

func TestSetLanguage(t *testing.T) {
	f := newFixture(t, IdentityPAN)
	ctx := context.Background()
	res := f.login(t)

	require.NoError(t, f.svc.SetLanguage(ctx, res.Profile.ID, "kn"))
	p, err := f.store.GetProfile(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "kn", p.Language)

	err = f.svc.SetLanguage(ctx, res.Profile.ID, "fr")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestResolve(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	assert.Equal(t, Unauthenticated, Resolve(nil, false, now))
	assert.Equal(t, OtpPending, Resolve(nil, true, now))
	assert.Equal(t, Authenticated, Resolve(&models.Profile{}, false, now))
	assert.Equal(t, Onboarded, Resolve(&models.Profile{IsOnboarded: true}, false, now))
	assert.Equal(t, Subscribed, Resolve(&models.Profile{IsOnboarded: true, SubscriptionActive: true, SubscriptionExpiresAt: &future}, false, now))
}
