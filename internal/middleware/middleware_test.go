package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/session"
)

type fakeSessions struct {
	GetFunc func(ctx context.Context, id string) (*session.Session, error)
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*session.Session, error) {
	return f.GetFunc(ctx, id)
}

type fakeProfiles struct {
	profile *models.Profile
}

func (f *fakeProfiles) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	if f.profile == nil || f.profile.ID != id {
		return nil, apperr.NotFound("profile")
	}
	return f.profile, nil
}

func init() { gin.SetMode(gin.TestMode) }

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	tok, exp, err := tm.Issue("user-1", models.RoleOwner, "sess-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleOwner, claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	other := NewTokenManager("other", time.Hour)
	forged, _, err := other.Issue("user-1", models.RoleOwner, "sess-1")
	require.NoError(t, err)
	_, err = tm.Parse(forged)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)

	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := tm.Issue("user-1", models.RoleOwner, "sess-1")
	require.NoError(t, err)
	tm.now = time.Now
	_, err = tm.Parse(expired)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u", "session_id": "s"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Parse(unsigned)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func serve(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	sessions := &fakeSessions{GetFunc: func(_ context.Context, id string) (*session.Session, error) {
		if id != "sess-1" {
			return nil, apperr.ErrSessionNotFound
		}
		return &session.Session{ID: id, UserID: "user-1"}, nil
	}}

	r := gin.New()
	r.GET("/x", RequireAuth(tm, sessions), RequireRole(models.RoleOwner), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserID))
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)

	ok, _, _ := tm.Issue("user-1", models.RoleOwner, "sess-1")
	w := serve(r, ok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())

	gone, _, _ := tm.Issue("user-1", models.RoleOwner, "sess-2")
	assert.Equal(t, http.StatusUnauthorized, serve(r, gone).Code)

	stolen, _, _ := tm.Issue("user-2", models.RoleOwner, "sess-1")
	assert.Equal(t, http.StatusUnauthorized, serve(r, stolen).Code)

	driver, _, _ := tm.Issue("user-1", models.RoleDriver, "sess-1")
	assert.Equal(t, http.StatusForbidden, serve(r, driver).Code)
}

func TestRequireSubscription(t *testing.T) {
	now := time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)
	p := &models.Profile{}
	p.ID = "user-1"
	profiles := &fakeProfiles{profile: p}

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		c.Set(CtxUserID, "user-1")
		c.Next()
	}, RequireSubscription(profiles, func() time.Time { return now }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusForbidden, serve(r, "").Code)

	p.IsOnboarded = true
	assert.Equal(t, http.StatusForbidden, serve(r, "").Code)

	exp := now.Add(time.Hour)
	p.SubscriptionActive = true
	p.SubscriptionExpiresAt = &exp
	assert.Equal(t, http.StatusOK, serve(r, "").Code)

	past := now.Add(-time.Minute)
	p.SubscriptionExpiresAt = &past
	assert.Equal(t, http.StatusForbidden, serve(r, "").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, rl.allow("a"))

	now = now.Add(time.Hour)
	rl.Cleanup(time.Minute)
	assert.Empty(t, rl.visitors)
}

func TestEnableCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := EnableCORS([]string{"https://app.example"}, next)

	req := httptest.NewRequest(http.MethodOptions, "/api/vehicles", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	EnableCORS([]string{"*"}, next).ServeHTTP(w, req)
	assert.Equal(t, "https://evil.example", w.Header().Get("Access-Control-Allow-Origin"))
}
