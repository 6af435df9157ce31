package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/session"
)

// Context keys set by RequireAuth.
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxSessionID = "session_id"
	CtxProfile   = "profile"
)

type Claims struct {
	UserID    string
	Role      string
	SessionID string
	ExpiresAt time.Time
}

// TokenManager signs and checks HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) Issue(userID, role, sessionID string) (string, time.Time, error) {
	exp := m.now().Add(m.ttl)
	claims := jwt.MapClaims{
		"user_id":    userID,
		"role":       role,
		"session_id": sessionID,
		"exp":        exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, apperr.ErrTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.ErrTokenInvalid
	}
	out := &Claims{}
	out.UserID, _ = claims["user_id"].(string)
	out.Role, _ = claims["role"].(string)
	out.SessionID, _ = claims["session_id"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if out.UserID == "" || out.SessionID == "" {
		return nil, apperr.ErrTokenInvalid
	}
	return out, nil
}

// SessionReader looks up live sessions.
type SessionReader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// ProfileReader loads the caller's profile.
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.Status(err), gin.H{"error": apperr.Message(err)})
}

func bearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	// browsers cannot set headers on a websocket handshake
	return c.Query("token")
}

// RequireAuth ensures a valid JWT whose session is still live.
func RequireAuth(tm *TokenManager, sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearer(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := tm.Parse(tokenString)
		if err != nil {
			abort(c, err)
			return
		}
		sess, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			abort(c, err)
			return
		}
		if sess.UserID != claims.UserID {
			abort(c, apperr.ErrTokenInvalid)
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxSessionID, claims.SessionID)
		c.Next()
	}
}

// RequireRole lets only the given role through. It runs after RequireAuth.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != requiredRole {
			abort(c, apperr.ErrInsufficientRole)
			return
		}
		c.Next()
	}
}

func loadProfile(c *gin.Context, profiles ProfileReader) (*models.Profile, bool) {
	p, err := profiles.GetProfile(c.Request.Context(), c.GetString(CtxUserID))
	if err != nil {
		abort(c, err)
		return nil, false
	}
	c.Set(CtxProfile, p)
	return p, true
}

// RequireOnboarded blocks profiles that have not finished onboarding.
func RequireOnboarded(profiles ProfileReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := loadProfile(c, profiles)
		if !ok {
			return
		}
		if !p.IsOnboarded {
			abort(c, apperr.ErrNotOnboarded)
			return
		}
		c.Next()
	}
}

// RequireSubscription blocks profiles without a running subscription. Expiry
// is checked on every request.
func RequireSubscription(profiles ProfileReader, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := loadProfile(c, profiles)
		if !ok {
			return
		}
		if !p.IsOnboarded {
			abort(c, apperr.ErrNotOnboarded)
			return
		}
		if !p.SubscribedAt(now()) {
			abort(c, apperr.ErrSubscriptionNeeded)
			return
		}
		c.Next()
	}
}
