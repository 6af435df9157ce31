package routes

import (
	"net/http"
	"time"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"myfleet/internal/controllers"
	"myfleet/internal/metrics"
	"myfleet/internal/middleware"
	"myfleet/internal/models"
)

// Deps is everything the router hands to handlers and middleware.
type Deps struct {
	DB            *gorm.DB
	Tokens        *middleware.TokenManager
	Sessions      middleware.SessionReader
	Profiles      middleware.ProfileReader
	Limiter       *middleware.RateLimiter
	Auth          *controllers.AuthController
	Subscriptions *controllers.SubscriptionController
	Fleet         *controllers.FleetController
	Overview      *controllers.OverviewHub
	Now           func() time.Time
}

// SetupRouter builds the engine. The caller owns serving it.
func SetupRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger(
		ginlog.WithSkipPath([]string{"/healthz", "/metrics"}),
		ginlog.WithUTC(true),
	))
	r.Use(metrics.Middleware())

	r.GET("/healthz", healthz(d.DB))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	AuthRoutes(api, d)
	SubscriptionRoutes(api, d)
	VehicleRoutes(api, d)
	DriverRoutes(api, d)
	TransactionRoutes(api, d)
	TripRoutes(api, d)
	ReportRoutes(api, d)
	WebSocketRoutes(r, d)

	return r
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": "database unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func authed(d Deps) gin.HandlerFunc {
	return middleware.RequireAuth(d.Tokens, d.Sessions)
}

// fleetGroup is the middleware chain for owner-only, subscribed routes.
func fleetGroup(api *gin.RouterGroup, path string, d Deps) *gin.RouterGroup {
	g := api.Group(path)
	g.Use(authed(d), middleware.RequireRole(models.RoleOwner), middleware.RequireSubscription(d.Profiles, d.Now))
	return g
}
