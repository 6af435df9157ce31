package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"myfleet/internal/auth"
	"myfleet/internal/config"
	"myfleet/internal/controllers"
	"myfleet/internal/fleet"
	"myfleet/internal/logger"
	"myfleet/internal/middleware"
	"myfleet/internal/notify"
	"myfleet/internal/payment"
	"myfleet/internal/routes"
	"myfleet/internal/session"
	"myfleet/internal/store"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Database unavailable")
	}
	rdb, err := config.OpenRedis(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Redis unavailable")
	}
	defer rdb.Close()

	st := store.New(db)
	sessions := session.NewStore(rdb, cfg.JWTTTL)
	tokens := middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	otp := auth.NewOTPStore(rdb, notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom), auth.OTPConfig{
		TTL:          cfg.OTPTTL,
		MaxAttempts:  cfg.OTPMaxAttempts,
		ResendWindow: cfg.OTPResendWindow,
	})
	authSvc := auth.NewService(otp, st, sessions, tokens, cfg.OnboardingIdentity)

	registry := fleet.NewRegistry(st)
	sessions.Subscribe(registry.HandleSessionEvent)

	gateway := payment.NewCashfreeClient(payment.CashfreeConfig{
		BaseURL: cfg.CashfreeBaseURL,
		AppID:   cfg.CashfreeAppID,
		Secret:  cfg.CashfreeSecret,
	})
	payments := payment.NewService(st, gateway, cfg.CashfreeSecret)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
			}
		}
	}()

	r := routes.SetupRouter(routes.Deps{
		DB:            db,
		Tokens:        tokens,
		Sessions:      sessions,
		Profiles:      st,
		Limiter:       limiter,
		Auth:          controllers.NewAuthController(authSvc),
		Subscriptions: controllers.NewSubscriptionController(authSvc, payments, cfg.PaymentReturnURL),
		Fleet:         controllers.NewFleetController(registry),
		Overview:      controllers.NewOverviewHub(registry),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           middleware.EnableCORS(cfg.CORSOrigins, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server stopped")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
