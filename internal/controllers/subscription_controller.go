package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"myfleet/internal/apperr"
	"myfleet/internal/auth"
	"myfleet/internal/metrics"
	"myfleet/internal/payment"
	"myfleet/internal/subscription"
)

const maxWebhookBody = 64 << 10

type SubscriptionController struct {
	auth      *auth.Service
	payments  *payment.Service
	returnURL string
}

func NewSubscriptionController(a *auth.Service, p *payment.Service, returnURL string) *SubscriptionController {
	return &SubscriptionController{auth: a, payments: p, returnURL: returnURL}
}

func (s *SubscriptionController) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": subscription.Catalogue()})
}

func (s *SubscriptionController) StartTrial(c *gin.Context) {
	p, err := s.auth.StartTrial(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "expires_at": p.SubscriptionExpiresAt})
}

func (s *SubscriptionController) Checkout(c *gin.Context) {
	var body struct {
		Plan      string `json:"plan"`
		ReturnURL string `json:"return_url"`
	}
	if !bindJSON(c, &body) {
		return
	}
	returnURL := body.ReturnURL
	if returnURL == "" {
		returnURL = s.returnURL
	}
	res, err := s.payments.Checkout(c.Request.Context(), ownerID(c), body.Plan, returnURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Webhook receives gateway callbacks. The signature covers the raw body, so
// it is read before any decoding.
func (s *SubscriptionController) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, apperr.Validation("body", "could not read body"))
		return
	}
	res, err := s.payments.HandleWebhook(c.Request.Context(),
		c.GetHeader("x-webhook-timestamp"), c.GetHeader("x-webhook-signature"), body)
	if err != nil {
		metrics.PaymentWebhook("rejected")
		respondError(c, err)
		return
	}
	metrics.PaymentWebhook(res.Status)
	c.JSON(http.StatusOK, res)
}
