package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/subscription"
)

// OrderStore is the persistence checkout needs.
type OrderStore interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	CreateOrder(ctx context.Context, o *models.PaymentOrder) error
	SaveOrder(ctx context.Context, o *models.PaymentOrder) error
	GetOrder(ctx context.Context, id string) (*models.PaymentOrder, error)
	SettleOrder(ctx context.Context, orderID string, paidAt time.Time, apply func(*models.Profile, *models.PaymentOrder) error) (bool, *models.Profile, error)
	FailOrder(ctx context.Context, orderID string) error
}

type Service struct {
	store   OrderStore
	gateway Gateway
	secret  string
	now     func() time.Time
}

func NewService(store OrderStore, gateway Gateway, webhookSecret string) *Service {
	return &Service{store: store, gateway: gateway, secret: webhookSecret, now: time.Now}
}

type CheckoutResult struct {
	OrderID          string  `json:"order_id"`
	Plan             string  `json:"plan"`
	Amount           float64 `json:"amount"`
	PaymentSessionID string  `json:"payment_session_id,omitempty"`
	PaymentLink      string  `json:"payment_link,omitempty"`
	Mode             string  `json:"mode"`
}

// Checkout opens a pending order for a paid plan and registers it with the
// gateway.
func (s *Service) Checkout(ctx context.Context, ownerID, tier, returnURL string) (*CheckoutResult, error) {
	plan, err := subscription.Paid(tier)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !p.IsOnboarded {
		return nil, apperr.ErrNotOnboarded
	}

	order := &models.PaymentOrder{
		OwnerID: ownerID,
		Plan:    plan.Tier,
		Amount:  plan.Amount,
		Status:  models.OrderPending,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	req := OrderRequest{
		OrderID:  order.ID,
		Amount:   plan.Amount,
		Currency: "INR",
		Customer: Customer{ID: p.ID, Phone: p.Phone, Name: p.FullName, Email: p.Email},
		Note:     plan.Name + " subscription",
	}
	req.Meta.ReturnURL = returnURL

	gw, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Gateway order creation failed")
		if ferr := s.store.FailOrder(ctx, order.ID); ferr != nil {
			logrus.WithError(ferr).WithField("order_id", order.ID).Warn("Could not mark order failed")
		}
		return nil, apperr.Collaborator("checkout", err)
	}

	order.GatewaySessionID = gw.PaymentSessionID
	order.PaymentLink = gw.PaymentLink
	if err := s.store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"owner_id": ownerID,
		"plan":     plan.Tier,
	}).Info("Checkout started")

	return &CheckoutResult{
		OrderID:          order.ID,
		Plan:             plan.Tier,
		Amount:           plan.Amount,
		PaymentSessionID: gw.PaymentSessionID,
		PaymentLink:      gw.PaymentLink,
		Mode:             s.gateway.Mode(),
	}, nil
}

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string  `json:"order_id"`
			Amount  float64 `json:"order_amount"`
		} `json:"order"`
		Payment struct {
			Status string `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}

// WebhookResult reports what a callback did.
type WebhookResult struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Settled bool            `json:"settled"`
	Profile *models.Profile `json:"-"`
}

// Sign computes the webhook signature for a timestamp and raw body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// HandleWebhook verifies and applies a gateway callback. Replays of a
// success are no-ops.
func (s *Service) HandleWebhook(ctx context.Context, timestamp, signature string, body []byte) (*WebhookResult, error) {
	if s.secret == "" || timestamp == "" || signature == "" {
		return nil, apperr.ErrSignatureInvalid
	}
	if !hmac.Equal([]byte(Sign(s.secret, timestamp, body)), []byte(signature)) {
		return nil, apperr.ErrSignatureInvalid
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, apperr.Validation("body", "webhook body is not valid JSON")
	}
	orderID := p.Data.Order.OrderID
	if orderID == "" {
		return nil, apperr.Validation("order_id", "order_id is required")
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"order_id": orderID, "type": p.Type})

	if !strings.HasPrefix(p.Type, "PAYMENT_SUCCESS") {
		if err := s.store.FailOrder(ctx, orderID); err != nil {
			return nil, err
		}
		log.Info("Payment not completed")
		return &WebhookResult{OrderID: orderID, Status: models.OrderFailed}, nil
	}

	if math.Abs(p.Data.Order.Amount-order.Amount) > 0.005 {
		log.WithField("amount", p.Data.Order.Amount).Warn("Webhook amount does not match order")
		return nil, apperr.Conflict("payment amount does not match the order")
	}

	now := s.now()
	settled, profile, err := s.store.SettleOrder(ctx, orderID, now, func(pr *models.Profile, o *models.PaymentOrder) error {
		plan, err := subscription.Paid(o.Plan)
		if err != nil {
			return err
		}
		subscription.Activate(pr, plan, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled {
		log.WithField("owner_id", order.OwnerID).Info("Subscription activated")
	} else {
		log.Debug("Order already settled")
	}
	return &WebhookResult{OrderID: orderID, Status: models.OrderPaid, Settled: settled, Profile: profile}, nil
}
