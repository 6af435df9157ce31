package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/store"
)

const testSecret = "cf-secret"

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
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
	return store.New(db)
}

func fakeCashfree(t *testing.T, status int) (*httptest.Server, *OrderRequest) {
	t.Helper()
	var got OrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/orders", r.URL.Path)
		assert.Equal(t, "app-id", r.Header.Get("x-client-id"))
		assert.Equal(t, testSecret, r.Header.Get("x-client-secret"))
		assert.NotEmpty(t, r.Header.Get("x-api-version"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprintf(w, `{"cf_order_id":"2149","order_id":%q,"order_status":"ACTIVE","payment_session_id":"session_abc"}`, got.OrderID)
			return
		}
		fmt.Fprint(w, `{"message":"authentication Failed","code":"request_failed"}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestService(t *testing.T, status int) (*Service, *store.Store, *models.Profile, *OrderRequest) {
	t.Helper()
	s := setupTestStore(t)
	p := &models.Profile{Phone: "9876543210", FullName: "Kiran", Role: models.RoleOwner, IsOnboarded: true}
	require.NoError(t, s.CreateProfile(context.Background(), p))

	srv, got := fakeCashfree(t, status)
	gw := NewCashfreeClient(CashfreeConfig{BaseURL: srv.URL, AppID: "app-id", Secret: testSecret})
	svc := NewService(s, gw, testSecret)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, s, p, got
}

func webhookBody(orderID, typ string, amount float64) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"data":{"order":{"order_id":%q,"order_amount":%v},"payment":{"payment_status":"SUCCESS"}}}`, typ, orderID, amount))
}

func TestCheckout(t *testing.T) {
	svc, s, p, got := newTestService(t, http.StatusOK)

	res, err := svc.Checkout(context.Background(), p.ID, models.TierAnnual, "https://app.example/payment/success")
	require.NoError(t, err)
	assert.Equal(t, "session_abc", res.PaymentSessionID)
	assert.Equal(t, 24000.0, res.Amount)
	assert.Equal(t, "sandbox", res.Mode)

	assert.Equal(t, res.OrderID, got.OrderID)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, p.Phone, got.Customer.Phone)
	assert.Equal(t, "https://app.example/payment/success", got.Meta.ReturnURL)

	o, err := s.GetOrder(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.Equal(t, "session_abc", o.GatewaySessionID)
}

func TestCheckoutRejectsTrialAndGatewayFailure(t *testing.T) {
	svc, _, p, _ := newTestService(t, http.StatusOK)
	_, err := svc.Checkout(context.Background(), p.ID, models.TierTrial, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	svc, _, p, _ = newTestService(t, http.StatusUnauthorized)
	_, err = svc.Checkout(context.Background(), p.ID, models.TierSemiannual, "")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCollaborator))
}

func TestCheckoutWithoutCredentials(t *testing.T) {
	s := setupTestStore(t)
	p := &models.Profile{Phone: "9876543210", IsOnboarded: true}
	require.NoError(t, s.CreateProfile(context.Background(), p))
	svc := NewService(s, NewCashfreeClient(CashfreeConfig{BaseURL: "http://127.0.0.1:1"}), "")

	_, err := svc.Checkout(context.Background(), p.ID, models.TierAnnual, "")
	assert.True(t, apperr.IsKind(err, apperr.KindCollaborator))
}

func TestWebhookSettlesOnce(t *testing.T) {
	svc, s, p, _ := newTestService(t, http.StatusOK)
	ctx := context.Background()
	res, err := svc.Checkout(ctx, p.ID, models.TierSemiannual, "")
	require.NoError(t, err)

	body := webhookBody(res.OrderID, "PAYMENT_SUCCESS_WEBHOOK", 12000)
	ts := "1717243200"
	sig := Sign(testSecret, ts, body)

	out, err := svc.HandleWebhook(ctx, ts, sig, body)
	require.NoError(t, err)
	assert.True(t, out.Settled)
	require.NotNil(t, out.Profile)
	assert.Equal(t, models.TierSemiannual, out.Profile.SubscriptionTier)
	assert.Equal(t, time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC), out.Profile.SubscriptionExpiresAt.UTC())

	out, err = svc.HandleWebhook(ctx, ts, sig, body)
	require.NoError(t, err)
	assert.False(t, out.Settled)

	stored, err := s.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC), stored.SubscriptionExpiresAt.UTC())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, _, p, _ := newTestService(t, http.StatusOK)
	res, err := svc.Checkout(context.Background(), p.ID, models.TierAnnual, "")
	require.NoError(t, err)

	body := webhookBody(res.OrderID, "PAYMENT_SUCCESS_WEBHOOK", 24000)
	_, err = svc.HandleWebhook(context.Background(), "1", Sign("wrong", "1", body), body)
	assert.ErrorIs(t, err, apperr.ErrSignatureInvalid)
	_, err = svc.HandleWebhook(context.Background(), "", "", body)
	assert.ErrorIs(t, err, apperr.ErrSignatureInvalid)
}

func TestWebhookFailureAndAmountMismatch(t *testing.T) {
	svc, s, p, _ := newTestService(t, http.StatusOK)
	ctx := context.Background()
	res, err := svc.Checkout(ctx, p.ID, models.TierAnnual, "")
	require.NoError(t, err)

	short := webhookBody(res.OrderID, "PAYMENT_SUCCESS_WEBHOOK", 1)
	_, err = svc.HandleWebhook(ctx, "1", Sign(testSecret, "1", short), short)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	failed := webhookBody(res.OrderID, "PAYMENT_FAILED_WEBHOOK", 24000)
	out, err := svc.HandleWebhook(ctx, "2", Sign(testSecret, "2", failed), failed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, out.Status)

	o, err := s.GetOrder(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, o.Status)

	stored, err := s.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.SubscribedAt(time.Now()))
}
