// Package payment runs subscription checkout through Cashfree and applies
// the result when the gateway calls back.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiVersion = "2023-08-01"

var errNotConfigured = errors.New("payment gateway credentials are not set")

type Customer struct {
	ID    string `json:"customer_id"`
	Phone string `json:"customer_phone"`
	Name  string `json:"customer_name,omitempty"`
	Email string `json:"customer_email,omitempty"`
}

type OrderRequest struct {
	OrderID  string   `json:"order_id"`
	Amount   float64  `json:"order_amount"`
	Currency string   `json:"order_currency"`
	Customer Customer `json:"customer_details"`
	Meta     struct {
		ReturnURL string `json:"return_url,omitempty"`
	} `json:"order_meta"`
	Note string `json:"order_note,omitempty"`
}

type GatewayOrder struct {
	CFOrderID        string `json:"cf_order_id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
	PaymentLink      string `json:"payment_link"`
}

// Gateway creates orders with the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	Mode() string
}

type CashfreeConfig struct {
	BaseURL string
	AppID   string
	Secret  string
	Timeout time.Duration
}

// CashfreeClient talks to the Cashfree PG orders API.
type CashfreeClient struct {
	cfg        CashfreeConfig
	httpClient *http.Client
}

func NewCashfreeClient(cfg CashfreeConfig) *CashfreeClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &CashfreeClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Mode is "production" for the live host and "sandbox" otherwise.
func (c *CashfreeClient) Mode() string {
	if c.cfg.BaseURL == "https://api.cashfree.com" {
		return "production"
	}
	return "sandbox"
}

func (c *CashfreeClient) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	if c.cfg.AppID == "" || c.cfg.Secret == "" {
		return nil, errNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/pg/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.cfg.AppID)
	httpReq.Header.Set("x-client-secret", c.cfg.Secret)
	httpReq.Header.Set("x-api-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create order failed: %s - %s", resp.Status, string(respBody))
	}

	var out GatewayOrder
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if out.PaymentSessionID == "" && out.PaymentLink == "" {
		return nil, fmt.Errorf("create order: gateway returned neither a session nor a link")
	}
	return &out, nil
}
