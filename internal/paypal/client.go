// Package paypal wraps the two checkout operations the backend needs:
// creating an order that carries our correlation token, and capturing it.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vicraft/backend/internal/config"
)

type Client struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// CreateOrderInput describes one checkout order to create.
type CreateOrderInput struct {
	Amount      float64
	Currency    string
	Description string
	CustomID    string
	ReturnURL   string
	CancelURL   string
	BrandName   string
}

// CreatedOrder is the provider-side order handle.
type CreatedOrder struct {
	ID         string
	ApproveURL string
}

// Capture is the outcome of capturing an approved order.
type Capture struct {
	OrderID     string
	Status      string
	Amount      float64
	CustomID    string
	Description string
}

// Completed reports whether the payment actually went through.
func (c *Capture) Completed() bool {
	return c.Status == "COMPLETED"
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	return &Client{
		clientID: cfg.PayPalClientID,
		secret:   cfg.PayPalSecret,
		baseURL:  strings.TrimRight(cfg.PayPalAPIBase, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// CreateOrder creates a CAPTURE-intent checkout order and returns its id and
// the buyer approval link.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreatedOrder, error) {
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": currency,
				"value":         strconv.FormatFloat(in.Amount, 'f', 2, 64),
			},
			"description": in.Description,
			"custom_id":   in.CustomID,
		}},
		"application_context": map[string]string{
			"return_url":   in.ReturnURL,
			"cancel_url":   in.CancelURL,
			"brand_name":   in.BrandName,
			"user_action":  "PAY_NOW",
			"landing_page": "BILLING",
		},
	}

	var parsed struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := c.post(ctx, "/v2/checkout/orders", payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.ID == "" {
		return nil, fmt.Errorf("paypal response missing order id")
	}

	order := &CreatedOrder{ID: parsed.ID}
	for _, link := range parsed.Links {
		if link.Rel == "approve" {
			order.ApproveURL = link.Href
			break
		}
	}
	if order.ApproveURL == "" {
		return nil, fmt.Errorf("paypal response missing approval link")
	}
	return order, nil
}

// CaptureOrder captures an approved order and reads back the amount and the
// correlation token.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var parsed struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			CustomID    string `json:"custom_id"`
			Description string `json:"description"`
			Payments    struct {
				Captures []struct {
					Amount struct {
						Value string `json:"value"`
					} `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := c.post(ctx, "/v2/checkout/orders/"+orderID+"/capture", nil, &parsed); err != nil {
		return nil, err
	}

	capture := &Capture{
		OrderID: parsed.ID,
		Status:  parsed.Status,
	}
	if len(parsed.PurchaseUnits) > 0 {
		unit := parsed.PurchaseUnits[0]
		capture.CustomID = unit.CustomID
		capture.Description = unit.Description
		if len(unit.Payments.Captures) > 0 {
			if v, err := strconv.ParseFloat(unit.Payments.Captures[0].Amount.Value, 64); err == nil {
				capture.Amount = v
			}
		}
	}
	return capture, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal paypal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build paypal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.clientID, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read paypal response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("paypal call failed", "path", path, "status", resp.StatusCode, "body", string(rawBody))
		}
		return fmt.Errorf("paypal error: status=%d path=%s", resp.StatusCode, path)
	}

	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}
