package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
)

// IPaymentClient 金流供應商的不透明介面
// 本核心只管兩件事：開 session 拿轉址 url、查 session 是否已付款
type IPaymentClient interface {
	CreateCheckoutSession(ctx context.Context, lines []domain.CartLine) (CheckoutSession, error)
	VerifyPayment(ctx context.Context, sessionID string) (bool, error)
}

type PaymentError error

var (
	ErrSessionCreateFailed PaymentError = errors.New("failed to create checkout session")
	ErrSessionQueryFailed  PaymentError = errors.New("failed to query checkout session")
)

type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"url"`
}

// Client 走 HTTP 的金流端點
// 對應 /create-checkout-session 與 /session-status 兩個端點
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sessionLine struct {
	VariantID string `json:"product_variant_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name,omitempty"`
	UnitPrice string `json:"unit_price,omitempty"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, lines []domain.CartLine) (CheckoutSession, error) {
	payload := struct {
		CartItems []sessionLine `json:"cartItems"`
	}{CartItems: make([]sessionLine, 0, len(lines))}
	for _, l := range lines {
		sl := sessionLine{VariantID: l.VariantID, Quantity: l.Quantity}
		if l.Enrichment != nil {
			sl.Name = l.Enrichment.ProductName
			sl.UnitPrice = l.Enrichment.UnitPrice.String()
		}
		payload.CartItems = append(payload.CartItems, sl)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrSessionCreateFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-checkout-session", bytes.NewReader(body))
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrSessionCreateFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrSessionCreateFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CheckoutSession{}, fmt.Errorf("%w: status %d", ErrSessionCreateFailed, resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrSessionCreateFailed, err)
	}
	return session, nil
}

func (c *Client) VerifyPayment(ctx context.Context, sessionID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/session-status?session_id=%s", c.baseURL, url.QueryEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSessionQueryFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSessionQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrSessionQueryFailed, resp.StatusCode)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("%w: %v", ErrSessionQueryFailed, err)
	}
	return status.Status == "complete", nil
}

// 確保 Client 實現了 IPaymentClient 介面
var _ IPaymentClient = (*Client)(nil)
