package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/create-checkout-session", r.URL.Path)

		var payload struct {
			CartItems []struct {
				VariantID string `json:"product_variant_id"`
				Quantity  int    `json:"quantity"`
				UnitPrice string `json:"unit_price"`
			} `json:"cartItems"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Len(t, payload.CartItems, 1)
		assert.Equal(t, "sku-1", payload.CartItems[0].VariantID)
		assert.Equal(t, "299", payload.CartItems[0].UnitPrice)

		json.NewEncoder(w).Encode(CheckoutSession{SessionID: "cs_123", RedirectURL: "https://pay.example/cs_123"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	lines := []domain.CartLine{{
		VariantID: "sku-1",
		Quantity:  2,
		Enrichment: &domain.Enrichment{
			ProductName: "Cool T-Shirt",
			UnitPrice:   decimal.NewFromInt(299),
		},
	}}

	session, err := client.CreateCheckoutSession(context.Background(), lines)
	assert.NoError(t, err)
	assert.Equal(t, "cs_123", session.SessionID)
	assert.Equal(t, "https://pay.example/cs_123", session.RedirectURL)
}

func TestCreateCheckoutSessionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.CreateCheckoutSession(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionCreateFailed)
}

func TestVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session-status", r.URL.Path)
		status := "open"
		if r.URL.Query().Get("session_id") == "cs_paid" {
			status = "complete"
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	paid, err := client.VerifyPayment(context.Background(), "cs_paid")
	assert.NoError(t, err)
	assert.True(t, paid)

	paid, err = client.VerifyPayment(context.Background(), "cs_open")
	assert.NoError(t, err)
	assert.False(t, paid)
}
