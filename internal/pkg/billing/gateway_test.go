package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGatewayWithBackend(StripeConfig{
		SecretKey:  "sk_test_123",
		ProductID:  "prod_123",
		PriceCents: 500,
		Currency:   "eur",
	}, backend)
}

func TestCreateCheckoutSession(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "7", r.PostForm.Get("metadata[userId]"))
		assert.Equal(t, "7", r.PostForm.Get("subscription_data[metadata][user_id]"))
		assert.Equal(t, "prod_123", r.PostForm.Get("line_items[0][price_data][product]"))
		assert.Equal(t, "500", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "month", r.PostForm.Get("line_items[0][price_data][recurring][interval]"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":     "cs_test_1",
			"object": "checkout.session",
			"url":    "https://checkout.stripe.com/c/pay/cs_test_1",
		})
	})

	url, err := g.CreateCheckoutSession(CheckoutInput{
		UserID:     7,
		SuccessURL: "https://makkara.example/chat?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://makkara.example/pricing",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", url)
}

func TestCreatePortalSession(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing_portal/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":     "bps_1",
			"object": "billing_portal.session",
			"url":    "https://billing.stripe.com/p/session/bps_1",
		})
	})

	url, err := g.CreatePortalSession("cus_123", "https://makkara.example/account/billing")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/bps_1", url)
}

func TestCheckoutRequiresConfiguration(t *testing.T) {
	g := NewStripeGatewayWithBackend(StripeConfig{}, nil)
	_, err := g.CreateCheckoutSession(CheckoutInput{UserID: 1})
	assert.Error(t, err)
	_, err = g.CreatePortalSession("cus_1", "/")
	assert.Error(t, err)
}
