package billing

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/makkara/makkara/internal/pkg/env"
)

// Gateway creates externally hosted payment pages.
type Gateway interface {
	CreateCheckoutSession(in CheckoutInput) (string, error)
	CreatePortalSession(customerID, returnURL string) (string, error)
}

// StripeConfig holds the product the checkout sells.
type StripeConfig struct {
	SecretKey  string
	ProductID  string
	PriceCents int64
	Currency   string
}

// StripeConfigFromEnv reads STRIPE_* settings.
func StripeConfigFromEnv() StripeConfig {
	return StripeConfig{
		SecretKey:  env.GetEnv("STRIPE_SECRET_KEY", ""),
		ProductID:  env.GetEnv("STRIPE_PRODUCT_ID", ""),
		PriceCents: int64(env.GetEnvInt("STRIPE_PRICE_CENTS", 500)),
		Currency:   env.GetEnv("STRIPE_CURRENCY", "eur"),
	}
}

// StripeGateway talks to the Stripe API.
type StripeGateway struct {
	cfg      StripeConfig
	checkout *checkoutsession.Client
	portal   *portalsession.Client
}

// NewStripeGateway uses the default Stripe API backend.
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	return NewStripeGatewayWithBackend(cfg, stripe.GetBackend(stripe.APIBackend))
}

// NewStripeGatewayWithBackend allows pointing the gateway at another backend.
func NewStripeGatewayWithBackend(cfg StripeConfig, backend stripe.Backend) *StripeGateway {
	return &StripeGateway{
		cfg:      cfg,
		checkout: &checkoutsession.Client{B: backend, Key: cfg.SecretKey},
		portal:   &portalsession.Client{B: backend, Key: cfg.SecretKey},
	}
}

func (g *StripeGateway) CreateCheckoutSession(in CheckoutInput) (string, error) {
	if g.cfg.SecretKey == "" || g.cfg.ProductID == "" {
		return "", errors.New("stripe checkout is not configured")
	}
	userID := strconv.FormatUint(uint64(in.UserID), 10)

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.cfg.Currency),
				Product:    stripe.String(g.cfg.ProductID),
				UnitAmount: stripe.Int64(g.cfg.PriceCents),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataSubscriptionUserID: userID},
		},
	}
	if in.Email != "" {
		params.CustomerEmail = stripe.String(in.Email)
	}
	params.AddMetadata(metadataCheckoutUserID, userID)

	cs, err := g.checkout.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return cs.URL, nil
}

func (g *StripeGateway) CreatePortalSession(customerID, returnURL string) (string, error) {
	if g.cfg.SecretKey == "" {
		return "", errors.New("stripe is not configured")
	}
	ps, err := g.portal.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return ps.URL, nil
}
