package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// ErrInvalidSignature is returned for missing, malformed or mismatching
// Stripe-Signature headers. Nothing may be written for such payloads.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifyStripeSignature checks the Stripe-Signature header against payload
// and returns the decoded event.
func VerifyStripeSignature(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing signature or secret", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}
