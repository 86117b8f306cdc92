package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

// Subscription mirrors the billing provider state of a user. While IsActive is
// set the user bypasses the message quota entirely.
type Subscription struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	IsActive             bool      `gorm:"not null;default:false" json:"is_active"`
	StripeCustomerID     *string   `gorm:"type:varchar(255);uniqueIndex" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string   `gorm:"type:varchar(255);uniqueIndex" json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CustomerID returns the Stripe customer reference or "".
func (s *Subscription) CustomerID() string {
	if s == nil || s.StripeCustomerID == nil {
		return ""
	}
	return *s.StripeCustomerID
}
