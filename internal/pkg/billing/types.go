package billing

// SubscriptionState is the provider-agnostic shape applied to a user's
// Subscription row when a billing event arrives.
type SubscriptionState struct {
	UserID         uint
	IsActive       bool
	CustomerID     string
	SubscriptionID string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// CheckoutInput describes a subscription checkout for one user.
type CheckoutInput struct {
	UserID     uint
	Email      string
	SuccessURL string
	CancelURL  string
}
