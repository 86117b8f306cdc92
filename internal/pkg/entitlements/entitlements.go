package entitlements

import (
	"time"

	"github.com/makkara/makkara/internal/pkg/env"
)

type Plan string

const (
	PlanAnonymous Plan = "anonymous"
	PlanFree      Plan = "free"
	PlanUnlimited Plan = "unlimited"
)

const (
	defaultAnonymousLimit     = 1
	defaultAuthenticatedLimit = 10
	defaultWindowHours        = 24
)

// PlanFor derives the caller's plan from authentication and subscription state.
func PlanFor(isAuthenticated, hasActiveSubscription bool) Plan {
	switch {
	case isAuthenticated && hasActiveSubscription:
		return PlanUnlimited
	case isAuthenticated:
		return PlanFree
	default:
		return PlanAnonymous
	}
}

// MessageLimit returns how many chat messages a caller may send per quota window.
// Authenticated callers get a materially higher ceiling than anonymous ones.
func MessageLimit(isAuthenticated bool) int {
	if isAuthenticated {
		return positive(env.GetEnvInt("QUOTA_LIMIT_AUTHENTICATED", defaultAuthenticatedLimit), defaultAuthenticatedLimit)
	}
	return positive(env.GetEnvInt("QUOTA_LIMIT_ANONYMOUS", defaultAnonymousLimit), defaultAnonymousLimit)
}

// QuotaWindow is the length of one counting window.
func QuotaWindow() time.Duration {
	hours := positive(env.GetEnvInt("QUOTA_WINDOW_HOURS", defaultWindowHours), defaultWindowHours)
	return time.Duration(hours) * time.Hour
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
