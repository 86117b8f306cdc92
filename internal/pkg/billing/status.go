package billing

import (
	"strconv"
	"strings"
)

// isEntitlingStatus reports whether a Stripe subscription status unlocks
// unlimited messages. Only "active" counts; trials and dunning do not.
func isEntitlingStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == "active"
}

// parseUserID reads a user id written into Stripe metadata at checkout.
func parseUserID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
