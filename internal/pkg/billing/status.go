package billing

import (
	"strings"
	"time"
)

// IsActiveEquivalent reports whether a Stripe subscription status currently
// grants pro entitlement. True only for "active" and "trialing"; every other
// status (canceled, past_due, unpaid, incomplete, incomplete_expired,
// paused, or anything Stripe adds later) is non-entitling. This predicate is
// the single place pro eligibility is decided.
func IsActiveEquivalent(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	default:
		return false
	}
}

// UnixToTime converts provider epoch seconds to a UTC timestamp pointer,
// nil when the provider sent no value.
func UnixToTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// ISOMillisLayout renders UTC timestamps the way the JSON API exposes
// current_period_end, with millisecond precision.
const ISOMillisLayout = "2006-01-02T15:04:05.000Z"

// FormatTimeISO renders a nullable timestamp for JSON responses.
func FormatTimeISO(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(ISOMillisLayout)
}
