package renewal

import (
	"time"
)

// DefaultWindowDays is used when no positive renewal window is configured.
const DefaultWindowDays = 30

// RenewAt returns the instant from which a certificate expiring at notAfter
// becomes due for renewal. Days are 24 hours regardless of time zone.
func RenewAt(
	notAfter time.Time,
	windowDays int,
) time.Time {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return notAfter.Add(-time.Duration(windowDays) * 24 * time.Hour)
}

// ShouldRenew reports whether now + windowDays has reached notAfter. The
// boundary is inclusive, and expired certificates are always due.
func ShouldRenew(
	notAfter time.Time,
	now time.Time,
	windowDays int,
) bool {
	return !now.Before(RenewAt(notAfter, windowDays))
}
