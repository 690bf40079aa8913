package renewal

import (
	"testing"
	"time"
)

type shouldRenewTestCase struct {
	notAfter       time.Time
	now            time.Time
	windowDays     int
	expectedResult bool
}

var policyNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

var fallbackZone = time.FixedZone("CET", 60*60)

// dstNotAfter is in winter time; 30 days earlier Oslo is on summer time.
var dstNotAfter = time.Date(2026, 11, 10, 12, 0, 0, 0, mustLoadLocation("Europe/Oslo"))

func mustLoadLocation(
	name string,
) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallbackZone
	}
	return loc
}

var shouldRenewTestCases = []shouldRenewTestCase{
	// Plenty of validity left.
	shouldRenewTestCase{
		notAfter:       policyNow.AddDate(0, 0, 90),
		now:            policyNow,
		windowDays:     30,
		expectedResult: false,
	},

	// Inside the window.
	shouldRenewTestCase{
		notAfter:       policyNow.AddDate(0, 0, 5),
		now:            policyNow,
		windowDays:     30,
		expectedResult: true,
	},

	// Exactly on the boundary renews.
	shouldRenewTestCase{
		notAfter:       policyNow.AddDate(0, 0, 30),
		now:            policyNow,
		windowDays:     30,
		expectedResult: true,
	},

	// One second before the boundary does not.
	shouldRenewTestCase{
		notAfter:       policyNow.AddDate(0, 0, 30).Add(time.Second),
		now:            policyNow,
		windowDays:     30,
		expectedResult: false,
	},

	// Already expired.
	shouldRenewTestCase{
		notAfter:       policyNow.Add(-time.Hour),
		now:            policyNow,
		windowDays:     1,
		expectedResult: true,
	},

	// Zero window falls back to the default.
	shouldRenewTestCase{
		notAfter:       policyNow.AddDate(0, 0, 29),
		now:            policyNow,
		windowDays:     0,
		expectedResult: true,
	},
	shouldRenewTestCase{
		notAfter:       policyNow.AddDate(0, 0, 31),
		now:            policyNow,
		windowDays:     0,
		expectedResult: false,
	},

	// Time zones do not matter.
	shouldRenewTestCase{
		notAfter:       policyNow.AddDate(0, 0, 10),
		now:            policyNow.In(time.FixedZone("UTC+9", 9*60*60)),
		windowDays:     10,
		expectedResult: true,
	},

	// Windows crossing a DST change count 24 hour days.
	shouldRenewTestCase{
		notAfter:       dstNotAfter,
		now:            dstNotAfter.Add(-720*time.Hour - 30*time.Minute),
		windowDays:     30,
		expectedResult: false,
	},
	shouldRenewTestCase{
		notAfter:       dstNotAfter,
		now:            dstNotAfter.Add(-720 * time.Hour),
		windowDays:     30,
		expectedResult: true,
	},
}

func TestShouldRenew(
	t *testing.T,
) {
	for _, tc := range shouldRenewTestCases {
		result := ShouldRenew(tc.notAfter, tc.now, tc.windowDays)
		if result != tc.expectedResult {
			t.Errorf(
				"Unexpected result: Args (%v, %v, %d) -> %v",
				tc.notAfter,
				tc.now,
				tc.windowDays,
				result,
			)
		}

		// now + window >= notAfter must agree.
		window := tc.windowDays
		if window <= 0 {
			window = DefaultWindowDays
		}
		reference := !tc.now.Add(time.Duration(window) * 24 * time.Hour).Before(tc.notAfter)
		if result != reference {
			t.Errorf(
				"Disagrees with now+window >= notAfter: Args (%v, %v, %d)",
				tc.notAfter,
				tc.now,
				tc.windowDays,
			)
		}
	}
}

func TestRenewAt(
	t *testing.T,
) {
	notAfter := policyNow.AddDate(0, 0, 45)
	if got := RenewAt(notAfter, 30); !got.Equal(policyNow.AddDate(0, 0, 15)) {
		t.Errorf("Unexpected renewal instant: %v", got)
	}

	if got := RenewAt(dstNotAfter, 30); !got.Equal(dstNotAfter.Add(-720 * time.Hour)) {
		t.Errorf("Unexpected renewal instant across DST: %v", got)
	}
}
