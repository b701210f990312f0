// Package quota decides how many scans a signed-in user has left today.
// Days are UTC calendar days.
package quota

import (
	"time"

	"github.com/auditelle/storefront/internal/reseller"
)

// Limit is the daily scan allowance for plan.
func Limit(plan reseller.PlanID) int {
	return reseller.DailyLimit(plan)
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// NeedsReset reports whether a counter last reset at resetAt must be zeroed
// before use at now. A counter that was never reset always needs one.
func NeedsReset(resetAt, now time.Time) bool {
	return resetAt.IsZero() || !sameUTCDay(resetAt, now)
}

// Remaining is what is left of limit after used scans, never negative.
func Remaining(used, limit int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

// ShouldSendLimitEmail is true on the first refused request of the day:
// the counter sits exactly at the limit and no limit email went out today.
func ShouldSendLimitEmail(used, limit int, lastSent, now time.Time) bool {
	if used != limit {
		return false
	}
	return lastSent.IsZero() || !sameUTCDay(lastSent, now)
}

// Usage is the evaluated quota for one request.
type Usage struct {
	Limit int
	// Used is today's count after any reset.
	Used int
	// Reset is set when the stored counter belongs to an earlier day.
	Reset bool
}

// Evaluate applies the daily reset rule to a stored counter.
func Evaluate(plan reseller.PlanID, stored int, resetAt, now time.Time) Usage {
	u := Usage{Limit: Limit(plan), Used: stored}
	if NeedsReset(resetAt, now) {
		u.Used = 0
		u.Reset = true
	}
	return u
}

// Exhausted reports whether no scan is left.
func (u Usage) Exhausted() bool { return u.Used >= u.Limit }

// RemainingAfterScan is what the client sees once the current scan counts.
func (u Usage) RemainingAfterScan() int { return Remaining(u.Used+1, u.Limit) }
