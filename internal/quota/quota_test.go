package quota

import (
	"testing"
	"time"

	"github.com/auditelle/storefront/internal/reseller"
	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	assert.Equal(t, 5, Limit(reseller.PlanFree))
	assert.Equal(t, 50, Limit(reseller.PlanStarter))
	assert.Equal(t, 5, Limit("mystery"), "unknown plans get the free allowance")
}

func TestNeedsReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		resetAt time.Time
		want    bool
	}{
		{"never reset", time.Time{}, true},
		{"earlier today", time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC), false},
		{"yesterday", time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC), true},
		// 00:45 in Paris on the 10th is 23:45 UTC on the 9th.
		{"local midnight is not the boundary", time.Date(2026, 3, 10, 0, 45, 0, 0, time.FixedZone("CET", 3600)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsReset(tt.resetAt, now))
		})
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 3, Remaining(2, 5))
	assert.Equal(t, 0, Remaining(5, 5))
	assert.Equal(t, 0, Remaining(7, 5))
}

func TestShouldSendLimitEmail(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, ShouldSendLimitEmail(5, 5, time.Time{}, now))
	assert.True(t, ShouldSendLimitEmail(5, 5, now.Add(-24*time.Hour), now))
	assert.False(t, ShouldSendLimitEmail(5, 5, now.Add(-time.Hour), now), "already sent today")
	assert.False(t, ShouldSendLimitEmail(4, 5, time.Time{}, now), "not at the limit yet")
	assert.False(t, ShouldSendLimitEmail(6, 5, time.Time{}, now), "only the first refused request")
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	u := Evaluate(reseller.PlanFree, 5, now.Add(-time.Hour), now)
	assert.Equal(t, Usage{Limit: 5, Used: 5}, u)
	assert.True(t, u.Exhausted())

	u = Evaluate(reseller.PlanFree, 5, now.Add(-24*time.Hour), now)
	assert.Equal(t, Usage{Limit: 5, Used: 0, Reset: true}, u)
	assert.False(t, u.Exhausted())
	assert.Equal(t, 4, u.RemainingAfterScan())

	u = Evaluate(reseller.PlanStudent, 9, now, now)
	assert.Equal(t, 0, u.RemainingAfterScan())
}
