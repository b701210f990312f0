package reseller

import "sort"

// PlanID identifies a billing plan. The set is closed; tenants only choose
// which plans to show and how to word them.
type PlanID string

const (
	PlanFree        PlanID = "free"
	PlanStudent     PlanID = "student"
	PlanStarter     PlanID = "starter"
	PlanPro         PlanID = "pro"
	PlanEquipe      PlanID = "equipe"
	PlanDepartement PlanID = "departement"
	PlanUniversity  PlanID = "university"
	PlanEnterprise  PlanID = "enterprise"
)

var planIDs = map[PlanID]bool{
	PlanFree:        true,
	PlanStudent:     true,
	PlanStarter:     true,
	PlanPro:         true,
	PlanEquipe:      true,
	PlanDepartement: true,
	PlanUniversity:  true,
	PlanEnterprise:  true,
}

// Valid reports whether p is one of the known plan ids.
func (p PlanID) Valid() bool { return planIDs[p] }

// Paid reports whether p is a plan sold through checkout.
func (p PlanID) Paid() bool { return p.Valid() && p != PlanFree }

// PlanIDs returns every known plan id in sorted order.
func PlanIDs() []PlanID {
	out := make([]PlanID, 0, len(planIDs))
	for id := range planIDs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DailyLimits is the number of detections a plan allows per UTC day.
// Plans absent from the table get the free allowance.
var DailyLimits = map[PlanID]int{
	PlanFree:       5,
	PlanStudent:    10,
	PlanStarter:    50,
	PlanPro:        50,
	PlanUniversity: 500,
	PlanEnterprise: 10000,
}

// DailyLimit returns the per-day scan allowance for plan.
func DailyLimit(plan PlanID) int {
	if n, ok := DailyLimits[plan]; ok {
		return n
	}
	return DailyLimits[PlanFree]
}

// UpgradePlan returns the upgrade entry for id.
func (c *Config) UpgradePlan(id PlanID) (UpgradePlan, bool) {
	for _, p := range c.Plans.Upgrade {
		if p.ID == id {
			return p, true
		}
	}
	return UpgradePlan{}, false
}

// PlanDetail returns the email blurb for id, falling back to the pro entry
// which every tenant must define.
func (c *Config) PlanDetail(id PlanID) PlanDetail {
	if d, ok := c.Strings.PlanDetails[id]; ok {
		return d
	}
	return c.Strings.PlanDetails[PlanPro]
}

// ScansPerDayLabel returns the dashboard label describing a plan's
// allowance.
func (c *Config) ScansPerDayLabel(plan PlanID) string {
	labels := c.Strings.Dashboard.ScansPerDay
	if s, ok := labels[string(plan)]; ok {
		return s
	}
	return labels["default"]
}
