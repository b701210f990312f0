// Package profile stores per-user storefront state: plan, daily scan
// counter, Stripe identifiers, email flags and the scan history.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/auditelle/storefront/internal/pagination"
	"github.com/auditelle/storefront/internal/reseller"
)

var (
	ErrNotFound = errors.New("profile: not found")
	// ErrConflict means the scan counter moved between read and write.
	ErrConflict = errors.New("profile: concurrent update")
)

// SnippetLength is how much of a scanned text is kept in history.
const SnippetLength = 200

// Profile is one user's storefront state. Identity (email, name) is owned
// by the external user store and copied here on first use.
type Profile struct {
	ID                   string          `json:"id"`
	Email                string          `json:"email"`
	FullName             string          `json:"fullName,omitempty"`
	Plan                 reseller.PlanID `json:"plan"`
	ScansToday           int             `json:"scansToday"`
	ScansResetAt         time.Time       `json:"scansResetAt"`
	StripeCustomerID     string          `json:"-"`
	StripeSubscriptionID string          `json:"-"`
	WelcomeEmailSent     bool            `json:"-"`
	LimitEmailSentAt     time.Time       `json:"-"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// Scan is one stored detection.
type Scan struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Mode        string          `json:"mode"`
	TextSnippet string          `json:"textSnippet"`
	Score       int             `json:"score"`
	Result      json.RawMessage `json:"result"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Snippet returns the first SnippetLength characters of text.
func Snippet(text string) string {
	n := 0
	for i := range text {
		if n == SnippetLength {
			return text[:i]
		}
		n++
	}
	return text
}

// Store persists profiles and scans.
type Store interface {
	Get(ctx context.Context, id string) (*Profile, error)
	// EnsureProfile returns the profile for id, creating a free one if the
	// user has never been seen.
	EnsureProfile(ctx context.Context, id, email, fullName string) (*Profile, error)
	ResetDailyScans(ctx context.Context, id string, at time.Time) error
	// IncrementScans bumps the counter from expected to expected+1, or
	// returns ErrConflict if another request got there first.
	IncrementScans(ctx context.Context, id string, expected int) error
	SetStripeCustomer(ctx context.Context, id, customerID string) error
	ActivateSubscription(ctx context.Context, id string, plan reseller.PlanID, customerID, subscriptionID string) error
	SetPlanBySubscription(ctx context.Context, subscriptionID string, plan reseller.PlanID) error
	// CancelSubscription drops the owner of subscriptionID back to free.
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// MarkWelcomeEmailSent sets the one-shot flag and reports whether this
	// call was the one that set it.
	MarkWelcomeEmailSent(ctx context.Context, id string) (bool, error)
	MarkLimitEmailSent(ctx context.Context, id string, at time.Time) error
	RecordScan(ctx context.Context, s *Scan) error
	// ListScans returns up to limit scans older than after, newest first.
	ListScans(ctx context.Context, userID string, after *pagination.Cursor, limit int) ([]*Scan, error)
}
