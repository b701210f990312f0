package billing

import (
	"encoding/json"
	"fmt"

	"github.com/auditelle/storefront/internal/reseller"
	"github.com/stripe/stripe-go/v81"
)

// UpdateKind says what a webhook event means for a profile.
type UpdateKind int

const (
	// UpdateNone is an event the storefront does not act on.
	UpdateNone UpdateKind = iota
	// UpdateActivated is a completed checkout.
	UpdateActivated
	// UpdateChanged is a subscription status change.
	UpdateChanged
	// UpdateCanceled is a deleted subscription.
	UpdateCanceled
)

// Update is the profile change a webhook event asks for.
type Update struct {
	Kind           UpdateKind
	UserID         string
	Plan           reseller.PlanID
	CustomerID     string
	SubscriptionID string
	// PriceID is the first subscription item's price, for UpdateChanged.
	PriceID string
	// Active is set for UpdateChanged: true while the subscription is
	// active or trialing.
	Active bool
}

// Interpret maps a verified Stripe event to a profile update. Events the
// storefront ignores yield UpdateNone and no error.
func Interpret(ev stripe.Event) (Update, error) {
	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(raw, &sess); err != nil {
			return Update{}, fmt.Errorf("billing: decode checkout session: %w", err)
		}
		u := Update{
			Kind:   UpdateActivated,
			UserID: sess.Metadata[MetaUserID],
			Plan:   reseller.PlanID(sess.Metadata[MetaPlan]),
		}
		if sess.Customer != nil {
			u.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			u.SubscriptionID = sess.Subscription.ID
		}
		// Sessions created before plans were tagged only sold pro.
		if !u.Plan.Paid() {
			u.Plan = reseller.PlanPro
		}
		return u, nil

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return Update{}, fmt.Errorf("billing: decode subscription: %w", err)
		}
		u := Update{SubscriptionID: sub.ID}
		if ev.Type == stripe.EventTypeCustomerSubscriptionDeleted {
			u.Kind = UpdateCanceled
			return u, nil
		}
		u.Kind = UpdateChanged
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			u.PriceID = sub.Items.Data[0].Price.ID
		}
		u.Active = sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing
		return u, nil
	}
	return Update{Kind: UpdateNone}, nil
}
