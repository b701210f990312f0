// Package billing wraps the Stripe calls the storefront makes: customers,
// subscription checkout, the billing portal and webhook verification.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/auditelle/storefront/internal/metrics"
	"github.com/auditelle/storefront/internal/reseller"
	"github.com/auditelle/storefront/internal/traces"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

var (
	ErrNotConfigured = errors.New("billing: stripe not configured")
	ErrUnknownPlan   = errors.New("billing: unknown or unpriced plan")
	ErrBadSignature  = errors.New("billing: invalid webhook signature")
)

// Metadata keys written on customers and checkout sessions.
const (
	MetaUserID = "user_id"
	MetaPlan   = "plan"
)

// Gateway is what the HTTP layer needs from Stripe.
type Gateway interface {
	EnsureCustomer(ctx context.Context, existingID, email, userID string) (id string, created bool, err error)
	CreateCheckout(ctx context.Context, p CheckoutParams) (url string, err error)
	CreatePortal(ctx context.Context, customerID, returnURL string) (url string, err error)
	ParseEvent(payload []byte, sigHeader string) (stripe.Event, error)
	// PlanForPrice maps a subscription's price back to a plan.
	PlanForPrice(priceID string) (reseller.PlanID, bool)
}

// CheckoutParams describes one subscription checkout.
type CheckoutParams struct {
	CustomerID string
	UserID     string
	Plan       reseller.PlanID
	SuccessURL string
	CancelURL  string
}

// Service is the Stripe-backed Gateway.
type Service struct {
	api           *client.API
	webhookSecret string
	prices        map[string]string
}

// New creates a Service. prices maps plan ids to Stripe price ids and is
// usually config.PriceIDs(). backends may be nil.
func New(secretKey, webhookSecret string, prices map[string]string, backends *stripe.Backends) *Service {
	s := &Service{webhookSecret: webhookSecret, prices: prices}
	if secretKey != "" {
		s.api = client.New(secretKey, backends)
	}
	return s
}

var _ Gateway = (*Service)(nil)

// PriceID returns the Stripe price for plan.
func (s *Service) PriceID(plan reseller.PlanID) (string, error) {
	if !plan.Paid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	id := s.prices[string(plan)]
	if id == "" {
		return "", fmt.Errorf("%w: %q has no price", ErrUnknownPlan, plan)
	}
	return id, nil
}

// PlanForPrice returns the plan sold at priceID. When one price backs
// several plans (the starter/pro alias) the first in PlanIDs order wins.
func (s *Service) PlanForPrice(priceID string) (reseller.PlanID, bool) {
	if priceID == "" {
		return "", false
	}
	for _, plan := range reseller.PlanIDs() {
		if plan.Paid() && s.prices[string(plan)] == priceID {
			return plan, true
		}
	}
	return "", false
}

// EnsureCustomer returns existingID when set, otherwise creates a Stripe
// customer tagged with the user id. created reports whether the caller
// must persist the new id.
func (s *Service) EnsureCustomer(ctx context.Context, existingID, email, userID string) (_ string, _ bool, err error) {
	if existingID != "" {
		return existingID, false, nil
	}
	if s.api == nil {
		return "", false, ErrNotConfigured
	}
	ctx, span := traces.StartSpan(ctx, "billing.EnsureCustomer", traces.UserID(userID))
	defer func() { traces.End(span, err) }()

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(MetaUserID, userID)
	cust, err := s.api.Customers.New(params)
	if err != nil {
		return "", false, fmt.Errorf("billing: create customer: %w", err)
	}
	return cust.ID, true, nil
}

// CreateCheckout opens a subscription checkout session and returns its URL.
func (s *Service) CreateCheckout(ctx context.Context, p CheckoutParams) (_ string, err error) {
	defer func() {
		metrics.CheckoutSessionsTotal.WithLabelValues(string(p.Plan), metrics.Outcome(err)).Inc()
	}()
	price, err := s.PriceID(p.Plan)
	if err != nil {
		return "", err
	}
	if s.api == nil {
		return "", ErrNotConfigured
	}
	ctx, span := traces.StartSpan(ctx, "billing.CreateCheckout",
		traces.Plan(string(p.Plan)), traces.UserID(p.UserID))
	defer func() { traces.End(span, err) }()

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(p.CustomerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price), Quantity: stripe.Int64(1)},
		},
		SuccessURL:          stripe.String(p.SuccessURL),
		CancelURL:           stripe.String(p.CancelURL),
		AllowPromotionCodes: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata(MetaUserID, p.UserID)
	params.AddMetadata(MetaPlan, string(p.Plan))

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortal opens a billing-portal session for an existing customer.
func (s *Service) CreatePortal(ctx context.Context, customerID, returnURL string) (_ string, err error) {
	if s.api == nil {
		return "", ErrNotConfigured
	}
	ctx, span := traces.StartSpan(ctx, "billing.CreatePortal")
	defer func() { traces.End(span, err) }()

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create portal session: %w", err)
	}
	return sess.URL, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
func (s *Service) ParseEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return ev, nil
}
