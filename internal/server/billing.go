package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auditelle/storefront/internal/auth"
	"github.com/auditelle/storefront/internal/billing"
	"github.com/auditelle/storefront/internal/email"
	"github.com/auditelle/storefront/internal/logging"
	"github.com/auditelle/storefront/internal/metrics"
	"github.com/auditelle/storefront/internal/profile"
	"github.com/auditelle/storefront/internal/reseller"
	"github.com/auditelle/storefront/internal/traces"
)

// maxWebhookBody bounds a Stripe event payload.
const maxWebhookBody = 64 << 10

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// checkoutHandler opens a Stripe checkout for the signed-in user.
func (s *Server) checkoutHandler(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := reseller.MustFromContext(ctx)
	errs := cfg.Strings.Errors
	user, _ := auth.GetUser(c)

	// An empty or missing body buys starter.
	var req checkoutRequest
	_ = c.ShouldBindJSON(&req)
	plan := reseller.PlanID(req.Plan)
	if plan == "" {
		plan = reseller.PlanStarter
	}
	if !plan.Paid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidPlan})
		return
	}
	// pro is the legacy name of starter and stays purchasable everywhere.
	if _, offered := cfg.UpgradePlan(plan); !offered && plan != reseller.PlanPro {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidPlan})
		return
	}

	var customerID string
	err := s.locks.Do(ctx, user.ID, func(ctx context.Context) error {
		p, err := s.store.EnsureProfile(ctx, user.ID, user.Email, user.Name)
		if err != nil {
			return err
		}
		id, created, err := s.billing.EnsureCustomer(ctx, p.StripeCustomerID, user.Email, user.ID)
		if err != nil {
			return err
		}
		if created {
			if err := s.store.SetStripeCustomer(ctx, user.ID, id); err != nil {
				return err
			}
		}
		customerID = id
		return nil
	})
	if err != nil {
		s.billingError(c, errs.PaymentError, "ensure customer", err)
		return
	}

	url, err := s.billing.CreateCheckout(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		UserID:     user.ID,
		Plan:       plan,
		SuccessURL: s.cfg.AppURL + "/dashboard?success=true",
		CancelURL:  s.cfg.AppURL + "/dashboard?canceled=true",
	})
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPlan) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidPlan})
			return
		}
		s.billingError(c, errs.PaymentError, "create checkout", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// billingPortalHandler opens the Stripe customer portal.
func (s *Server) billingPortalHandler(c *gin.Context) {
	ctx := c.Request.Context()
	errs := reseller.MustFromContext(ctx).Strings.Errors
	user, _ := auth.GetUser(c)

	p, err := s.store.Get(ctx, user.ID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		s.billingError(c, errs.BillingError, "load profile", err)
		return
	}
	if p == nil || p.StripeCustomerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.NoSubscription})
		return
	}

	url, err := s.billing.CreatePortal(ctx, p.StripeCustomerID, s.cfg.AppURL+"/dashboard/account")
	if err != nil {
		s.billingError(c, errs.BillingError, "create portal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) billingError(c *gin.Context, msg, op string, err error) {
	logging.L(c.Request.Context()).Error(op+" failed", "error", err)
	status := http.StatusInternalServerError
	if errors.Is(err, billing.ErrNotConfigured) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": msg})
}

// stripeWebhookHandler applies subscription lifecycle events.
func (s *Server) stripeWebhookHandler(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	event, err := s.billing.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logging.L(ctx).Warn("stripe webhook rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(event.Type)).Inc()

	update, err := billing.Interpret(event)
	if err != nil {
		logging.L(ctx).Error("stripe event undecodable", "event", event.ID, "type", event.Type, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	ctx, span := traces.StartSpan(ctx, "stripe.webhook", traces.StripeEvent(string(event.Type)))
	err = s.applyStripeEvent(ctx, event.ID, update)
	traces.End(span, err)
	if err != nil {
		logging.L(ctx).Error("stripe webhook failed", "event", event.ID, "type", event.Type, "error", err)
		// Stripe retries on 5xx.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook handling failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) applyStripeEvent(ctx context.Context, eventID string, u billing.Update) error {
	log := logging.L(ctx).With("event", eventID)

	switch u.Kind {
	case billing.UpdateActivated:
		if u.UserID == "" {
			log.Warn("checkout completed without user id")
			return nil
		}
		if err := s.store.ActivateSubscription(ctx, u.UserID, u.Plan, u.CustomerID, u.SubscriptionID); err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				log.Warn("checkout completed for unknown user", "user_id", u.UserID)
				return nil
			}
			return err
		}
		log.Info("subscription activated", "user_id", u.UserID, "plan", u.Plan)
		s.sendSubscriptionEmail(ctx, u.UserID, u.Plan)

	case billing.UpdateChanged:
		plan := reseller.PlanFree
		if u.Active {
			plan = reseller.PlanPro
			if p, ok := s.billing.PlanForPrice(u.PriceID); ok {
				plan = p
			}
		}
		if err := s.store.SetPlanBySubscription(ctx, u.SubscriptionID, plan); err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				log.Warn("subscription update for unknown subscription", "subscription", u.SubscriptionID)
				return nil
			}
			return err
		}
		log.Info("subscription updated", "subscription", u.SubscriptionID, "plan", plan)

	case billing.UpdateCanceled:
		if err := s.store.CancelSubscription(ctx, u.SubscriptionID); err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				return nil
			}
			return err
		}
		log.Info("subscription canceled", "subscription", u.SubscriptionID)
	}
	return nil
}

func (s *Server) sendSubscriptionEmail(ctx context.Context, userID string, plan reseller.PlanID) {
	cfg := reseller.MustFromContext(ctx)
	s.goBackground(ctx, "subscription email", func(ctx context.Context) error {
		p, err := s.store.Get(ctx, userID)
		if err != nil {
			return err
		}
		if p.Email == "" {
			return nil
		}
		msg, err := email.Render(cfg, email.SubscriptionConfirmed, email.Params{
			Name: email.DisplayName(p.FullName, p.Email),
			Plan: plan,
		})
		if err != nil {
			return err
		}
		msg.To = p.Email
		return s.mailer.Send(ctx, msg)
	})
}
