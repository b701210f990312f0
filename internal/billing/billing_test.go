package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auditelle/storefront/internal/reseller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

var testPrices = map[string]string{
	"starter": "price_starter",
	"pro":     "price_starter",
	"student": "price_student",
}

func TestPriceID(t *testing.T) {
	s := New("", "", testPrices, nil)

	id, err := s.PriceID(reseller.PlanStudent)
	require.NoError(t, err)
	assert.Equal(t, "price_student", id)

	id, err = s.PriceID(reseller.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "price_starter", id, "legacy pro checkout sells the starter price")

	_, err = s.PriceID(reseller.PlanFree)
	assert.ErrorIs(t, err, ErrUnknownPlan)

	_, err = s.PriceID("platinum")
	assert.ErrorIs(t, err, ErrUnknownPlan)

	_, err = s.PriceID(reseller.PlanEnterprise)
	assert.ErrorIs(t, err, ErrUnknownPlan, "known plan without a configured price")
}

func TestPlanForPrice(t *testing.T) {
	s := New("", "", testPrices, nil)

	plan, ok := s.PlanForPrice("price_student")
	assert.True(t, ok)
	assert.Equal(t, reseller.PlanStudent, plan)

	plan, ok = s.PlanForPrice("price_starter")
	assert.True(t, ok)
	assert.Equal(t, reseller.PlanPro, plan, "aliased price resolves in PlanIDs order")

	_, ok = s.PlanForPrice("price_unknown")
	assert.False(t, ok)
	_, ok = s.PlanForPrice("")
	assert.False(t, ok)
}

func TestEnsureCustomer_KeepsExisting(t *testing.T) {
	s := New("", "", nil, nil)
	id, created, err := s.EnsureCustomer(context.Background(), "cus_existing", "a@b.fr", "u1")
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", id)
	assert.False(t, created)

	_, _, err = s.EnsureCustomer(context.Background(), "", "a@b.fr", "u1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func stubStripe(t *testing.T, handler http.HandlerFunc) *stripe.Backends {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
}

func TestCreateCheckout(t *testing.T) {
	backends := stubStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.Form.Get("customer"))
		assert.Equal(t, "subscription", r.Form.Get("mode"))
		assert.Equal(t, "price_student", r.Form.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.Form.Get("line_items[0][quantity]"))
		assert.Equal(t, "true", r.Form.Get("allow_promotion_codes"))
		assert.Equal(t, "u1", r.Form.Get("metadata[user_id]"))
		assert.Equal(t, "student", r.Form.Get("metadata[plan]"))
		assert.Equal(t, "https://www.auditelle.fr/dashboard?success=true", r.Form.Get("success_url"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	})

	s := New("sk_test_x", "", testPrices, backends)
	url, err := s.CreateCheckout(context.Background(), CheckoutParams{
		CustomerID: "cus_123",
		UserID:     "u1",
		Plan:       reseller.PlanStudent,
		SuccessURL: "https://www.auditelle.fr/dashboard?success=true",
		CancelURL:  "https://www.auditelle.fr/dashboard?canceled=true",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", url)
}

func TestCreateCheckout_UnknownPlanNeverCallsStripe(t *testing.T) {
	backends := stubStripe(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("stripe must not be called")
	})
	s := New("sk_test_x", "", testPrices, backends)
	_, err := s.CreateCheckout(context.Background(), CheckoutParams{Plan: "gold"})
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCreatePortal(t *testing.T) {
	backends := stubStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing_portal/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_9", r.Form.Get("customer"))
		assert.Equal(t, "https://www.veritexto.es/dashboard/account", r.Form.Get("return_url"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"bps_1","object":"billing_portal.session","url":"https://billing.stripe.com/p/session/bps_1"}`))
	})

	s := New("sk_test_x", "", nil, backends)
	url, err := s.CreatePortal(context.Background(), "cus_9", "https://www.veritexto.es/dashboard/account")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/bps_1", url)
}

func signedEvent(t *testing.T, secret string, ev map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseEvent(t *testing.T) {
	s := New("", "whsec_test", nil, nil)
	payload, header := signedEvent(t, "whsec_test", map[string]any{
		"id":     "evt_1",
		"object": "event",
		"type":   "customer.subscription.deleted",
		"data":   map[string]any{"object": map[string]any{"id": "sub_1", "object": "subscription"}},
	})

	ev, err := s.ParseEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, stripe.EventTypeCustomerSubscriptionDeleted, ev.Type)

	_, err = s.ParseEvent(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = New("", "", nil, nil).ParseEvent(payload, header)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func event(t *testing.T, typ stripe.EventType, object map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{Type: typ, Data: &stripe.EventData{Raw: raw}}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name   string
		event  stripe.Event
		expect Update
	}{
		{
			name: "checkout completed",
			event: event(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{
				"id": "cs_1", "customer": "cus_1", "subscription": "sub_1",
				"metadata": map[string]string{"user_id": "u1", "plan": "student"},
			}),
			expect: Update{Kind: UpdateActivated, UserID: "u1", Plan: reseller.PlanStudent, CustomerID: "cus_1", SubscriptionID: "sub_1"},
		},
		{
			name: "checkout without plan metadata is pro",
			event: event(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{
				"id": "cs_2", "customer": "cus_2", "subscription": "sub_2",
				"metadata": map[string]string{"user_id": "u2"},
			}),
			expect: Update{Kind: UpdateActivated, UserID: "u2", Plan: reseller.PlanPro, CustomerID: "cus_2", SubscriptionID: "sub_2"},
		},
		{
			name:   "trialing keeps the plan",
			event:  event(t, stripe.EventTypeCustomerSubscriptionUpdated, map[string]any{"id": "sub_1", "status": "trialing"}),
			expect: Update{Kind: UpdateChanged, SubscriptionID: "sub_1", Active: true},
		},
		{
			name: "active carries the price",
			event: event(t, stripe.EventTypeCustomerSubscriptionUpdated, map[string]any{
				"id": "sub_4", "status": "active",
				"items": map[string]any{"object": "list", "data": []map[string]any{
					{"id": "si_1", "price": map[string]any{"id": "price_student"}},
				}},
			}),
			expect: Update{Kind: UpdateChanged, SubscriptionID: "sub_4", PriceID: "price_student", Active: true},
		},
		{
			name:   "past due downgrades",
			event:  event(t, stripe.EventTypeCustomerSubscriptionUpdated, map[string]any{"id": "sub_1", "status": "past_due"}),
			expect: Update{Kind: UpdateChanged, SubscriptionID: "sub_1"},
		},
		{
			name:   "deleted",
			event:  event(t, stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{"id": "sub_3", "status": "canceled"}),
			expect: Update{Kind: UpdateCanceled, SubscriptionID: "sub_3"},
		},
		{
			name:   "ignored type",
			event:  event(t, stripe.EventTypeInvoicePaid, map[string]any{"id": "in_1"}),
			expect: Update{Kind: UpdateNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpret(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestInterpret_MalformedObject(t *testing.T) {
	ev := stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: json.RawMessage(`"not an object"`)},
	}
	_, err := Interpret(ev)
	assert.Error(t, err)
}
