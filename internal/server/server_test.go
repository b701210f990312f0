package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"

	"github.com/auditelle/storefront/internal/auth"
	"github.com/auditelle/storefront/internal/billing"
	"github.com/auditelle/storefront/internal/config"
	"github.com/auditelle/storefront/internal/detector"
	"github.com/auditelle/storefront/internal/email"
	"github.com/auditelle/storefront/internal/profile"
	"github.com/auditelle/storefront/internal/reseller"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeDetector records the texts it was asked about.
type fakeDetector struct {
	mu    sync.Mutex
	texts []string
	ai    float64
	err   error
}

func (f *fakeDetector) DetectAI(_ context.Context, text string) (*detector.AIResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return &detector.AIResult{
		AILikelihood:    f.ai,
		HumanLikelihood: 1 - f.ai,
		Headline:        "AI Detected",
	}, nil
}

func (f *fakeDetector) DetectPlagiarism(_ context.Context, text string) (*detector.PlagiarismResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return &detector.PlagiarismResult{PlagiarismDetected: true, PercentPlagiarized: 0.4, PlagiarizedContent: []detector.Source{}}, nil
}

func (f *fakeDetector) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeGateway stands in for Stripe.
type fakeGateway struct {
	mu        sync.Mutex
	created   int
	checkouts []billing.CheckoutParams
	portals   []string
	events    map[string]stripe.Event // signature -> event
	prices    map[string]reseller.PlanID
}

func (g *fakeGateway) EnsureCustomer(_ context.Context, existingID, _, _ string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existingID != "" {
		return existingID, false, nil
	}
	g.created++
	return "cus_new", true, nil
}

func (g *fakeGateway) CreateCheckout(_ context.Context, p billing.CheckoutParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.Plan == reseller.PlanEnterprise {
		return "", billing.ErrUnknownPlan
	}
	g.checkouts = append(g.checkouts, p)
	return "https://checkout.stripe.test/" + string(p.Plan), nil
}

func (g *fakeGateway) CreatePortal(_ context.Context, customerID, returnURL string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.portals = append(g.portals, customerID+" "+returnURL)
	return "https://billing.stripe.test/" + customerID, nil
}

func (g *fakeGateway) ParseEvent(_ []byte, sig string) (stripe.Event, error) {
	ev, ok := g.events[sig]
	if !ok {
		return stripe.Event{}, billing.ErrBadSignature
	}
	return ev, nil
}

func (g *fakeGateway) PlanForPrice(priceID string) (reseller.PlanID, bool) {
	p, ok := g.prices[priceID]
	return p, ok
}

// recordingMailer keeps every message it is asked to send.
type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "test",
		LogLevel:       "error",
		AppURL:         "https://www.auditelle.fr",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		DemoDailyLimit: 3,
		RateLimitRPM:   6000,
	}
}

func frConfig(t *testing.T) *reseller.Config {
	t.Helper()
	cfg, err := reseller.Builtin().Build("auditelle-fr")
	if err != nil {
		t.Fatalf("build auditelle-fr: %v", err)
	}
	return cfg
}

type testEnv struct {
	srv      *Server
	cfg      *reseller.Config
	store    *profile.MemoryStore
	detector *fakeDetector
	gateway  *fakeGateway
	mailer   *recordingMailer
}

// newTestEnv creates a server with fake collaborators around the FR tenant.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		cfg:      frConfig(t),
		store:    profile.NewMemoryStore(),
		detector: &fakeDetector{ai: 0.87},
		gateway:  &fakeGateway{events: map[string]stripe.Event{}, prices: map[string]reseller.PlanID{}},
		mailer:   &recordingMailer{},
	}
	all := append([]Option{
		WithReseller(env.cfg),
		WithStore(env.store),
		WithDetector(env.detector),
		WithBilling(env.gateway),
		WithMailer(env.mailer),
		WithClock(func() time.Time { return testNow }),
	}, opts...)

	s, err := New(testConfig(), all...)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	t.Cleanup(func() {
		s.background.Wait()
		s.rateLimiter.Stop()
	})
	env.srv = s
	return env
}

func (e *testEnv) token(t *testing.T, u auth.User) string {
	t.Helper()
	tok, err := e.srv.verifier.Issue(u, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// do sends a request; body is JSON-encoded unless it is already a reader.
func (e *testEnv) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		r = b
	default:
		raw, _ := json.Marshal(b)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(w, req)
	return w
}

func (e *testEnv) authed(t *testing.T, u auth.User) map[string]string {
	return map[string]string{"Authorization": "Bearer " + e.token(t, u)}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

var errBoom = errors.New("boom")

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	resp := decode(t, w)
	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
	if resp["reseller"] != "auditelle-fr" {
		t.Errorf("Expected reseller auditelle-fr, got %v", resp["reseller"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health/live", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Not ready until Run marks it
	w := env.do("GET", "/health/ready", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before ready, got %d", w.Code)
	}

	env.srv.ready.Store(true)
	w = env.do("GET", "/health/ready", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 once ready, got %d", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health/live", nil, map[string]string{"X-Request-ID": "req-123"})
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}

	w = env.do("GET", "/health/live", nil, nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated request id")
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/metadata", nil, map[string]string{"Origin": "https://www.auditelle.fr"})
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("Expected X-Frame-Options DENY")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://www.auditelle.fr" {
		t.Errorf("Expected tenant origin to be allowed, got %q", got)
	}

	w = env.do("GET", "/api/metadata", nil, map[string]string{"Origin": "https://evil.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected foreign origin to be refused, got %q", got)
	}
}

func TestNew_WithoutResolvedResellerFails(t *testing.T) {
	if _, err := reseller.Cached(); err == nil {
		t.Skip("process resolver already loaded")
	}
	_, err := New(testConfig(), WithStore(profile.NewMemoryStore()))
	if !errors.Is(err, reseller.ErrConfigNotLoaded) {
		t.Fatalf("Expected ErrConfigNotLoaded, got %v", err)
	}
}

func TestHealthReportsDetectorCircuit(t *testing.T) {
	cfg := frConfig(t)
	s, err := New(testConfig(),
		WithReseller(cfg),
		WithStore(profile.NewMemoryStore()),
		WithBilling(&fakeGateway{}),
		WithMailer(&recordingMailer{}),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	t.Cleanup(s.rateLimiter.Stop)

	for i := 0; i < 5; i++ {
		s.breaker.RecordFailure("pangram")
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("An open detector circuit must not fail /health, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range resp.Checks {
		if c.Name == "detector" {
			found = true
			if c.Healthy || !c.Optional || c.Detail != "circuit open: pangram" {
				t.Errorf("Unexpected detector status %+v", c)
			}
		}
	}
	if !found {
		t.Error("Expected a detector check")
	}
}

func TestRunServesUntilContextDone(t *testing.T) {
	env := newTestEnv(t, WithDrainDelay(0))
	env.srv.cfg.Port = "0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !env.srv.ready.Load() {
		if time.Now().After(deadline) {
			t.Fatal("server never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if env.srv.ready.Load() {
		t.Error("server should not be ready after shutdown")
	}
}
