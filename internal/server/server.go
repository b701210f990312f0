// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/auditelle/storefront/internal/auth"
	"github.com/auditelle/storefront/internal/billing"
	"github.com/auditelle/storefront/internal/circuitbreaker"
	"github.com/auditelle/storefront/internal/config"
	"github.com/auditelle/storefront/internal/detector"
	"github.com/auditelle/storefront/internal/email"
	"github.com/auditelle/storefront/internal/health"
	"github.com/auditelle/storefront/internal/idgen"
	"github.com/auditelle/storefront/internal/logging"
	"github.com/auditelle/storefront/internal/metrics"
	"github.com/auditelle/storefront/internal/profile"
	"github.com/auditelle/storefront/internal/ratelimit"
	"github.com/auditelle/storefront/internal/reseller"
	"github.com/auditelle/storefront/internal/security"
	"github.com/auditelle/storefront/internal/syncutil"
	"github.com/auditelle/storefront/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg      *config.Config
	reseller *reseller.Config

	store    profile.Store
	detector detector.Detector
	billing  billing.Gateway
	mailer   email.Sender
	verifier *auth.Verifier

	// Anonymous per-IP allowances for /api/detect-public and /api/demo-detect
	publicQuota ratelimit.Quota
	demoQuota   ratelimit.Quota

	locks       *syncutil.KeyLock
	health      *health.Registry
	rateLimiter *ratelimit.Limiter
	db          *sql.DB                 // nil if using in-memory
	redis       *redis.Client           // nil if counters are in-memory
	breaker     *circuitbreaker.Breaker // nil if the detector was injected
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger
	now         func() time.Time

	background sync.WaitGroup
	drainDelay time.Duration

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithReseller sets the tenant config instead of reading the resolver cache.
func WithReseller(cfg *reseller.Config) Option {
	return func(s *Server) {
		s.reseller = cfg
	}
}

// WithStore sets the profile store (for testing)
func WithStore(store profile.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithDetector sets the detection backend (for testing)
func WithDetector(d detector.Detector) Option {
	return func(s *Server) {
		s.detector = d
	}
}

// WithBilling sets the Stripe gateway (for testing)
func WithBilling(g billing.Gateway) Option {
	return func(s *Server) {
		s.billing = g
	}
}

// WithMailer sets the email sender (for testing)
func WithMailer(m email.Sender) Option {
	return func(s *Server) {
		s.mailer = m
	}
}

// WithDailyCounter sets the counter behind the anonymous quotas.
func WithDailyCounter(c ratelimit.DailyCounter) Option {
	return func(s *Server) {
		s.publicQuota.Counter = c
		s.demoQuota.Counter = c
	}
}

// WithClock overrides time.Now (for testing)
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithDrainDelay sets how long Shutdown waits, with readiness failing,
// before it stops accepting connections. Default 5s.
func WithDrainDelay(d time.Duration) Option {
	return func(s *Server) {
		s.drainDelay = d
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
		locks:  syncutil.NewKeyLock(0),
		health: health.NewRegistry(),
		now:    time.Now,

		drainDelay: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.reseller == nil {
		rc, err := reseller.Cached()
		if err != nil {
			return nil, fmt.Errorf("reseller config: %w", err)
		}
		s.reseller = rc
	}

	ctx := context.Background()

	// Storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if s.store == nil {
		if cfg.DatabaseURL != "" {
			db, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)

			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}
			if err := metrics.RegisterDB(db); err != nil {
				s.logger.Warn("db stats not exported", "error", err)
			}
			s.db = db
			s.store = profile.NewPostgresStore(db)
			s.logger.Info("using postgres storage", "dsn", maskDSN(cfg.DatabaseURL))
		} else {
			s.store = profile.NewMemoryStore()
			s.logger.Warn("DATABASE_URL not set, profiles are kept in memory")
		}
	}

	// Anonymous counters (Redis if REDIS_URL set, otherwise in-memory)
	if s.publicQuota.Counter == nil {
		if cfg.RedisURL != "" {
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
			}
			client := redis.NewClient(redisOpts)
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			s.redis = client
			prefix := "storefront:" + s.reseller.ID
			s.publicQuota.Counter = ratelimit.NewRedisCounter(client, prefix+":public")
			s.demoQuota.Counter = ratelimit.NewRedisCounter(client, prefix+":demo")
		} else {
			s.publicQuota.Counter = ratelimit.NewMemoryCounter()
			s.demoQuota.Counter = ratelimit.NewMemoryCounter()
		}
	}
	s.publicQuota.Limit = int64(cfg.DemoDailyLimit)
	s.demoQuota.Limit = int64(cfg.DemoDailyLimit)

	if s.detector == nil {
		s.breaker = circuitbreaker.New(5, 30*time.Second, circuitbreaker.WithLogger(s.logger))
		s.detector = detector.New(detector.Options{
			APIKey:        cfg.PangramAPIKey,
			AIURL:         cfg.PangramAPIURL,
			PlagiarismURL: cfg.PlagiarismAPIURL,
			Breaker:       s.breaker,
		})
	}
	if s.billing == nil {
		s.billing = billing.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.PriceIDs(), nil)
	}
	if s.mailer == nil {
		if cfg.ResendAPIKey != "" {
			sender, err := email.NewResendSender(cfg.ResendAPIKey, "", s.logger)
			if err != nil {
				return nil, err
			}
			s.mailer = sender
		} else {
			s.mailer = email.NewLogSender(s.logger)
			s.logger.Warn("RESEND_API_KEY not set, emails are logged instead of sent")
		}
	}
	s.verifier = auth.NewVerifier(cfg.JWTSecret, "")

	s.registerHealthChecks()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		_ = s.release()
		return nil, err
	}

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func (s *Server) registerHealthChecks() {
	rc := s.reseller
	s.health.Register("reseller", health.Static("reseller", func() (bool, string) {
		cached, err := reseller.Cached()
		if err != nil {
			// Injected configs never pass through the resolver.
			return rc != nil, rc.ID
		}
		return cached.ID == rc.ID, cached.ID
	}))
	if s.db != nil {
		s.health.Register("database", health.Ping("database", 2*time.Second, s.db.PingContext))
	}
	if s.breaker != nil {
		s.health.RegisterOptional("detector", health.Static("detector", func() (bool, string) {
			if tripped := s.breaker.Tripped(); len(tripped) > 0 {
				return false, "circuit open: " + strings.Join(tripped, ", ")
			}
			return true, ""
		}))
	}
	if s.redis != nil {
		s.health.RegisterOptional("redis", health.Ping("redis", 2*time.Second, func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}))
	}
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": s.reseller.Strings.Errors.InternalError,
		})
	}))
	s.router.Use(metrics.Middleware())

	// Analytics tags need their hosts in the CSP
	var scriptSources []string
	if s.reseller.Analytics != nil {
		scriptSources = []string{"https://www.googletagmanager.com", "https://www.google-analytics.com"}
	}
	s.router.Use(security.HeadersMiddleware(security.HeadersOptions{
		HSTS:          s.cfg.IsProduction(),
		ScriptSources: scriptSources,
	}))

	// CORS: the tenant's own site, plus the local front end in development
	origins := security.SiteOrigins(s.reseller.Branding.Domain)
	if s.cfg.IsDevelopment() {
		origins = append(origins, s.cfg.AppURL)
	}
	s.router.Use(security.CORSMiddleware(origins))
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Everything below may answer with the tenant's strings.
	s.router.Use(s.resellerMiddleware())

	rl := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		rl.RequestsPerMinute = s.cfg.RateLimitRPM
		rl.BurstSize = max(rl.BurstSize, s.cfg.RateLimitRPM/6)
	}
	rl.Identify = s.identify
	s.rateLimiter = ratelimit.New(rl)
	s.router.Use(s.rateLimiter.Middleware())
}

// identify returns the user id of a request carrying a valid access token.
func (s *Server) identify(r *http.Request) (string, bool) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", false
	}
	u, err := s.verifier.Verify(token)
	if err != nil {
		return "", false
	}
	return u.ID, true
}

func (s *Server) resellerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := reseller.WithConfig(c.Request.Context(), s.reseller)
		ctx = logging.WithReseller(ctx, s.reseller.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requestIDMiddleware keeps a proxy's X-Request-ID when it is short enough
// to log, else mints one.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = idgen.New()
		}
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(logging.WithLogger(ctx, s.logger))
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// loggingMiddleware writes one access line per request: error for 5xx,
// warn for 4xx, info otherwise. Probes are logged at debug.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case strings.HasPrefix(c.Request.URL.Path, "/health"), c.Request.URL.Path == "/metrics":
			level = slog.LevelDebug
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.Int("bytes", c.Writer.Size()),
		}
		if status >= 500 || status == http.StatusTooManyRequests {
			attrs = append(attrs, slog.String("client_ip", c.ClientIP()))
		}
		// L picks up the reseller set further down the chain.
		logging.L(c.Request.Context()).LogAttrs(c.Request.Context(), level, "request completed", attrs...)
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() error {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	api := s.router.Group("/api")

	// Public tenant views
	api.GET("/config", s.configHandler)
	api.GET("/metadata", s.metadataHandler)
	api.GET("/plans", s.plansHandler)
	api.GET("/plans/:id", s.planHandler)

	// Anonymous detection
	api.POST("/detect-public", s.detectPublicHandler)
	api.POST("/demo-detect", s.demoDetectHandler)

	// Stripe calls back without a user token; the signature is the auth
	api.POST("/webhooks/stripe", s.stripeWebhookHandler)

	// Signed-in users
	account := api.Group("")
	account.Use(auth.RequireUser(s.verifier))
	{
		account.POST("/detect", s.detectHandler)
		account.GET("/scans", s.listScansHandler)
		account.POST("/checkout", s.checkoutHandler)
		account.POST("/billing-portal", s.billingPortalHandler)
		account.POST("/email/welcome", s.welcomeEmailHandler)
	}

	return s.registerRedirects()
}

// -----------------------------------------------------------------------------
// Health handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Reseller  string          `json:"reseller"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.health.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Reseller:  s.reseller.ID,
		Checks:    checks,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if healthy, checks := s.health.CheckAll(ctx); !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts down.
// The server reports ready once its port is bound.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // detection upstream can take 30s
		IdleTimeout:       60 * time.Second,
	}
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpSrv.Addr, err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	s.ready.Store(true)
	s.logger.Info("server ready",
		"addr", ln.Addr().String(),
		"reseller", s.reseller.ID,
		"domain", s.reseller.Branding.Domain,
	)

	select {
	case err := <-errChan:
		s.ready.Store(false)
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown requested", "cause", context.Cause(ctx))
	}
	return s.Shutdown()
}

// Shutdown stops accepting work, waits for in-flight requests and
// background emails, then closes the stores.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	// Readiness is already failing; give the load balancer time to notice.
	if s.drainDelay > 0 {
		s.logger.Info("draining", "delay", s.drainDelay)
		time.Sleep(s.drainDelay)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.background.Wait()

	if err := s.release(); err != nil {
		s.logger.Error("closing stores", "error", err)
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// release stops the limiter and closes the stores New opened.
func (s *Server) release() error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// goBackground runs fn after the response is written. ctx loses its
// cancellation but keeps request-scoped values for logging.
func (s *Server) goBackground(ctx context.Context, name string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			logging.L(ctx).Error("background task failed", "task", name, "error", err)
		}
	}()
}
