package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auditelle/storefront/internal/auth"
	"github.com/auditelle/storefront/internal/detector"
	"github.com/auditelle/storefront/internal/email"
	"github.com/auditelle/storefront/internal/idgen"
	"github.com/auditelle/storefront/internal/logging"
	"github.com/auditelle/storefront/internal/metrics"
	"github.com/auditelle/storefront/internal/profile"
	"github.com/auditelle/storefront/internal/quota"
	"github.com/auditelle/storefront/internal/ratelimit"
	"github.com/auditelle/storefront/internal/reseller"
	"github.com/auditelle/storefront/internal/traces"
	"github.com/auditelle/storefront/internal/validation"
)

// Detection modes accepted by /api/detect.
const (
	ModeAI         = "ai"
	ModePlagiarism = "plagiarism"
)

type detectRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

// AIResponse is an AI verdict plus the caller's remaining allowance.
type AIResponse struct {
	*detector.AIResult
	ScanID         string `json:"scan_id,omitempty"`
	ScansRemaining int    `json:"scans_remaining"`
}

// PlagiarismResponse is a plagiarism report plus the remaining allowance.
type PlagiarismResponse struct {
	*detector.PlagiarismResult
	ScanID         string `json:"scan_id,omitempty"`
	ScansRemaining int    `json:"scans_remaining"`
}

// PublicResponse is an anonymous AI verdict.
type PublicResponse struct {
	*detector.AIResult
	TestsRemaining int64 `json:"tests_remaining"`
}

// DemoResponse is the reduced verdict shown by the homepage demo.
type DemoResponse struct {
	Score     int     `json:"score"`
	Model     *string `json:"model"`
	IsAI      bool    `json:"isAI"`
	Remaining int64   `json:"remaining"`
}

// detectHandler runs a metered detection for a signed-in user.
func (s *Server) detectHandler(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := reseller.MustFromContext(ctx)
	errs := cfg.Strings.Errors
	user, _ := auth.GetUser(c)

	p, err := s.store.EnsureProfile(ctx, user.ID, user.Email, user.Name)
	if err != nil {
		s.internalError(c, "load profile", err)
		return
	}

	now := s.now()
	usage := quota.Evaluate(p.Plan, p.ScansToday, p.ScansResetAt, now)
	if usage.Reset {
		if err := s.store.ResetDailyScans(ctx, p.ID, now); err != nil {
			s.internalError(c, "reset daily scans", err)
			return
		}
	}

	if usage.Exhausted() {
		if quota.ShouldSendLimitEmail(usage.Used, usage.Limit, p.LimitEmailSentAt, now) {
			s.sendLimitEmail(ctx, cfg, p)
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":           errs.DailyLimitReached,
			"scans_remaining": 0,
		})
		return
	}

	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.TextTooShort})
		return
	}
	text := validation.SanitizeText(req.Text)
	switch err := validation.CheckText(text, validation.MinTextLength, validation.MaxTextLength); {
	case errors.Is(err, validation.ErrTextTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.TextTooShort})
		return
	case errors.Is(err, validation.ErrTextTooLong):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errs.TextTooLong})
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeAI
	}
	if mode != ModeAI && mode != ModePlagiarism {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.AnalysisError})
		return
	}
	if mode == ModePlagiarism && !cfg.Features.Enabled(reseller.FeaturePlagiarismDetection) {
		c.JSON(http.StatusForbidden, gin.H{"error": errs.ServiceUnavailable})
		return
	}

	ctx, span := traces.StartSpan(ctx, "detect",
		traces.Reseller(cfg.ID), traces.UserID(p.ID), traces.Plan(string(p.Plan)),
		traces.DetectionMode(mode), traces.TextLength(validation.Length(text)))
	var (
		result any
		score  int
	)
	switch mode {
	case ModePlagiarism:
		var r *detector.PlagiarismResult
		if r, err = s.detector.DetectPlagiarism(ctx, text); err == nil {
			result, score = r, r.Score()
		}
	default:
		var r *detector.AIResult
		if r, err = s.detector.DetectAI(ctx, text); err == nil {
			result, score = r, r.Score()
		}
	}
	traces.End(span, err)
	metrics.DetectionsTotal.WithLabelValues(mode, metrics.Outcome(err)).Inc()
	if err != nil {
		s.detectionError(c, err)
		return
	}

	if err := s.store.IncrementScans(ctx, p.ID, usage.Used); err != nil {
		if errors.Is(err, profile.ErrConflict) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":           errs.RateLimitRetry,
				"scans_remaining": 0,
			})
			return
		}
		s.internalError(c, "increment scans", err)
		return
	}

	scanID := s.recordScan(ctx, p.ID, mode, text, score, result)
	remaining := usage.RemainingAfterScan()

	switch r := result.(type) {
	case *detector.PlagiarismResult:
		c.JSON(http.StatusOK, PlagiarismResponse{PlagiarismResult: r, ScanID: scanID, ScansRemaining: remaining})
	case *detector.AIResult:
		c.JSON(http.StatusOK, AIResponse{AIResult: r, ScanID: scanID, ScansRemaining: remaining})
	}
}

// recordScan stores the scan in history. The scan is already paid for, so
// a failed write is logged and the verdict still returned.
func (s *Server) recordScan(ctx context.Context, userID, mode, text string, score int, result any) string {
	raw, err := json.Marshal(result)
	if err != nil {
		logging.L(ctx).Error("encode scan result", "error", err)
		return ""
	}
	scan := &profile.Scan{
		ID:          idgen.WithPrefix("scan_"),
		UserID:      userID,
		Mode:        mode,
		TextSnippet: profile.Snippet(text),
		Score:       score,
		Result:      raw,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.RecordScan(ctx, scan); err != nil {
		logging.L(ctx).Error("record scan", "user_id", userID, "error", err)
		return ""
	}
	return scan.ID
}

// sendLimitEmail sends the limit-reached email in the background, at most
// once per user per UTC day.
func (s *Server) sendLimitEmail(ctx context.Context, cfg *reseller.Config, p *profile.Profile) {
	if p.Email == "" {
		return
	}
	userID := p.ID
	s.goBackground(ctx, "limit email", func(ctx context.Context) error {
		return s.locks.Do(ctx, userID, func(ctx context.Context) error {
			// Re-read under the lock; a concurrent refusal may have sent it.
			cur, err := s.store.Get(ctx, userID)
			if err != nil {
				return err
			}
			now := s.now()
			usage := quota.Evaluate(cur.Plan, cur.ScansToday, cur.ScansResetAt, now)
			if !quota.ShouldSendLimitEmail(usage.Used, usage.Limit, cur.LimitEmailSentAt, now) {
				return nil
			}
			msg, err := email.Render(cfg, email.LimitReached, email.Params{
				Name: email.DisplayName(cur.FullName, cur.Email),
			})
			if err != nil {
				return err
			}
			msg.To = cur.Email
			if err := s.mailer.Send(ctx, msg); err != nil {
				return err
			}
			return s.store.MarkLimitEmailSent(ctx, userID, now)
		})
	})
}

// detectPublicHandler runs an anonymous detection under the per-IP daily
// allowance.
func (s *Server) detectPublicHandler(c *gin.Context) {
	ctx := c.Request.Context()
	errs := reseller.MustFromContext(ctx).Strings.Errors
	ip := c.ClientIP()

	if !s.checkAnonymous(c, s.publicQuota, ip, "detect-public", gin.H{
		"error":           errs.DemoLimitReached,
		"limit_reached":   true,
		"tests_remaining": 0,
	}) {
		return
	}

	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.TextTooShort})
		return
	}
	text := validation.SanitizeText(req.Text)
	switch err := validation.CheckText(text, validation.MinTextLength, validation.MaxPublicTextLength); {
	case errors.Is(err, validation.ErrTextTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.TextTooShort})
		return
	case errors.Is(err, validation.ErrTextTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.DemoTextTooLong})
		return
	}

	result, err := s.detector.DetectAI(ctx, text)
	metrics.DetectionsTotal.WithLabelValues("public", metrics.Outcome(err)).Inc()
	if err != nil {
		s.detectionError(c, err)
		return
	}

	remaining, err := s.publicQuota.Consume(ctx, ip)
	if err != nil {
		logging.L(ctx).Error("consume public allowance", "error", err)
	}
	c.JSON(http.StatusOK, PublicResponse{AIResult: result, TestsRemaining: remaining})
}

// demoDetectHandler backs the homepage hero demo.
func (s *Server) demoDetectHandler(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := reseller.MustFromContext(ctx)
	errs := cfg.Strings.Errors

	if !cfg.Features.Enabled(reseller.FeatureHeroDemo) {
		c.JSON(http.StatusNotFound, gin.H{"error": http.StatusText(http.StatusNotFound)})
		return
	}

	ip := c.ClientIP()
	if !s.checkAnonymous(c, s.demoQuota, ip, "demo-detect", gin.H{"error": errs.DemoLimitReached}) {
		return
	}

	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.TextTooShort})
		return
	}
	text := validation.SanitizeText(req.Text)
	if validation.CheckText(text, validation.MinTextLength, 0) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.TextTooShort})
		return
	}
	text = validation.Truncate(text, validation.DemoTextLength)

	result, err := s.detector.DetectAI(ctx, text)
	metrics.DetectionsTotal.WithLabelValues("demo", metrics.Outcome(err)).Inc()
	if err != nil {
		s.detectionError(c, err)
		return
	}

	remaining, err := s.demoQuota.Consume(ctx, ip)
	if err != nil {
		logging.L(ctx).Error("consume demo allowance", "error", err)
	}
	c.JSON(http.StatusOK, DemoResponse{
		Score:     result.Score(),
		IsAI:      result.AILikelihood > 0.5,
		Remaining: remaining,
	})
}

// checkAnonymous answers 429 with refusal when ip has no allowance left.
// A counter outage lets the request through.
func (s *Server) checkAnonymous(c *gin.Context, q ratelimit.Quota, ip, endpoint string, refusal gin.H) bool {
	_, ok, err := q.Check(c.Request.Context(), ip)
	if err != nil {
		logging.L(c.Request.Context()).Error("check anonymous allowance", "endpoint", endpoint, "error", err)
		return true
	}
	if !ok {
		metrics.DemoLimitHitsTotal.WithLabelValues(endpoint).Inc()
		c.JSON(http.StatusTooManyRequests, refusal)
		return false
	}
	return true
}

// detectionError maps a detector failure to a response.
func (s *Server) detectionError(c *gin.Context, err error) {
	errs := reseller.MustFromContext(c.Request.Context()).Strings.Errors
	if errors.Is(err, detector.ErrNotConfigured) || errors.Is(err, detector.ErrUnavailable) {
		logging.L(c.Request.Context()).Warn("detector unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errs.ServiceUnavailable})
		return
	}
	logging.L(c.Request.Context()).Error("detection failed", "error", err)
	msg := errs.AnalysisError
	if s.cfg.IsDevelopment() {
		msg = err.Error()
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": msg})
}

// internalError logs err and answers 500. Development builds expose the
// message to ease debugging.
func (s *Server) internalError(c *gin.Context, op string, err error) {
	logging.L(c.Request.Context()).Error(op+" failed", "error", err)
	msg := reseller.MustFromContext(c.Request.Context()).Strings.Errors.InternalError
	if s.cfg.IsDevelopment() {
		msg = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
