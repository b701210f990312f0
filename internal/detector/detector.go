// Package detector talks to the upstream AI-detection and plagiarism APIs.
//
// Calls are retried with backoff on 5xx and 429 responses, never on other
// 4xx responses, and go through a circuit breaker per upstream so a failing
// provider is not hammered while it recovers.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/auditelle/storefront/internal/circuitbreaker"
	"github.com/auditelle/storefront/internal/metrics"
	"github.com/auditelle/storefront/internal/retry"
	"github.com/auditelle/storefront/internal/traces"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrNotConfigured = errors.New("detector: not configured")
	ErrUnavailable   = errors.New("detector: upstream unavailable")
)

// Detector is the subset of Client the HTTP layer depends on.
type Detector interface {
	DetectAI(ctx context.Context, text string) (*AIResult, error)
	DetectPlagiarism(ctx context.Context, text string) (*PlagiarismResult, error)
}

// APIError is a non-2xx answer from an upstream.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("detector: upstream returned %d: %s", e.Status, e.Body)
}

// retryable reports whether the upstream may succeed if asked again.
func (e *APIError) retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Segment is one scored window of the analysed text.
type Segment struct {
	Text         string  `json:"text"`
	AILikelihood float64 `json:"ai_likelihood"`
	Label        string  `json:"label,omitempty"`
	Confidence   string  `json:"confidence,omitempty"`
}

// AIResult is the detection verdict returned to clients. Likelihoods are
// fractions in [0, 1].
type AIResult struct {
	AILikelihood         float64   `json:"ai_likelihood"`
	AIAssistedLikelihood float64   `json:"ai_assisted_likelihood"`
	HumanLikelihood      float64   `json:"human_likelihood"`
	Headline             string    `json:"headline"`
	Prediction           string    `json:"prediction,omitempty"`
	PredictionShort      string    `json:"prediction_short,omitempty"`
	DashboardLink        string    `json:"dashboard_link,omitempty"`
	Sentences            []Segment `json:"sentences,omitempty"`
}

// Score is the AI likelihood as a rounded percentage.
func (r *AIResult) Score() int {
	return int(math.Round(r.AILikelihood * 100))
}

// Source is a passage found elsewhere on the web.
type Source struct {
	SourceURL       string  `json:"source_url"`
	MatchedText     string  `json:"matched_text"`
	SimilarityScore float64 `json:"similarity_score"`
}

// PlagiarismResult mirrors the upstream plagiarism report.
type PlagiarismResult struct {
	PlagiarismDetected bool     `json:"plagiarism_detected"`
	PercentPlagiarized float64  `json:"percent_plagiarized"`
	PlagiarizedContent []Source `json:"plagiarized_content"`
}

// Score is the plagiarized share as a rounded percentage.
func (r *PlagiarismResult) Score() int {
	return int(math.Round(r.PercentPlagiarized * 100))
}

// Options configures a Client. APIKey is sent as x-api-key to both
// upstreams.
type Options struct {
	APIKey        string
	AIURL         string
	PlagiarismURL string
	HTTPClient    *http.Client
	Retry         retry.Policy
	Breaker       *circuitbreaker.Breaker
}

// Client calls the detection upstreams.
type Client struct {
	apiKey        string
	aiURL         string
	plagiarismURL string
	http          *http.Client
	retry         retry.Policy
	breaker       *circuitbreaker.Breaker
}

// New creates a Client. Zero-valued options get production defaults.
func New(opts Options) *Client {
	c := &Client{
		apiKey:        opts.APIKey,
		aiURL:         opts.AIURL,
		plagiarismURL: opts.PlagiarismURL,
		http:          opts.HTTPClient,
		retry:         opts.Retry,
		breaker:       opts.Breaker,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.retry.Attempts == 0 {
		c.retry = retry.Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
	}
	if c.breaker == nil {
		c.breaker = circuitbreaker.New(5, 30*time.Second)
	}
	return c
}

var _ Detector = (*Client)(nil)

type v3Request struct {
	Text                string `json:"text"`
	PublicDashboardLink bool   `json:"public_dashboard_link"`
}

type v3Response struct {
	Headline           string  `json:"headline"`
	Prediction         string  `json:"prediction"`
	PredictionShort    string  `json:"prediction_short"`
	FractionAI         float64 `json:"fraction_ai"`
	FractionAIAssisted float64 `json:"fraction_ai_assisted"`
	FractionHuman      float64 `json:"fraction_human"`
	DashboardLink      string  `json:"dashboard_link"`
	Windows            []struct {
		Text              string  `json:"text"`
		Label             string  `json:"label"`
		AIAssistanceScore float64 `json:"ai_assistance_score"`
		Confidence        string  `json:"confidence"`
	} `json:"windows"`
}

// DetectAI scores text for machine authorship.
func (c *Client) DetectAI(ctx context.Context, text string) (_ *AIResult, err error) {
	if c.apiKey == "" || c.aiURL == "" {
		return nil, ErrNotConfigured
	}
	ctx, span := traces.StartSpan(ctx, "detector.DetectAI",
		traces.DetectionMode("ai"), traces.TextLength(len(text)))
	defer func() { traces.End(span, err) }()
	timer := prometheus.NewTimer(metrics.DetectionDuration.WithLabelValues("ai"))
	defer timer.ObserveDuration()

	var resp v3Response
	if err := c.call(ctx, "pangram", c.aiURL, v3Request{Text: text, PublicDashboardLink: true}, &resp); err != nil {
		return nil, err
	}

	out := &AIResult{
		AILikelihood:         resp.FractionAI,
		AIAssistedLikelihood: resp.FractionAIAssisted,
		HumanLikelihood:      resp.FractionHuman,
		Headline:             resp.Headline,
		Prediction:           resp.Prediction,
		PredictionShort:      resp.PredictionShort,
		DashboardLink:        resp.DashboardLink,
	}
	for _, w := range resp.Windows {
		out.Sentences = append(out.Sentences, Segment{
			Text:         w.Text,
			AILikelihood: w.AIAssistanceScore,
			Label:        w.Label,
			Confidence:   w.Confidence,
		})
	}
	return out, nil
}

// DetectPlagiarism looks for text on the public web.
func (c *Client) DetectPlagiarism(ctx context.Context, text string) (_ *PlagiarismResult, err error) {
	if c.apiKey == "" || c.plagiarismURL == "" {
		return nil, ErrNotConfigured
	}
	ctx, span := traces.StartSpan(ctx, "detector.DetectPlagiarism",
		traces.DetectionMode("plagiarism"), traces.TextLength(len(text)))
	defer func() { traces.End(span, err) }()
	timer := prometheus.NewTimer(metrics.DetectionDuration.WithLabelValues("plagiarism"))
	defer timer.ObserveDuration()

	var out PlagiarismResult
	if err := c.call(ctx, "plagiarism", c.plagiarismURL, struct {
		Text string `json:"text"`
	}{text}, &out); err != nil {
		return nil, err
	}
	if out.PlagiarizedContent == nil {
		out.PlagiarizedContent = []Source{}
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, upstream, url string, body, out any) error {
	err := c.breaker.Execute(upstream, func() error {
		policy := c.retry
		policy.OnRetry = func(attempt int, err error, wait time.Duration) {
			metrics.UpstreamRetriesTotal.WithLabelValues(upstream).Inc()
			if c.retry.OnRetry != nil {
				c.retry.OnRetry(attempt, err, wait)
			}
		}
		return policy.Do(ctx, func() error {
			return c.post(ctx, url, body, out)
		})
	}, isClientError)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %s", ErrUnavailable, upstream)
	}
	return err
}

// isClientError marks failures caused by the request rather than the
// upstream; they never count against the breaker.
func isClientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.retryable()
	}
	return errors.Is(err, context.Canceled)
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return retry.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
		if apiErr.retryable() {
			return retry.After(apiErr, retryAfter(resp.Header.Get("Retry-After")))
		}
		return retry.Permanent(apiErr)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("detector: decode response: %w", err))
	}
	return nil
}

// retryAfter parses a Retry-After header given in seconds. HTTP dates
// are not sent by either upstream and read as zero.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
