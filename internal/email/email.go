// Package email renders and delivers the storefront's transactional emails.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/auditelle/storefront/internal/metrics"
	"github.com/auditelle/storefront/internal/retry"
	"github.com/auditelle/storefront/internal/traces"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("email: no recipient")

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	logger *slog.Logger
}

// NewResendSender creates a sender for apiKey. baseURL overrides the API
// endpoint and may be empty.
func NewResendSender(apiKey, baseURL string, logger *slog.Logger) (*ResendSender, error) {
	hc := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &retryTransport{
			base:   http.DefaultTransport,
			policy: retry.Policy{Attempts: 3, BaseDelay: 250 * time.Millisecond, MaxDelay: 2 * time.Second},
		},
	}
	client := resend.NewCustomClient(hc, apiKey)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("email: invalid base url: %w", err)
		}
		if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
			u.Path += "/"
		}
		client.BaseURL = u
	}
	return &ResendSender{client: client, logger: logger}, nil
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (err error) {
	if msg.To == "" {
		return ErrNoRecipient
	}
	ctx, span := traces.StartSpan(ctx, "email.Send")
	defer func() { traces.End(span, err) }()
	defer func() {
		metrics.EmailsSentTotal.WithLabelValues(string(msg.Template), metrics.Outcome(err)).Inc()
	}()

	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("email: send %s: %w", msg.Template, err)
	}
	s.logger.InfoContext(ctx, "email sent", "template", msg.Template, "id", resp.Id)
	return nil
}

// retryTransport resends requests answered with 429 or 5xx. Requests
// whose body cannot be replayed go out once.
type retryTransport struct {
	base   http.RoundTripper
	policy retry.Policy
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		return t.base.RoundTrip(req)
	}
	var resp *http.Response
	err := t.policy.Do(req.Context(), func() error {
		attempt := req
		if req.GetBody != nil && req.Body != nil {
			body, err := req.GetBody()
			if err != nil {
				return retry.Permanent(err)
			}
			attempt = req.Clone(req.Context())
			attempt.Body = body
		}
		r, err := t.base.RoundTrip(attempt)
		if err != nil {
			if req.Context().Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
			// Keep the last answer for the caller once attempts run out.
			if resp != nil {
				_ = resp.Body.Close()
			}
			resp = r
			return errRetryableStatus
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		resp = r
		return nil
	})
	if err != nil && !errors.Is(err, errRetryableStatus) {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

var errRetryableStatus = errors.New("email: retryable status")

// LogSender logs messages instead of sending them. It is used when no
// Resend key is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender writing to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	metrics.EmailsSentTotal.WithLabelValues(string(msg.Template), "logged").Inc()
	s.logger.InfoContext(ctx, "email not sent (no provider)",
		"template", msg.Template, "to", msg.To, "subject", msg.Subject)
	return nil
}
