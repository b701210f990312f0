package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/auditelle/storefront/internal/pagination"
	"github.com/auditelle/storefront/internal/reseller"
	"github.com/lib/pq"
)

// PostgresStore persists profiles and scans in PostgreSQL. The schema
// lives in migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed profile store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const profileColumns = `id, email, full_name, plan, scans_today, scans_reset_at,
	stripe_customer_id, stripe_subscription_id, welcome_email_sent,
	limit_email_sent_at, created_at`

func (p *PostgresStore) Get(ctx context.Context, id string) (*Profile, error) {
	return scanProfile(p.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

func (p *PostgresStore) EnsureProfile(ctx context.Context, id, email, fullName string) (*Profile, error) {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, plan)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (id) DO NOTHING`,
		id, email, fullName, string(reseller.PlanFree))
	if err != nil {
		return nil, err
	}
	return p.Get(ctx, id)
}

func (p *PostgresStore) ResetDailyScans(ctx context.Context, id string, at time.Time) error {
	return expectRow(p.db.ExecContext(ctx, `
		UPDATE profiles SET scans_today = 0, scans_reset_at = $2, updated_at = NOW()
		WHERE id = $1`, id, at.UTC()))
}

func (p *PostgresStore) IncrementScans(ctx context.Context, id string, expected int) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE profiles SET scans_today = scans_today + 1, updated_at = NOW()
		WHERE id = $1 AND scans_today = $2`, id, expected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (p *PostgresStore) SetStripeCustomer(ctx context.Context, id, customerID string) error {
	return expectRow(p.db.ExecContext(ctx, `
		UPDATE profiles SET stripe_customer_id = $2, updated_at = NOW()
		WHERE id = $1`, id, customerID))
}

func (p *PostgresStore) ActivateSubscription(ctx context.Context, id string, plan reseller.PlanID, customerID, subscriptionID string) error {
	return expectRow(p.db.ExecContext(ctx, `
		UPDATE profiles SET plan = $2,
			stripe_customer_id = COALESCE(NULLIF($3, ''), stripe_customer_id),
			stripe_subscription_id = NULLIF($4, ''),
			updated_at = NOW()
		WHERE id = $1`, id, string(plan), customerID, subscriptionID))
}

func (p *PostgresStore) SetPlanBySubscription(ctx context.Context, subscriptionID string, plan reseller.PlanID) error {
	return expectRow(p.db.ExecContext(ctx, `
		UPDATE profiles SET plan = $2, updated_at = NOW()
		WHERE stripe_subscription_id = $1`, subscriptionID, string(plan)))
}

func (p *PostgresStore) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return expectRow(p.db.ExecContext(ctx, `
		UPDATE profiles SET plan = $2, stripe_subscription_id = NULL, updated_at = NOW()
		WHERE stripe_subscription_id = $1`, subscriptionID, string(reseller.PlanFree)))
}

func (p *PostgresStore) MarkWelcomeEmailSent(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE profiles SET welcome_email_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND welcome_email_sent = FALSE`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := p.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (p *PostgresStore) MarkLimitEmailSent(ctx context.Context, id string, at time.Time) error {
	return expectRow(p.db.ExecContext(ctx, `
		UPDATE profiles SET limit_email_sent_at = $2, updated_at = NOW()
		WHERE id = $1`, id, at.UTC()))
}

func (p *PostgresStore) RecordScan(ctx context.Context, s *Scan) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var result []byte
	if len(s.Result) > 0 {
		result = s.Result
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO scans (id, user_id, mode, text_snippet, score, full_result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.Mode, s.TextSnippet, s.Score, result, createdAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (p *PostgresStore) ListScans(ctx context.Context, userID string, after *pagination.Cursor, limit int) ([]*Scan, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, user_id, mode, text_snippet, score, full_result, created_at
			FROM scans WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, userID, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, user_id, mode, text_snippet, score, full_result, created_at
			FROM scans WHERE user_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4`, userID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Scan
	for rows.Next() {
		s := &Scan{}
		var result []byte
		if err := rows.Scan(&s.ID, &s.UserID, &s.Mode, &s.TextSnippet, &s.Score, &result, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Result = result
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanProfile(row *sql.Row) (*Profile, error) {
	pr := &Profile{}
	var (
		plan                 string
		fullName, customerID sql.NullString
		subscriptionID       sql.NullString
		resetAt, limitSentAt sql.NullTime
	)
	err := row.Scan(&pr.ID, &pr.Email, &fullName, &plan, &pr.ScansToday, &resetAt,
		&customerID, &subscriptionID, &pr.WelcomeEmailSent, &limitSentAt, &pr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pr.Plan = reseller.PlanID(plan)
	pr.FullName = fullName.String
	pr.StripeCustomerID = customerID.String
	pr.StripeSubscriptionID = subscriptionID.String
	if resetAt.Valid {
		pr.ScansResetAt = resetAt.Time.UTC()
	}
	if limitSentAt.Valid {
		pr.LimitEmailSentAt = limitSentAt.Time.UTC()
	}
	return pr, nil
}

// expectRow turns a zero-row update into ErrNotFound.
func expectRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
