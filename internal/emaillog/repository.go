package emaillog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbitlabs/accounts-backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordSent inserts a log row for a successfully sent email.
func (r *Repository) RecordSent(ctx context.Context, userID uuid.UUID, emailType, recipient, subject string) error {
	const q = `INSERT INTO email_logs (user_id, email_type, recipient_email, subject, status, sent_at)
		VALUES ($1, $2, $3, NULLIF($4,''), 'sent', NOW())`
	_, err := r.pool.Exec(ctx, q, userID, emailType, recipient, subject)
	return err
}

// RecordFailed inserts a log row for a failed delivery attempt.
func (r *Repository) RecordFailed(ctx context.Context, userID uuid.UUID, emailType, recipient, errMsg string) error {
	const q = `INSERT INTO email_logs (user_id, email_type, recipient_email, status, error_message)
		VALUES ($1, $2, $3, 'failed', NULLIF($4,''))`
	_, err := r.pool.Exec(ctx, q, userID, emailType, recipient, errMsg)
	return err
}

// ListByUser returns email logs for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, user_id, email_type, recipient_email, COALESCE(subject,''), status, sent_at, COALESCE(error_message,''), created_at
		FROM email_logs
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var sentAt *time.Time
		if err := rows.Scan(&el.ID, &el.UserID, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.Status, &sentAt, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, err
		}
		el.SentAt = sentAt
		list = append(list, &el)
	}
	return list, rows.Err()
}
