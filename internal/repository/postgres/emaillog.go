package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
)

type emailLogRepository struct {
	BaseRepository
}

func NewEmailLogRepository(db *sqlx.DB) repository.EmailLogRepository {
	return &emailLogRepository{NewBaseRepository(db)}
}

func (r *emailLogRepository) Create(ctx context.Context, log *model.EmailLog) error {
	err := r.GetDB().QueryRowxContext(ctx, `
		INSERT INTO email_logs (appointment_id, kind, recipient, subject, sent, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		log.AppointmentID, log.Kind, log.Recipient, log.Subject,
		log.Sent, log.Error, log.SentAt,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create email log: %w", err)
	}
	return nil
}

// ListFailedConfirmations picks the most recent failed patient
// confirmation per appointment that is still marked failed and has
// redelivery attempts left.
func (r *emailLogRepository) ListFailedConfirmations(ctx context.Context, maxAttempts, limit int) ([]*model.EmailLog, error) {
	var logs []*model.EmailLog
	err := r.GetDB().SelectContext(ctx, &logs, `
		SELECT DISTINCT ON (l.appointment_id)
			l.id, l.appointment_id, l.kind, l.recipient, l.subject,
			l.sent, l.error, l.sent_at, l.created_at
		FROM email_logs l
		JOIN appointments a ON a.id = l.appointment_id
		WHERE l.kind = $1 AND l.sent = FALSE
		AND a.email_status = 'failed' AND a.email_attempts < $2
		ORDER BY l.appointment_id, l.created_at DESC
		LIMIT $3`,
		model.EmailKindPatientConfirmation, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed confirmations: %w", err)
	}
	return logs, nil
}
