package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{NewBaseRepository(db)}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	_, err := r.GetDB().ExecContext(ctx, `
		INSERT INTO patient_sessions (token, patient_id, ip, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		session.Token, session.PatientID, session.IP, session.UserAgent, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetWithPatient(ctx context.Context, token string) (*model.Session, *model.Patient, error) {
	var row struct {
		model.Session
		model.Patient
	}
	err := r.GetDB().QueryRowxContext(ctx, `
		SELECT s.token, s.patient_id, s.ip, s.user_agent, s.expires_at, s.created_at,
			p.id, p.name, p.email, p.avatar_initial, p.email_verified,
			p.phone, p.cpf, p.birth_date, p.health_plan
		FROM patient_sessions s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.token = $1 AND s.expires_at > NOW() AND p.active = TRUE`, token,
	).Scan(
		&row.Session.Token, &row.Session.PatientID, &row.Session.IP,
		&row.Session.UserAgent, &row.Session.ExpiresAt, &row.Session.CreatedAt,
		&row.Patient.ID, &row.Patient.Name, &row.Patient.Email,
		&row.Patient.AvatarInitial, &row.Patient.EmailVerified,
		&row.Patient.Phone, &row.Patient.CPF, &row.Patient.BirthDate,
		&row.Patient.HealthPlan,
	)
	if err != nil {
		return nil, nil, translateErr(err)
	}
	return &row.Session, &row.Patient, nil
}

func (r *sessionRepository) Delete(ctx context.Context, token string) error {
	// Idempotent: deleting an absent token is a success.
	_, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM patient_sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteAllForPatient(ctx context.Context, patientID int64) error {
	_, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM patient_sessions WHERE patient_id = $1`, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteOthers(ctx context.Context, patientID int64, keep string) error {
	_, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM patient_sessions WHERE patient_id = $1 AND token <> $2`,
		patientID, keep)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM patient_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
