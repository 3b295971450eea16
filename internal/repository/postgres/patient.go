package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

const patientColumns = `
	id, name, email, password_hash, avatar_initial, verify_token,
	email_verified, reset_token, reset_expires_at, phone, cpf,
	birth_date, health_plan, active, last_access_at, created_at, updated_at`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	err := r.GetDB().QueryRowxContext(ctx, `
		INSERT INTO patients (
			name, email, password_hash, avatar_initial, verify_token, email_verified
		) VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at, updated_at`,
		patient.Name, patient.Email, patient.PasswordHash,
		patient.AvatarInitial, patient.VerifyToken,
	).Scan(&patient.ID, &patient.CreatedAt, &patient.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id int64) (*model.Patient, error) {
	var patient model.Patient
	err := r.GetDB().GetContext(ctx, &patient,
		`SELECT`+patientColumns+` FROM patients WHERE id = $1`, id)
	if err != nil {
		return nil, translateErr(err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	var patient model.Patient
	err := r.GetDB().GetContext(ctx, &patient,
		`SELECT`+patientColumns+` FROM patients WHERE email = $1`, email)
	if err != nil {
		return nil, translateErr(err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByVerifyToken(ctx context.Context, token string) (*model.Patient, error) {
	var patient model.Patient
	err := r.GetDB().GetContext(ctx, &patient,
		`SELECT`+patientColumns+` FROM patients
		WHERE verify_token = $1 AND email_verified = FALSE`, token)
	if err != nil {
		return nil, translateErr(err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByResetToken(ctx context.Context, token string) (*model.Patient, error) {
	var patient model.Patient
	err := r.GetDB().GetContext(ctx, &patient,
		`SELECT`+patientColumns+` FROM patients WHERE reset_token = $1`, token)
	if err != nil {
		return nil, translateErr(err)
	}
	return &patient, nil
}

// MarkVerified consumes the verification token: verified accounts
// carry no token, making it single-use.
func (r *patientRepository) MarkVerified(ctx context.Context, id int64) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE patients
		SET email_verified = TRUE, verify_token = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark verified: %w", err)
	}
	return nil
}

func (r *patientRepository) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE patients
		SET reset_token = $2, reset_expires_at = $3, updated_at = NOW()
		WHERE id = $1`, id, token, expires)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// UpdatePassword also clears any outstanding reset token.
func (r *patientRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE patients
		SET password_hash = $2, reset_token = NULL, reset_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (r *patientRepository) UpdateProfile(ctx context.Context, id int64, name string, phone *string, birth *time.Time, plan *string, initials string) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE patients
		SET name = $2, phone = $3, birth_date = $4, health_plan = $5,
			avatar_initial = $6, updated_at = NOW()
		WHERE id = $1`, id, name, phone, birth, plan, initials)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (r *patientRepository) UpdateLastAccess(ctx context.Context, id int64) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE patients SET last_access_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last access: %w", err)
	}
	return nil
}
