package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

const appointmentColumns = `
	a.id, a.name, a.cpf, a.email, a.phone, a.birth_date, a.health_plan,
	a.doctor_id, a.kind, a.consultation_date, a.slot, a.procedure,
	a.notes, a.status, a.token, a.source_ip, a.email_status,
	a.email_attempts, a.email_sent_at, a.email_error,
	a.created_at, a.updated_at`

const appointmentJoin = appointmentColumns + `,
	d.name AS doctor_name, d.specialty AS doctor_specialty, d.license AS doctor_license
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id`

// Book inserts the appointment after re-verifying the slot inside the
// same transaction. The pre-check is a fast reject; the partial unique
// index on (doctor_id, consultation_date, slot) for non-cancelled rows
// is the final authority, so a concurrent duplicate surfaces as a
// unique violation at insert and is reported as ErrSlotTaken.
func (r *appointmentRepository) Book(ctx context.Context, appt *model.Appointment) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var taken bool
		err := tx.GetContext(ctx, &taken, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE doctor_id = $1 AND consultation_date = $2 AND slot = $3
				AND status <> 'cancelled'
			)`, appt.DoctorID, appt.ConsultationDate, appt.Slot)
		if err != nil {
			return fmt.Errorf("failed to check slot: %w", err)
		}
		if taken {
			return repository.ErrSlotTaken
		}

		err = tx.QueryRowxContext(ctx, `
			INSERT INTO appointments (
				name, cpf, email, phone, birth_date, health_plan,
				doctor_id, kind, consultation_date, slot, procedure,
				notes, status, token, source_ip, email_status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id, created_at, updated_at`,
			appt.Name, appt.CPF, appt.Email, appt.Phone, appt.BirthDate, appt.HealthPlan,
			appt.DoctorID, appt.Kind, appt.ConsultationDate, appt.Slot, appt.Procedure,
			appt.Notes, appt.Status, appt.Token, appt.SourceIP, appt.EmailStatus,
		).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrSlotTaken
			}
			return fmt.Errorf("failed to insert appointment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.GetDB().GetContext(ctx, &appt,
		`SELECT`+appointmentJoin+` WHERE a.id = $1`, id)
	if err != nil {
		return nil, translateErr(err)
	}
	return &appt, nil
}

func (r *appointmentRepository) GetByIDForEmail(ctx context.Context, id int64, email string) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.GetDB().GetContext(ctx, &appt,
		`SELECT`+appointmentJoin+` WHERE a.id = $1 AND a.email = $2`, id, email)
	if err != nil {
		return nil, translateErr(err)
	}
	return &appt, nil
}

func (r *appointmentRepository) ListByEmail(ctx context.Context, email, status string) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentJoin + ` WHERE a.email = $1`
	args := []interface{}{email}

	if status != "" && status != "todos" {
		query += ` AND a.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY a.consultation_date DESC, a.slot DESC`

	var appts []*model.Appointment
	if err := r.GetDB().SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

// List composes the admin filter as parameterized predicates; user
// input never reaches the query text.
func (r *appointmentRepository) List(ctx context.Context, filter *model.AppointmentFilter, pageSize int) ([]*model.Appointment, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filter.Status != "" && filter.Status != "todos" {
		where += fmt.Sprintf(" AND a.status = $%d", argCount)
		args = append(args, filter.Status)
		argCount++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (a.name ILIKE $%d OR a.cpf LIKE $%d OR a.email ILIKE $%d)",
			argCount, argCount+1, argCount+2)
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
		argCount += 3
	}

	var total int
	err := r.GetDB().GetContext(ctx, &total,
		`SELECT COUNT(*) FROM appointments a`+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	query := `SELECT` + appointmentJoin + where +
		fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var appts []*model.Appointment
	if err := r.GetDB().SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, total, nil
}

func (r *appointmentRepository) IsSlotAvailable(ctx context.Context, doctorID int64, date time.Time, slot string, excludeID int64) (bool, error) {
	query := `
		SELECT NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND consultation_date = $2 AND slot = $3
			AND status <> 'cancelled'`
	args := []interface{}{doctorID, date, slot}

	if excludeID > 0 {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}
	query += `)`

	var available bool
	if err := r.GetDB().GetContext(ctx, &available, query, args...); err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return available, nil
}

// Reschedule runs the same check-then-write pattern as Book, excluding
// the appointment's own row from the conflict check.
func (r *appointmentRepository) Reschedule(ctx context.Context, id int64, date time.Time, slot string) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var taken bool
		err := tx.GetContext(ctx, &taken, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE doctor_id = (SELECT doctor_id FROM appointments WHERE id = $1)
				AND consultation_date = $2 AND slot = $3
				AND status <> 'cancelled' AND id <> $1
			)`, id, date, slot)
		if err != nil {
			return fmt.Errorf("failed to check slot: %w", err)
		}
		if taken {
			return repository.ErrSlotTaken
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET consultation_date = $2, slot = $3, updated_at = NOW()
			WHERE id = $1`, id, date, slot)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrSlotTaken
			}
			return fmt.Errorf("failed to reschedule: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id int64, status model.AppointmentStatus) error {
	result, err := r.GetDB().ExecContext(ctx, `
		UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) UpdateEmailDelivery(ctx context.Context, id int64, status model.EmailStatus, attempts int, sentAt *time.Time, errMsg *string) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE appointments
		SET email_status = $2, email_attempts = $3, email_sent_at = $4,
			email_error = $5, updated_at = NOW()
		WHERE id = $1`,
		id, status, attempts, sentAt, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update email delivery: %w", err)
	}
	return nil
}

const statsQuery = `
	SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE consultation_date = CURRENT_DATE) AS today,
		COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
		COUNT(*) FILTER (WHERE status = 'realized') AS realized,
		COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
	FROM appointments`

func (r *appointmentRepository) Stats(ctx context.Context) (*model.AppointmentStats, error) {
	var stats model.AppointmentStats
	if err := r.GetDB().GetContext(ctx, &stats, statsQuery); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &stats, nil
}

func (r *appointmentRepository) StatsByEmail(ctx context.Context, email string) (*model.AppointmentStats, error) {
	var stats model.AppointmentStats
	if err := r.GetDB().GetContext(ctx, &stats, statsQuery+` WHERE email = $1`, email); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &stats, nil
}
