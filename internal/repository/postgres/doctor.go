package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
)

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func (r *doctorRepository) GetActive(ctx context.Context, id int64) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.GetDB().GetContext(ctx, &doctor, `
		SELECT id, name, specialty, license, email, active, created_at
		FROM doctors
		WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return nil, translateErr(err)
	}
	return &doctor, nil
}

func (r *doctorRepository) ListActive(ctx context.Context) ([]*model.Doctor, error) {
	var doctors []*model.Doctor
	err := r.GetDB().SelectContext(ctx, &doctors, `
		SELECT id, name, specialty, license, email, active, created_at
		FROM doctors
		WHERE active = TRUE
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
