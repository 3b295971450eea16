package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
)

type staffRepository struct {
	BaseRepository
}

func NewStaffRepository(db *sqlx.DB) repository.StaffRepository {
	return &staffRepository{NewBaseRepository(db)}
}

func (r *staffRepository) GetActiveByEmail(ctx context.Context, email string) (*model.StaffUser, error) {
	var staff model.StaffUser
	err := r.GetDB().GetContext(ctx, &staff, `
		SELECT id, name, email, password_hash, active, last_login_at, created_at
		FROM staff_users
		WHERE email = $1 AND active = TRUE`,
		email)
	if err != nil {
		return nil, translateErr(err)
	}
	return &staff, nil
}

func (r *staffRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE staff_users SET last_login_at = NOW() WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to update staff last login: %w", err)
	}
	return nil
}
