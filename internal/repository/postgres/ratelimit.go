package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
)

type rateLimitRepository struct {
	BaseRepository
}

func NewRateLimitRepository(db *sqlx.DB) repository.RateLimitRepository {
	return &rateLimitRepository{NewBaseRepository(db)}
}

func (r *rateLimitRepository) Get(ctx context.Context, ip, endpoint string) (*model.RateLimitCounter, error) {
	var counter model.RateLimitCounter
	err := r.GetDB().GetContext(ctx, &counter, `
		SELECT ip, endpoint, attempts, window_start
		FROM rate_limits
		WHERE ip = $1 AND endpoint = $2`, ip, endpoint)
	if err != nil {
		return nil, translateErr(err)
	}
	return &counter, nil
}

func (r *rateLimitRepository) Reset(ctx context.Context, ip, endpoint string) error {
	_, err := r.GetDB().ExecContext(ctx, `
		UPDATE rate_limits
		SET attempts = 0, window_start = NOW()
		WHERE ip = $1 AND endpoint = $2`, ip, endpoint)
	if err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

func (r *rateLimitRepository) Increment(ctx context.Context, ip, endpoint string) error {
	_, err := r.GetDB().ExecContext(ctx, `
		INSERT INTO rate_limits (ip, endpoint, attempts, window_start)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (ip, endpoint)
		DO UPDATE SET attempts = rate_limits.attempts + 1`, ip, endpoint)
	if err != nil {
		return fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return nil
}
