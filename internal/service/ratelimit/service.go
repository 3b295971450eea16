package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/pkg/errors"
)

// Service enforces the per-address attempt window on sensitive
// endpoints. Counters live in the database so every instance shares
// one view; the window resets lazily on the next check after expiry.
type Service struct {
	repo          repository.RateLimitRepository
	windowMinutes int
	maxAttempts   int
}

func NewService(repo repository.RateLimitRepository, windowMinutes, maxAttempts int) *Service {
	return &Service{
		repo:          repo,
		windowMinutes: windowMinutes,
		maxAttempts:   maxAttempts,
	}
}

// Check rejects the request when the address already spent its
// attempts inside the current window. An expired window is reset
// instead, so the request passes and starts a fresh window.
func (s *Service) Check(ctx context.Context, ip, endpoint string, now time.Time) error {
	counter, err := s.repo.Get(ctx, ip, endpoint)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to check rate limit: %w", err)
	}

	window := float64(s.windowMinutes)
	elapsed := now.Sub(counter.WindowStart).Minutes()

	if elapsed > window {
		if err := s.repo.Reset(ctx, ip, endpoint); err != nil {
			return fmt.Errorf("failed to reset rate limit window: %w", err)
		}
		return nil
	}

	if counter.Attempts >= s.maxAttempts {
		remaining := int(math.Ceil(window - elapsed))
		return errors.RateLimited(remaining)
	}
	return nil
}

// Record counts one attempt. Only successful submissions are counted,
// so validation failures never consume the budget.
func (s *Service) Record(ctx context.Context, ip, endpoint string) error {
	if err := s.repo.Increment(ctx, ip, endpoint); err != nil {
		return fmt.Errorf("failed to record rate limit attempt: %w", err)
	}
	return nil
}
