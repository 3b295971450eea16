package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/pkg/errors"
)

type fakeRateLimitRepo struct {
	counters map[string]*model.RateLimitCounter
	resets   int
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{counters: make(map[string]*model.RateLimitCounter)}
}

func (r *fakeRateLimitRepo) Get(_ context.Context, ip, endpoint string) (*model.RateLimitCounter, error) {
	c, ok := r.counters[ip+"|"+endpoint]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (r *fakeRateLimitRepo) Reset(_ context.Context, ip, endpoint string) error {
	r.resets++
	delete(r.counters, ip+"|"+endpoint)
	return nil
}

func (r *fakeRateLimitRepo) Increment(_ context.Context, ip, endpoint string) error {
	key := ip + "|" + endpoint
	if c, ok := r.counters[key]; ok {
		c.Attempts++
		return nil
	}
	r.counters[key] = &model.RateLimitCounter{
		IP:          ip,
		Endpoint:    endpoint,
		Attempts:    1,
		WindowStart: time.Now(),
	}
	return nil
}

func TestCheckAllowsUnknownAddress(t *testing.T) {
	svc := NewService(newFakeRateLimitRepo(), 10, 5)
	err := svc.Check(context.Background(), "10.0.0.1", "agendamento", time.Now())
	assert.NoError(t, err)
}

func TestCheckAllowsUnderLimit(t *testing.T) {
	repo := newFakeRateLimitRepo()
	svc := NewService(repo, 10, 5)
	now := time.Now()
	repo.counters["10.0.0.1|agendamento"] = &model.RateLimitCounter{
		IP: "10.0.0.1", Endpoint: "agendamento", Attempts: 4, WindowStart: now.Add(-2 * time.Minute),
	}

	assert.NoError(t, svc.Check(context.Background(), "10.0.0.1", "agendamento", now))
}

func TestCheckRejectsAtLimit(t *testing.T) {
	repo := newFakeRateLimitRepo()
	svc := NewService(repo, 10, 5)
	now := time.Now()
	repo.counters["10.0.0.1|agendamento"] = &model.RateLimitCounter{
		IP: "10.0.0.1", Endpoint: "agendamento", Attempts: 5, WindowStart: now.Add(-3 * time.Minute),
	}

	err := svc.Check(context.Background(), "10.0.0.1", "agendamento", now)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.CodeRateLimit, appErr.Code)
	// 10 minute window minus 3 elapsed, rounded up.
	assert.Contains(t, appErr.Message, "7 minuto(s)")
}

func TestCheckResetsExpiredWindow(t *testing.T) {
	repo := newFakeRateLimitRepo()
	svc := NewService(repo, 10, 5)
	now := time.Now()
	repo.counters["10.0.0.1|agendamento"] = &model.RateLimitCounter{
		IP: "10.0.0.1", Endpoint: "agendamento", Attempts: 5, WindowStart: now.Add(-11 * time.Minute),
	}

	assert.NoError(t, svc.Check(context.Background(), "10.0.0.1", "agendamento", now))
	assert.Equal(t, 1, repo.resets)
}

func TestRecordOpensAndBumpsWindow(t *testing.T) {
	repo := newFakeRateLimitRepo()
	svc := NewService(repo, 10, 5)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "10.0.0.1", "agendamento"))
	require.NoError(t, svc.Record(ctx, "10.0.0.1", "agendamento"))

	c := repo.counters["10.0.0.1|agendamento"]
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Attempts)
}
