package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/pkg/auth"
	apperrors "github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/security"
)

type pagingApptRepo struct {
	total      int
	lastFilter *model.AppointmentFilter
}

func (r *pagingApptRepo) Book(_ context.Context, _ *model.Appointment) error { return nil }
func (r *pagingApptRepo) GetByID(_ context.Context, _ int64) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}
func (r *pagingApptRepo) GetByIDForEmail(_ context.Context, _ int64, _ string) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}
func (r *pagingApptRepo) ListByEmail(_ context.Context, _, _ string) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *pagingApptRepo) List(_ context.Context, filter *model.AppointmentFilter, pageSize int) ([]*model.Appointment, int, error) {
	r.lastFilter = filter
	n := r.total - (filter.Page-1)*pageSize
	if n > pageSize {
		n = pageSize
	}
	if n < 0 {
		n = 0
	}
	return make([]*model.Appointment, n), r.total, nil
}

func (r *pagingApptRepo) IsSlotAvailable(_ context.Context, _ int64, _ time.Time, _ string, _ int64) (bool, error) {
	return true, nil
}
func (r *pagingApptRepo) Reschedule(_ context.Context, _ int64, _ time.Time, _ string) error {
	return nil
}
func (r *pagingApptRepo) UpdateStatus(_ context.Context, _ int64, _ model.AppointmentStatus) error {
	return nil
}
func (r *pagingApptRepo) UpdateEmailDelivery(_ context.Context, _ int64, _ model.EmailStatus, _ int, _ *time.Time, _ *string) error {
	return nil
}
func (r *pagingApptRepo) Stats(_ context.Context) (*model.AppointmentStats, error) {
	return &model.AppointmentStats{Total: r.total, Pending: 2, Today: 1}, nil
}
func (r *pagingApptRepo) StatsByEmail(_ context.Context, _ string) (*model.AppointmentStats, error) {
	return &model.AppointmentStats{}, nil
}

type fakeStaffRepo struct {
	user       *model.StaffUser
	lastLogins int
}

func (r *fakeStaffRepo) GetActiveByEmail(_ context.Context, email string) (*model.StaffUser, error) {
	if r.user == nil || r.user.Email != email {
		return nil, repository.ErrNotFound
	}
	return r.user, nil
}

func (r *fakeStaffRepo) UpdateLastLogin(_ context.Context, _ int64) error {
	r.lastLogins++
	return nil
}

func newAdminFixture(t *testing.T, total int) (*Service, *pagingApptRepo, *fakeStaffRepo) {
	t.Helper()
	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash("AdminSenha1")
	require.NoError(t, err)

	appts := &pagingApptRepo{total: total}
	staff := &fakeStaffRepo{user: &model.StaffUser{
		ID: 1, Name: "Recepção", Email: "admin@anestconsulta.com.br", PasswordHash: hash, Active: true,
	}}
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)

	// The booking service is only exercised through UpdateStatus, which
	// these tests do not reach; other paths are covered in its own package.
	svc := NewService(appts, staff, nil, hasher, jwtSvc)
	return svc, appts, staff
}

func TestAdminLogin(t *testing.T) {
	svc, _, staff := newAdminFixture(t, 0)

	t.Run("issues dashboard token", func(t *testing.T) {
		token, user, err := svc.Login(context.Background(), &model.StaffLoginRequest{
			Email: "Admin@AnestConsulta.com.br", Senha: "AdminSenha1",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, 1, staff.lastLogins)

		claims, err := auth.NewJWTService("test-secret", time.Hour).ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), claims.StaffID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), &model.StaffLoginRequest{
			Email: "admin@anestconsulta.com.br", Senha: "errada",
		})
		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInvalidCredentials, appErr.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), &model.StaffLoginRequest{
			Email: "nobody@anestconsulta.com.br", Senha: "AdminSenha1",
		})
		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInvalidCredentials, appErr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), &model.StaffLoginRequest{})
		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "CAMPOS_OBRIGATORIOS", appErr.Code)
	})
}

func TestAdminList(t *testing.T) {
	t.Run("pagination envelope", func(t *testing.T) {
		svc, _, _ := newAdminFixture(t, 32)

		result, err := svc.List(context.Background(), &model.AppointmentFilter{Page: 1})
		require.NoError(t, err)
		assert.Equal(t, 32, result.Total)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 3, result.Pages)
		assert.Len(t, result.Appointments, PageSize)

		result, err = svc.List(context.Background(), &model.AppointmentFilter{Page: 3})
		require.NoError(t, err)
		assert.Len(t, result.Appointments, 2)
	})

	t.Run("empty listing still reports one page", func(t *testing.T) {
		svc, _, _ := newAdminFixture(t, 0)
		result, err := svc.List(context.Background(), &model.AppointmentFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 1, result.Pages)
	})

	t.Run("search is trimmed and page floored", func(t *testing.T) {
		svc, appts, _ := newAdminFixture(t, 5)
		_, err := svc.List(context.Background(), &model.AppointmentFilter{Page: -2, Search: "  maria  "})
		require.NoError(t, err)
		assert.Equal(t, 1, appts.lastFilter.Page)
		assert.Equal(t, "maria", appts.lastFilter.Search)
	})
}

func TestAdminStats(t *testing.T) {
	svc, _, _ := newAdminFixture(t, 10)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Today)
}
