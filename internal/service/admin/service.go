package admin

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/internal/service/booking"
	"github.com/anestconsulta/booking-api/pkg/auth"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/security"
)

// PageSize is the fixed admin listing page length.
const PageSize = 15

// ListResult is one page of the filtered listing with the pagination
// envelope the dashboard renders.
type ListResult struct {
	Appointments []*model.Appointment `json:"agendamentos"`
	Total        int                  `json:"total"`
	Page         int                  `json:"pagina"`
	Pages        int                  `json:"paginas"`
}

// Service backs the staff dashboard: filtered listing, stats and
// status overrides, plus staff authentication via short-lived JWTs.
type Service struct {
	appts   repository.AppointmentRepository
	staff   repository.StaffRepository
	booking *booking.Service
	hasher  security.PasswordHasher
	jwt     auth.JWTService
}

func NewService(appts repository.AppointmentRepository, staff repository.StaffRepository, bookingSvc *booking.Service, hasher security.PasswordHasher, jwtSvc auth.JWTService) *Service {
	return &Service{
		appts:   appts,
		staff:   staff,
		booking: bookingSvc,
		hasher:  hasher,
		jwt:     jwtSvc,
	}
}

// Login authenticates a staff account and issues the dashboard JWT.
func (s *Service) Login(ctx context.Context, req *model.StaffLoginRequest) (string, *model.StaffUser, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Senha == "" {
		return "", nil, errors.BadRequest("CAMPOS_OBRIGATORIOS", "E-mail e senha obrigatórios.")
	}

	staff, err := s.staff.GetActiveByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return "", nil, errors.Unauthorized(errors.CodeInvalidCredentials, "E-mail ou senha incorretos.")
		}
		return "", nil, errors.Internal(err)
	}
	if err := s.hasher.Compare(staff.PasswordHash, req.Senha); err != nil {
		return "", nil, errors.Unauthorized(errors.CodeInvalidCredentials, "E-mail ou senha incorretos.")
	}

	token, err := s.jwt.GenerateToken(staff.ID, staff.Name, staff.Email)
	if err != nil {
		return "", nil, errors.Internal(err)
	}
	if err := s.staff.UpdateLastLogin(ctx, staff.ID); err != nil {
		return "", nil, errors.Internal(err)
	}
	return token, staff, nil
}

// List returns one page of appointments filtered by status and by a
// free-text search over name, CPF and email.
func (s *Service) List(ctx context.Context, filter *model.AppointmentFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Search = strings.TrimSpace(filter.Search)

	appts, total, err := s.appts.List(ctx, filter, PageSize)
	if err != nil {
		return nil, errors.Internal(err)
	}

	pages := (total + PageSize - 1) / PageSize
	if pages < 1 {
		pages = 1
	}
	return &ListResult{
		Appointments: appts,
		Total:        total,
		Page:         filter.Page,
		Pages:        pages,
	}, nil
}

// Stats returns the dashboard counters: today's consultations plus
// the per-status totals.
func (s *Service) Stats(ctx context.Context) (*model.AppointmentStats, error) {
	stats, err := s.appts.Stats(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return stats, nil
}

// UpdateStatus overrides an appointment's lifecycle state.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status model.AppointmentStatus) error {
	return s.booking.StaffUpdateStatus(ctx, id, status)
}
