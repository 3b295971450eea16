package doctor

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/pkg/errors"
)

const rosterKey = "doctors:active"

// Service serves the read-only doctor roster. The roster changes
// rarely, so reads go through a short-lived in-process cache.
type Service struct {
	repo  repository.DoctorRepository
	cache *cache.Cache
}

func NewService(repo repository.DoctorRepository, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

// ListActive returns every bookable doctor.
func (s *Service) ListActive(ctx context.Context) ([]*model.Doctor, error) {
	if cached, ok := s.cache.Get(rosterKey); ok {
		return cached.([]*model.Doctor), nil
	}

	doctors, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	s.cache.Set(rosterKey, doctors, cache.DefaultExpiration)
	return doctors, nil
}
