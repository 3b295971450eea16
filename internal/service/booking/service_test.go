package booking

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anestconsulta/booking-api/internal/email"
	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	notificationService "github.com/anestconsulta/booking-api/internal/service/notification"
	ratelimitService "github.com/anestconsulta/booking-api/internal/service/ratelimit"
	"github.com/anestconsulta/booking-api/internal/validate"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/metrics"
)

// promauto registers on the default registry, so build the set once
// for the whole test binary.
var testMetrics = metrics.NewMetrics("bookingtest", "service")

type fakeApptRepo struct {
	appts   map[int64]*model.Appointment
	nextID  int64
	updated map[int64]model.AppointmentStatus
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{
		appts:   make(map[int64]*model.Appointment),
		nextID:  1,
		updated: make(map[int64]model.AppointmentStatus),
	}
}

// slotBusy mirrors the partial unique index: cancelled rows do not
// hold the slot.
func (r *fakeApptRepo) slotBusy(doctorID int64, date time.Time, slot string, excludeID int64) bool {
	for _, a := range r.appts {
		if a.ID == excludeID || a.Status == model.AppointmentStatusCancelled {
			continue
		}
		if a.DoctorID == doctorID && a.ConsultationDate.Equal(date) && a.Slot == slot {
			return true
		}
	}
	return false
}

func (r *fakeApptRepo) Book(_ context.Context, appt *model.Appointment) error {
	if r.slotBusy(appt.DoctorID, appt.ConsultationDate, appt.Slot, 0) {
		return repository.ErrSlotTaken
	}
	appt.ID = r.nextID
	r.nextID++
	appt.CreatedAt = time.Now()
	r.appts[appt.ID] = appt
	return nil
}

func (r *fakeApptRepo) GetByID(_ context.Context, id int64) (*model.Appointment, error) {
	appt, ok := r.appts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return appt, nil
}

func (r *fakeApptRepo) GetByIDForEmail(_ context.Context, id int64, email string) (*model.Appointment, error) {
	appt, ok := r.appts[id]
	if !ok || appt.Email != email {
		return nil, repository.ErrNotFound
	}
	return appt, nil
}

func (r *fakeApptRepo) ListByEmail(_ context.Context, email, status string) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range r.appts {
		if a.Email != email {
			continue
		}
		if status != "" && status != "todos" && string(a.Status) != status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeApptRepo) List(_ context.Context, _ *model.AppointmentFilter, _ int) ([]*model.Appointment, int, error) {
	return nil, 0, nil
}

func (r *fakeApptRepo) IsSlotAvailable(_ context.Context, doctorID int64, date time.Time, slot string, excludeID int64) (bool, error) {
	return !r.slotBusy(doctorID, date, slot, excludeID), nil
}

func (r *fakeApptRepo) Reschedule(_ context.Context, id int64, date time.Time, slot string) error {
	appt, ok := r.appts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.slotBusy(appt.DoctorID, date, slot, id) {
		return repository.ErrSlotTaken
	}
	appt.ConsultationDate = date
	appt.Slot = slot
	return nil
}

func (r *fakeApptRepo) UpdateStatus(_ context.Context, id int64, status model.AppointmentStatus) error {
	appt, ok := r.appts[id]
	if !ok {
		return repository.ErrNotFound
	}
	appt.Status = status
	r.updated[id] = status
	return nil
}

func (r *fakeApptRepo) UpdateEmailDelivery(_ context.Context, id int64, status model.EmailStatus, attempts int, sentAt *time.Time, errMsg *string) error {
	if appt, ok := r.appts[id]; ok {
		appt.EmailStatus = status
		appt.EmailAttempts = attempts
		appt.EmailSentAt = sentAt
		appt.EmailError = errMsg
	}
	return nil
}

func (r *fakeApptRepo) Stats(_ context.Context) (*model.AppointmentStats, error) {
	return &model.AppointmentStats{Total: len(r.appts)}, nil
}

func (r *fakeApptRepo) StatsByEmail(_ context.Context, _ string) (*model.AppointmentStats, error) {
	return &model.AppointmentStats{}, nil
}

type fakeDoctorRepo struct {
	doctors map[int64]*model.Doctor
}

func (r *fakeDoctorRepo) GetActive(_ context.Context, id int64) (*model.Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (r *fakeDoctorRepo) ListActive(_ context.Context) ([]*model.Doctor, error) {
	var out []*model.Doctor
	for _, d := range r.doctors {
		out = append(out, d)
	}
	return out, nil
}

type fakeRateLimitRepo struct {
	counters map[string]*model.RateLimitCounter
}

func (r *fakeRateLimitRepo) Get(_ context.Context, ip, endpoint string) (*model.RateLimitCounter, error) {
	c, ok := r.counters[ip+"|"+endpoint]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (r *fakeRateLimitRepo) Reset(_ context.Context, ip, endpoint string) error {
	delete(r.counters, ip+"|"+endpoint)
	return nil
}

func (r *fakeRateLimitRepo) Increment(_ context.Context, ip, endpoint string) error {
	key := ip + "|" + endpoint
	if c, ok := r.counters[key]; ok {
		c.Attempts++
		return nil
	}
	r.counters[key] = &model.RateLimitCounter{IP: ip, Endpoint: endpoint, Attempts: 1, WindowStart: time.Now()}
	return nil
}

type fakeEmailLogRepo struct{}

func (r *fakeEmailLogRepo) Create(_ context.Context, log *model.EmailLog) error { return nil }
func (r *fakeEmailLogRepo) ListFailedConfirmations(_ context.Context, _, _ int) ([]*model.EmailLog, error) {
	return nil, nil
}

type fakeSender struct {
	fail          bool
	confirmations int
	notices       int
}

func (s *fakeSender) SendBookingConfirmation(_ context.Context, _ *email.BookingMessage) error {
	s.confirmations++
	if s.fail {
		return assert.AnError
	}
	return nil
}

func (s *fakeSender) SendDoctorNotice(_ context.Context, _ *email.BookingMessage) error {
	s.notices++
	if s.fail {
		return assert.AnError
	}
	return nil
}

func (s *fakeSender) SendVerification(_ context.Context, _, _, _ string) error { return nil }
func (s *fakeSender) SendPasswordReset(_ context.Context, _, _, _ string) error {
	return nil
}

type fixture struct {
	svc      *Service
	appts    *fakeApptRepo
	limits   *fakeRateLimitRepo
	sender   *fakeSender
	notifier *notificationService.Service
}

func newFixture() *fixture {
	appts := newFakeApptRepo()
	limits := &fakeRateLimitRepo{counters: make(map[string]*model.RateLimitCounter)}
	sender := &fakeSender{}

	doctors := &fakeDoctorRepo{doctors: map[int64]*model.Doctor{
		1: {ID: 1, Name: "Dr. Carlos Ferreira", Specialty: "Anestesiologia", License: "CRM 12345", Email: "carlos@anestconsulta.com.br", Active: true},
	}}

	notifier := notificationService.NewService(sender, appts, &fakeEmailLogRepo{}, nil, testMetrics, zerolog.Nop())
	limiter := ratelimitService.NewService(limits, 10, 5)
	svc := NewService(appts, doctors, limiter, notifier, testMetrics, time.UTC)

	return &fixture{svc: svc, appts: appts, limits: limits, sender: sender, notifier: notifier}
}

// nextBusinessDay returns the first weekday at least minDays calendar
// days from today, as midnight UTC.
func nextBusinessDay(minDays int) time.Time {
	d := validate.Today(time.Now().UTC()).AddDate(0, 0, minDays)
	for !validate.BusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func bookingRequest(date time.Time) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		Nome:       "Maria Souza",
		Email:      "maria@example.com",
		Telefone:   "11987654321",
		CPF:        "529.982.247-25",
		Nascimento: "1990-05-20",
		MedicoID:   1,
		Tipo:       "online",
		Data:       date.Format(validate.DateLayout),
		Horario:    "09:00",
		Cirurgia:   "Herniorrafia inguinal",
	}
}

func TestCreateBooksPendingAppointment(t *testing.T) {
	f := newFixture()
	date := nextBusinessDay(7)

	appt, err := f.svc.Create(context.Background(), bookingRequest(date), "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, "52998224725", appt.CPF)
	assert.Len(t, appt.Token, 64)
	assert.Equal(t, "Dr. Carlos Ferreira", appt.DoctorName)
	assert.Equal(t, "10.0.0.1", appt.SourceIP)

	assert.Equal(t, model.EmailStatusSent, appt.EmailStatus)
	assert.Equal(t, 1, f.sender.confirmations)
	assert.Equal(t, 1, f.sender.notices)

	counter := f.limits.counters["10.0.0.1|agendamento"]
	require.NotNil(t, counter, "successful booking must consume rate-limit budget")
	assert.Equal(t, 1, counter.Attempts)
}

func TestCreateSurvivesEmailFailure(t *testing.T) {
	f := newFixture()
	f.sender.fail = true

	appt, err := f.svc.Create(context.Background(), bookingRequest(nextBusinessDay(7)), "10.0.0.1")
	require.NoError(t, err, "email failure must not undo the booking")
	assert.Equal(t, model.EmailStatusFailed, appt.EmailStatus)
	assert.NotZero(t, appt.ID)
}

func TestCreateSlotConflict(t *testing.T) {
	f := newFixture()
	date := nextBusinessDay(7)
	seedAppointment(f, date, model.AppointmentStatusPending)

	_, err := f.svc.Create(context.Background(), bookingRequest(date), "10.0.0.1")
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeSlotUnavailable, appErr.Code)

	assert.Nil(t, f.limits.counters["10.0.0.1|agendamento"], "conflict must not consume rate-limit budget")
}

func TestCreateValidationDoesNotCountAttempt(t *testing.T) {
	f := newFixture()
	req := bookingRequest(nextBusinessDay(7))
	req.CPF = "111.111.111-11"

	_, err := f.svc.Create(context.Background(), req, "10.0.0.1")
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidation, appErr.Code)
	assert.Nil(t, f.limits.counters["10.0.0.1|agendamento"])
}

func TestCreateRejectsRateLimited(t *testing.T) {
	f := newFixture()
	f.limits.counters["10.0.0.1|agendamento"] = &model.RateLimitCounter{
		IP: "10.0.0.1", Endpoint: EndpointBooking, Attempts: 5, WindowStart: time.Now(),
	}

	_, err := f.svc.Create(context.Background(), bookingRequest(nextBusinessDay(7)), "10.0.0.1")
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeRateLimit, appErr.Code)
}

func TestCreateUnknownDoctor(t *testing.T) {
	f := newFixture()
	req := bookingRequest(nextBusinessDay(7))
	req.MedicoID = 99

	_, err := f.svc.Create(context.Background(), req, "10.0.0.1")
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeDoctorNotFound, appErr.Code)
}

func seedAppointment(f *fixture, date time.Time, status model.AppointmentStatus) *model.Appointment {
	appt := &model.Appointment{
		Email:            "maria@example.com",
		DoctorID:         1,
		ConsultationDate: date,
		Slot:             "09:00",
		Status:           status,
	}
	_ = f.appts.Book(context.Background(), appt)
	appt.Status = status
	return appt
}

func TestPatientCancel(t *testing.T) {
	t.Run("pending and beyond deadline", func(t *testing.T) {
		f := newFixture()
		appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)

		require.NoError(t, f.svc.PatientCancel(context.Background(), appt.ID, "maria@example.com"))
		assert.Equal(t, model.AppointmentStatusCancelled, f.appts.appts[appt.ID].Status)
	})

	t.Run("inside 24h window", func(t *testing.T) {
		f := newFixture()
		tomorrow := validate.Today(time.Now().UTC()).AddDate(0, 0, 1)
		appt := seedAppointment(f, tomorrow, model.AppointmentStatusPending)

		err := f.svc.PatientCancel(context.Background(), appt.ID, "maria@example.com")
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeCancelDeadline, appErr.Code)
	})

	t.Run("non pending appointment", func(t *testing.T) {
		f := newFixture()
		appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusConfirmed)

		err := f.svc.PatientCancel(context.Background(), appt.ID, "maria@example.com")
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeNotFound, appErr.Code)
	})

	t.Run("someone else's appointment", func(t *testing.T) {
		f := newFixture()
		appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)

		err := f.svc.PatientCancel(context.Background(), appt.ID, "outra@example.com")
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeNotFound, appErr.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		f := newFixture()
		err := f.svc.PatientCancel(context.Background(), 0, "maria@example.com")
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeInvalidID, appErr.Code)
	})
}

func TestPatientReschedule(t *testing.T) {
	t.Run("moves date and slot", func(t *testing.T) {
		f := newFixture()
		appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)
		target := nextBusinessDay(10)

		err := f.svc.PatientReschedule(context.Background(), &model.RescheduleRequest{
			ID: appt.ID, Data: target.Format(validate.DateLayout), Horario: "15:00",
		}, "maria@example.com")
		require.NoError(t, err)

		got := f.appts.appts[appt.ID]
		assert.True(t, got.ConsultationDate.Equal(target))
		assert.Equal(t, "15:00", got.Slot)
	})

	t.Run("date too soon", func(t *testing.T) {
		f := newFixture()
		appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)
		tomorrow := validate.Today(time.Now().UTC()).AddDate(0, 0, 1)

		err := f.svc.PatientReschedule(context.Background(), &model.RescheduleRequest{
			ID: appt.ID, Data: tomorrow.Format(validate.DateLayout), Horario: "15:00",
		}, "maria@example.com")
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeRescheduleDate, appErr.Code)
	})

	t.Run("invalid slot", func(t *testing.T) {
		f := newFixture()
		appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)

		err := f.svc.PatientReschedule(context.Background(), &model.RescheduleRequest{
			ID: appt.ID, Data: nextBusinessDay(10).Format(validate.DateLayout), Horario: "12:30",
		}, "maria@example.com")
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeInvalidSlot, appErr.Code)
	})

	t.Run("target slot taken", func(t *testing.T) {
		f := newFixture()
		appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)
		blocker := seedAppointment(f, nextBusinessDay(10), model.AppointmentStatusPending)
		blocker.Slot = "15:00"

		err := f.svc.PatientReschedule(context.Background(), &model.RescheduleRequest{
			ID: appt.ID, Data: nextBusinessDay(10).Format(validate.DateLayout), Horario: "15:00",
		}, "maria@example.com")
		require.Error(t, err)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeSlotUnavailable, appErr.Code)
	})
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture()
	date := nextBusinessDay(7)

	first, err := f.svc.Create(context.Background(), bookingRequest(date), "10.0.0.1")
	require.NoError(t, err)

	// The duplicate loses while the winner is still live.
	_, err = f.svc.Create(context.Background(), bookingRequest(date), "10.0.0.2")
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeSlotUnavailable, appErr.Code)

	// Cancelling releases the slot for a fresh booking.
	require.NoError(t, f.svc.PatientCancel(context.Background(), first.ID, "maria@example.com"))

	rebooked, err := f.svc.Create(context.Background(), bookingRequest(date), "10.0.0.2")
	require.NoError(t, err, "cancelled appointments must not hold the slot")
	assert.NotEqual(t, first.ID, rebooked.ID)
	assert.Equal(t, model.AppointmentStatusCancelled, f.appts.appts[first.ID].Status)
}

func TestPanelListFlags(t *testing.T) {
	f := newFixture()
	far := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)
	near := seedAppointment(f, validate.Today(time.Now().UTC()).AddDate(0, 0, 2), model.AppointmentStatusPending)
	near.Slot = "10:00"

	list, err := f.svc.PanelList(context.Background(), "maria@example.com", "todos")
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := make(map[int64]*model.PanelAppointment, len(list))
	for _, a := range list {
		byID[a.ID] = a
	}

	assert.True(t, byID[far.ID].PodeCancelar)
	assert.True(t, byID[far.ID].PodeRemarcar)

	// Two days out: cancellable, but inside the 48h reschedule window.
	assert.True(t, byID[near.ID].PodeCancelar)
	assert.False(t, byID[near.ID].PodeRemarcar)
}

func TestStaffUpdateStatus(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, nextBusinessDay(7), model.AppointmentStatusPending)

	require.NoError(t, f.svc.StaffUpdateStatus(context.Background(), appt.ID, model.AppointmentStatusConfirmed))
	assert.Equal(t, model.AppointmentStatusConfirmed, f.appts.appts[appt.ID].Status)

	// Staff may reopen a cancelled appointment.
	require.NoError(t, f.svc.StaffUpdateStatus(context.Background(), appt.ID, model.AppointmentStatusCancelled))
	require.NoError(t, f.svc.StaffUpdateStatus(context.Background(), appt.ID, model.AppointmentStatusPending))

	err := f.svc.StaffUpdateStatus(context.Background(), appt.ID, "arquivado")
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidation, appErr.Code)
}
