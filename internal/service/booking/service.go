package booking

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/internal/service/notification"
	"github.com/anestconsulta/booking-api/internal/service/ratelimit"
	"github.com/anestconsulta/booking-api/internal/validate"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/messaging"
	"github.com/anestconsulta/booking-api/pkg/metrics"
	"github.com/anestconsulta/booking-api/pkg/security"
)

// EndpointBooking keys the domain rate limiter for public submissions.
const EndpointBooking = "agendamento"

// Service owns the appointment lifecycle: pending on creation, then
// confirmed, cancelled or realized. Cancellation is always a status
// transition; the slot is freed because the uniqueness rule ignores
// cancelled rows.
type Service struct {
	apptRepo   repository.AppointmentRepository
	doctorRepo repository.DoctorRepository
	limiter    *ratelimit.Service
	notifier   *notification.Service
	metrics    *metrics.Metrics
	loc        *time.Location
}

func NewService(apptRepo repository.AppointmentRepository, doctorRepo repository.DoctorRepository, limiter *ratelimit.Service, notifier *notification.Service, m *metrics.Metrics, loc *time.Location) *Service {
	return &Service{
		apptRepo:   apptRepo,
		doctorRepo: doctorRepo,
		limiter:    limiter,
		notifier:   notifier,
		metrics:    m,
		loc:        loc,
	}
}

// Create books a slot for a public submission. Order matters: rate
// limit first, then field validation, then doctor lookup, then the
// transactional insert. Only a persisted booking consumes rate-limit
// budget. Emails are sent after commit and never undo the booking.
func (s *Service) Create(ctx context.Context, req *model.CreateBookingRequest, ip string) (*model.Appointment, error) {
	now := time.Now().In(s.loc)

	if err := s.limiter.Check(ctx, ip, EndpointBooking, now); err != nil {
		if _, ok := errors.As(err); ok {
			s.metrics.BookingsRejected.WithLabelValues("rate_limit").Inc()
			return nil, err
		}
		return nil, errors.Internal(err)
	}

	data, fieldErrs := validate.Booking(req, now, s.loc)
	if fieldErrs != nil {
		s.metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return nil, errors.Validation(fieldErrs)
	}

	doctor, err := s.doctorRepo.GetActive(ctx, data.DoctorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			s.metrics.BookingsRejected.WithLabelValues("doctor").Inc()
			return nil, errors.NotFoundCode(errors.CodeDoctorNotFound, "Médico não encontrado ou inativo.")
		}
		return nil, errors.Internal(err)
	}

	token, err := security.NewToken()
	if err != nil {
		return nil, errors.Internal(err)
	}

	appt := &model.Appointment{
		Name:             data.Name,
		CPF:              data.CPF,
		Email:            data.Email,
		Phone:            data.Phone,
		BirthDate:        data.BirthDate,
		HealthPlan:       optional(data.HealthPlan),
		DoctorID:         doctor.ID,
		Kind:             data.Kind,
		ConsultationDate: data.ConsultationDate,
		Slot:             data.Slot,
		Procedure:        data.Procedure,
		Notes:            optional(data.Notes),
		Status:           model.AppointmentStatusPending,
		Token:            token,
		SourceIP:         ip,
		EmailStatus:      model.EmailStatusPending,
	}

	if err := s.apptRepo.Book(ctx, appt); err != nil {
		if stderrors.Is(err, repository.ErrSlotTaken) {
			s.metrics.BookingConflicts.Inc()
			return nil, errors.SlotUnavailable()
		}
		return nil, errors.Internal(err)
	}
	s.metrics.BookingsCreated.Inc()

	// The booking already exists; losing one counter tick is
	// preferable to failing the request.
	_ = s.limiter.Record(ctx, ip, EndpointBooking)

	appt.DoctorName = doctor.Name
	appt.DoctorSpecialty = doctor.Specialty
	appt.DoctorLicense = doctor.License

	s.notifier.DispatchBookingEmails(ctx, appt, doctor.Email)
	s.notifier.PublishEvent(ctx, messaging.ChannelBookingCreated, appt)

	return appt, nil
}

// PanelList returns the patient's appointments with the display fields
// and action flags the panel renders.
func (s *Service) PanelList(ctx context.Context, email, status string) ([]*model.PanelAppointment, error) {
	appts, err := s.apptRepo.ListByEmail(ctx, email, status)
	if err != nil {
		return nil, errors.Internal(err)
	}

	now := time.Now().In(s.loc)
	out := make([]*model.PanelAppointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, s.panelView(a, now))
	}
	return out, nil
}

// PanelDetail returns one appointment scoped to the owning patient.
func (s *Service) PanelDetail(ctx context.Context, id int64, email string) (*model.Appointment, error) {
	appt, err := s.apptRepo.GetByIDForEmail(ctx, id, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Agendamento não encontrado.")
		}
		return nil, errors.Internal(err)
	}
	return appt, nil
}

// PatientCancel cancels the patient's own pending appointment. The
// deadline is 24 hours: the consultation date must still be beyond
// tomorrow when the request arrives.
func (s *Service) PatientCancel(ctx context.Context, id int64, email string) error {
	if id <= 0 {
		return errors.BadRequest(errors.CodeInvalidID, "ID do agendamento obrigatório.")
	}

	appt, err := s.apptRepo.GetByIDForEmail(ctx, id, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("Agendamento não encontrado ou não pode ser cancelado.")
		}
		return errors.Internal(err)
	}
	if appt.Status != model.AppointmentStatusPending {
		return errors.NotFound("Agendamento não encontrado ou não pode ser cancelado.")
	}

	now := time.Now().In(s.loc)
	if !s.beyond(appt.ConsultationDate, now, 24*time.Hour) {
		return errors.Unprocessable(errors.CodeCancelDeadline,
			"Cancelamentos devem ser feitos com ao menos 24h de antecedência.")
	}

	if err := s.apptRepo.UpdateStatus(ctx, id, model.AppointmentStatusCancelled); err != nil {
		return errors.Internal(err)
	}
	s.metrics.BookingsCancelled.WithLabelValues("patient").Inc()

	appt.Status = model.AppointmentStatusCancelled
	s.notifier.PublishEvent(ctx, messaging.ChannelBookingCancelled, appt)
	return nil
}

// PatientReschedule moves the patient's own pending appointment to a
// new date and slot. The new date must be at least two days out and a
// business day; the target slot is re-verified atomically with the
// update, excluding the appointment itself.
func (s *Service) PatientReschedule(ctx context.Context, req *model.RescheduleRequest, email string) error {
	if req.ID <= 0 {
		return errors.BadRequest(errors.CodeInvalidID, "ID obrigatório.")
	}

	now := time.Now().In(s.loc)
	date, ok := validate.ParseDate(validate.Sanitize(req.Data), s.loc)
	if !ok || !date.After(validate.Today(now).Add(24*time.Hour)) {
		return errors.Unprocessable(errors.CodeRescheduleDate, "Nova data deve ser pelo menos 2 dias à frente.")
	}
	if !validate.BusinessDay(date) {
		return errors.Unprocessable(errors.CodeRescheduleDate, "Agendamentos apenas em dias úteis (seg–sex).")
	}
	slot := validate.Sanitize(req.Horario)
	if !validate.ValidSlot(slot) {
		return errors.Unprocessable(errors.CodeInvalidSlot, "Horário inválido.")
	}

	appt, err := s.apptRepo.GetByIDForEmail(ctx, req.ID, email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("Agendamento não encontrado.")
		}
		return errors.Internal(err)
	}
	if appt.Status != model.AppointmentStatusPending {
		return errors.NotFound("Agendamento não encontrado.")
	}

	if err := s.apptRepo.Reschedule(ctx, req.ID, date, slot); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrSlotTaken):
			s.metrics.BookingConflicts.Inc()
			return errors.SlotUnavailable()
		case stderrors.Is(err, repository.ErrNotFound):
			return errors.NotFound("Agendamento não encontrado.")
		}
		return errors.Internal(err)
	}

	appt.ConsultationDate = date
	appt.Slot = slot
	s.notifier.PublishEvent(ctx, messaging.ChannelBookingRescheduled, appt)
	return nil
}

// StaffUpdateStatus overwrites the lifecycle state by id. Staff are
// trusted to apply any valid status, including reopening a cancelled
// appointment.
func (s *Service) StaffUpdateStatus(ctx context.Context, id int64, status model.AppointmentStatus) error {
	if !model.ValidStatus(status) {
		return errors.BadRequest(errors.CodeValidation, "Status inválido.")
	}

	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("Agendamento não encontrado.")
		}
		return errors.Internal(err)
	}

	if err := s.apptRepo.UpdateStatus(ctx, id, status); err != nil {
		return errors.Internal(err)
	}
	if status == model.AppointmentStatusCancelled {
		s.metrics.BookingsCancelled.WithLabelValues("staff").Inc()
	}

	appt.Status = status
	s.notifier.PublishEvent(ctx, messaging.ChannelBookingStatus, appt)
	return nil
}

// beyond reports whether the consultation date (midnight in the
// service timezone) is still more than window away from now.
func (s *Service) beyond(date time.Time, now time.Time, window time.Duration) bool {
	return date.After(now.Add(window))
}

func (s *Service) panelView(a *model.Appointment, now time.Time) *model.PanelAppointment {
	return &model.PanelAppointment{
		ID:            a.ID,
		Data:          a.ConsultationDate.Format(validate.DateLayout),
		DataFormatada: notification.FormatShortDate(a.ConsultationDate),
		Horario:       a.Slot,
		Tipo:          a.Kind,
		Cirurgia:      a.Procedure,
		Status:        a.Status,
		EmailStatus:   a.EmailStatus,
		Token:         a.Token,
		Observacoes:   a.Notes,
		MedicoNome:    a.DoctorName,
		Especialidade: a.DoctorSpecialty,
		CRM:           a.DoctorLicense,
		CriadoEm:      a.CreatedAt,
		PodeCancelar:  a.Status == model.AppointmentStatusPending && s.beyond(a.ConsultationDate, now, 24*time.Hour),
		PodeRemarcar:  a.Status == model.AppointmentStatusPending && s.beyond(a.ConsultationDate, now, 48*time.Hour),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
