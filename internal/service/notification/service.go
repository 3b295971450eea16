package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/anestconsulta/booking-api/internal/email"
	"github.com/anestconsulta/booking-api/internal/model"
	"github.com/anestconsulta/booking-api/internal/repository"
	"github.com/anestconsulta/booking-api/pkg/messaging"
	"github.com/anestconsulta/booking-api/pkg/metrics"
)

var months = []string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

var shortMonths = []string{
	"Jan", "Fev", "Mar", "Abr", "Mai", "Jun",
	"Jul", "Ago", "Set", "Out", "Nov", "Dez",
}

// FormatLongDate renders a calendar date the way the booking receipt
// and the emails display it, e.g. "02 de Março de 2026".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%02d de %s de %d", t.Day(), months[t.Month()-1], t.Year())
}

// FormatShortDate is the compact panel form, e.g. "02 Mar 2026".
func FormatShortDate(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), shortMonths[t.Month()-1], t.Year())
}

// Service fans out the side effects of a booking: patient and doctor
// emails, delivery bookkeeping on the appointment row, and lifecycle
// events on the broker. Email failure never fails the booking; it is
// recorded and retried by the worker.
type Service struct {
	sender   email.Service
	apptRepo repository.AppointmentRepository
	logRepo  repository.EmailLogRepository
	broker   messaging.Broker
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(sender email.Service, apptRepo repository.AppointmentRepository, logRepo repository.EmailLogRepository, broker messaging.Broker, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		sender:   sender,
		apptRepo: apptRepo,
		logRepo:  logRepo,
		broker:   broker,
		metrics:  m,
		logger:   logger,
	}
}

// DispatchBookingEmails sends the patient confirmation and the doctor
// notice for a freshly booked appointment, then records the outcome on
// the appointment row. The doctor notice is best effort and does not
// affect the appointment's email status.
func (s *Service) DispatchBookingEmails(ctx context.Context, appt *model.Appointment, doctorEmail string) {
	msg := s.bookingMessage(appt)
	msg.DoctorEmail = doctorEmail

	sentOK := s.deliver(ctx, appt, model.EmailKindPatientConfirmation, msg.PatientEmail,
		"Consulta Agendada — AnestConsulta", func() error {
			return s.sender.SendBookingConfirmation(ctx, msg)
		})

	s.deliver(ctx, appt, model.EmailKindDoctorNotice, msg.DoctorEmail,
		fmt.Sprintf("Novo Agendamento — %s", msg.PatientName), func() error {
			return s.sender.SendDoctorNotice(ctx, msg)
		})

	now := time.Now()
	status := model.EmailStatusFailed
	var errMsg *string
	if sentOK {
		status = model.EmailStatusSent
	} else {
		m := "patient confirmation delivery failed"
		errMsg = &m
	}
	attempts := appt.EmailAttempts + 1
	if err := s.apptRepo.UpdateEmailDelivery(ctx, appt.ID, status, attempts, sentAtOrNil(sentOK, now), errMsg); err != nil {
		s.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("failed to update email delivery state")
	}
	appt.EmailStatus = status
	appt.EmailAttempts = attempts
}

// RetryConfirmation re-sends a failed patient confirmation from the
// worker. The attempt counter is bumped whether or not delivery
// succeeds.
func (s *Service) RetryConfirmation(ctx context.Context, appt *model.Appointment) error {
	s.metrics.EmailRetries.Inc()
	msg := s.bookingMessage(appt)

	sentOK := s.deliver(ctx, appt, model.EmailKindPatientConfirmation, msg.PatientEmail,
		"Consulta Agendada — AnestConsulta", func() error {
			return s.sender.SendBookingConfirmation(ctx, msg)
		})

	now := time.Now()
	status := model.EmailStatusFailed
	var errMsg *string
	if sentOK {
		status = model.EmailStatusSent
	} else {
		m := "patient confirmation redelivery failed"
		errMsg = &m
	}
	return s.apptRepo.UpdateEmailDelivery(ctx, appt.ID, status, appt.EmailAttempts+1, sentAtOrNil(sentOK, now), errMsg)
}

// SendVerification delivers the account activation link.
func (s *Service) SendVerification(ctx context.Context, patient *model.Patient, token string) error {
	start := time.Now()
	err := s.sender.SendVerification(ctx, patient.Email, patient.Name, token)
	s.observe(model.EmailKindVerification, start, err)
	s.logEmail(ctx, nil, model.EmailKindVerification, patient.Email, "Confirme seu e-mail — AnestConsulta", err)
	return err
}

// SendPasswordReset delivers the password recovery link.
func (s *Service) SendPasswordReset(ctx context.Context, patient *model.Patient, token string) error {
	start := time.Now()
	err := s.sender.SendPasswordReset(ctx, patient.Email, patient.Name, token)
	s.observe(model.EmailKindPasswordReset, start, err)
	s.logEmail(ctx, nil, model.EmailKindPasswordReset, patient.Email, "Redefinir senha — AnestConsulta", err)
	return err
}

// PublishEvent emits a lifecycle event. Broker failures are logged and
// swallowed so the write path never depends on redis availability.
func (s *Service) PublishEvent(ctx context.Context, channel string, appt *model.Appointment) {
	if s.broker == nil {
		return
	}
	event := messaging.NewEvent(channel, appt.ID, map[string]interface{}{
		"status":  appt.Status,
		"data":    appt.ConsultationDate.Format("2006-01-02"),
		"horario": appt.Slot,
	})
	if err := s.broker.Publish(ctx, channel, event); err != nil {
		s.logger.Warn().Err(err).Str("channel", channel).Int64("appointment_id", appt.ID).Msg("failed to publish event")
	}
}

func (s *Service) bookingMessage(appt *model.Appointment) *email.BookingMessage {
	kind := "Presencial"
	if appt.Kind == model.ConsultationOnline {
		kind = "Telemedicina"
	}
	return &email.BookingMessage{
		PatientName:  appt.Name,
		PatientEmail: appt.Email,
		DoctorName:   appt.DoctorName,
		Date:         FormatLongDate(appt.ConsultationDate),
		Slot:         strings.TrimSuffix(appt.Slot, ":00"),
		Kind:         kind,
		Procedure:    appt.Procedure,
		Token:        appt.Token,
	}
}

// deliver runs one send, records latency and outcome metrics and the
// email_logs row, and reports success.
func (s *Service) deliver(ctx context.Context, appt *model.Appointment, kind model.EmailKind, recipient, subject string, send func() error) bool {
	start := time.Now()
	err := send()
	s.observe(kind, start, err)
	s.logEmail(ctx, &appt.ID, kind, recipient, subject, err)
	if err != nil {
		s.logger.Warn().Err(err).Int64("appointment_id", appt.ID).Str("kind", string(kind)).Msg("email delivery failed")
		return false
	}
	return true
}

func (s *Service) observe(kind model.EmailKind, start time.Time, err error) {
	s.metrics.EmailLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.EmailsFailed.WithLabelValues(string(kind)).Inc()
	} else {
		s.metrics.EmailsSent.WithLabelValues(string(kind)).Inc()
	}
}

func (s *Service) logEmail(ctx context.Context, apptID *int64, kind model.EmailKind, recipient, subject string, sendErr error) {
	entry := &model.EmailLog{
		AppointmentID: apptID,
		Kind:          kind,
		Recipient:     recipient,
		Subject:       subject,
		Sent:          sendErr == nil,
	}
	if sendErr == nil {
		now := time.Now()
		entry.SentAt = &now
	} else {
		m := sendErr.Error()
		entry.Error = &m
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to record email log")
	}
}

func sentAtOrNil(ok bool, now time.Time) *time.Time {
	if ok {
		return &now
	}
	return nil
}
