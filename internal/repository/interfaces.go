package repository

import (
	"context"
	"errors"
	"time"

	"github.com/anestconsulta/booking-api/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is the authoritative conflict signal: the partial
	// unique index rejected a duplicate non-cancelled slot.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrDuplicate is returned on unique violations other than slots
	// (e.g. an already-registered email).
	ErrDuplicate = errors.New("duplicate row")
)

type AppointmentRepository interface {
	// Book re-verifies slot availability and inserts inside one
	// transaction. Returns ErrSlotTaken on conflict.
	Book(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	// GetByIDForEmail scopes lookup to the owning patient's email.
	GetByIDForEmail(ctx context.Context, id int64, email string) (*model.Appointment, error)
	ListByEmail(ctx context.Context, email, status string) ([]*model.Appointment, error)
	// List applies status/search filters with pagination and returns
	// the matching page plus the unpaginated total.
	List(ctx context.Context, filter *model.AppointmentFilter, pageSize int) ([]*model.Appointment, int, error)
	IsSlotAvailable(ctx context.Context, doctorID int64, date time.Time, slot string, excludeID int64) (bool, error)
	// Reschedule atomically re-checks the target slot (excluding the
	// appointment itself) and updates date and slot in place.
	Reschedule(ctx context.Context, id int64, date time.Time, slot string) error
	UpdateStatus(ctx context.Context, id int64, status model.AppointmentStatus) error
	UpdateEmailDelivery(ctx context.Context, id int64, status model.EmailStatus, attempts int, sentAt *time.Time, errMsg *string) error
	Stats(ctx context.Context) (*model.AppointmentStats, error)
	StatsByEmail(ctx context.Context, email string) (*model.AppointmentStats, error)
}

type DoctorRepository interface {
	GetActive(ctx context.Context, id int64) (*model.Doctor, error)
	ListActive(ctx context.Context) ([]*model.Doctor, error)
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	GetByID(ctx context.Context, id int64) (*model.Patient, error)
	GetByEmail(ctx context.Context, email string) (*model.Patient, error)
	GetByVerifyToken(ctx context.Context, token string) (*model.Patient, error)
	GetByResetToken(ctx context.Context, token string) (*model.Patient, error)
	MarkVerified(ctx context.Context, id int64) error
	SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, name string, phone *string, birth *time.Time, plan *string, initials string) error
	UpdateLastAccess(ctx context.Context, id int64) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// GetWithPatient resolves a token to its session and the owning
	// active patient; expired sessions are not returned.
	GetWithPatient(ctx context.Context, token string) (*model.Session, *model.Patient, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForPatient(ctx context.Context, patientID int64) error
	// DeleteOthers removes every session of the patient except keep.
	DeleteOthers(ctx context.Context, patientID int64, keep string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type RateLimitRepository interface {
	Get(ctx context.Context, ip, endpoint string) (*model.RateLimitCounter, error)
	Reset(ctx context.Context, ip, endpoint string) error
	// Increment upserts: first attempt opens a new window, later ones
	// bump the counter in the current window.
	Increment(ctx context.Context, ip, endpoint string) error
}

type EmailLogRepository interface {
	Create(ctx context.Context, log *model.EmailLog) error
	// ListFailedConfirmations returns patient confirmations whose
	// delivery failed on appointments still awaiting email, capped to
	// maxAttempts redeliveries.
	ListFailedConfirmations(ctx context.Context, maxAttempts, limit int) ([]*model.EmailLog, error)
}

type StaffRepository interface {
	GetActiveByEmail(ctx context.Context, email string) (*model.StaffUser, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}
