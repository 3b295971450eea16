package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusRealized  AppointmentStatus = "realized"
)

// ValidStatus reports whether s is one of the lifecycle states.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCancelled, AppointmentStatusRealized:
		return true
	}
	return false
}

type ConsultationKind string

const (
	ConsultationOnline   ConsultationKind = "online"
	ConsultationInPerson ConsultationKind = "presencial"
)

type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// Appointment is a booked slot. The tuple (doctor, consultation date,
// slot) is unique among appointments whose status is not cancelled;
// cancellation is a status transition, never a row removal.
type Appointment struct {
	ID               int64             `db:"id" json:"id"`
	Name             string            `db:"name" json:"nome"`
	CPF              string            `db:"cpf" json:"cpf"`
	Email            string            `db:"email" json:"email"`
	Phone            string            `db:"phone" json:"telefone"`
	BirthDate        time.Time         `db:"birth_date" json:"nascimento"`
	HealthPlan       *string           `db:"health_plan" json:"plano,omitempty"`
	DoctorID         int64             `db:"doctor_id" json:"medico_id"`
	Kind             ConsultationKind  `db:"kind" json:"tipo"`
	ConsultationDate time.Time         `db:"consultation_date" json:"data"`
	Slot             string            `db:"slot" json:"horario"`
	Procedure        string            `db:"procedure" json:"cirurgia"`
	Notes            *string           `db:"notes" json:"observacoes,omitempty"`
	Status           AppointmentStatus `db:"status" json:"status"`
	Token            string            `db:"token" json:"token"`
	SourceIP         string            `db:"source_ip" json:"-"`
	EmailStatus      EmailStatus       `db:"email_status" json:"email_status"`
	EmailAttempts    int               `db:"email_attempts" json:"-"`
	EmailSentAt      *time.Time        `db:"email_sent_at" json:"-"`
	EmailError       *string           `db:"email_error" json:"-"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`

	// Joined doctor columns, filled by list/detail queries.
	DoctorName      string `db:"doctor_name" json:"medico_nome,omitempty"`
	DoctorSpecialty string `db:"doctor_specialty" json:"especialidade,omitempty"`
	DoctorLicense   string `db:"doctor_license" json:"crm,omitempty"`
}

// CreateBookingRequest is the public booking submission. Field names
// follow the published wire contract. Website and Gotcha are disguised
// honeypot fields: humans never see them, bots fill them in.
type CreateBookingRequest struct {
	Nome        string `json:"nome"`
	Email       string `json:"email"`
	Telefone    string `json:"telefone"`
	CPF         string `json:"cpf"`
	Nascimento  string `json:"nascimento"`
	Plano       string `json:"plano"`
	MedicoID    int64  `json:"medico_id"`
	Tipo        string `json:"tipo"`
	Data        string `json:"data"`
	Horario     string `json:"horario"`
	Cirurgia    string `json:"cirurgia"`
	Observacoes string `json:"observacoes"`

	Website string `json:"website"`
	Gotcha  string `json:"_gotcha"`
}

// IsHoneypot reports whether a hidden trap field was filled.
func (r *CreateBookingRequest) IsHoneypot() bool {
	return r.Website != "" || r.Gotcha != ""
}

// RescheduleRequest moves a pending appointment to a new date and slot.
type RescheduleRequest struct {
	ID      int64  `json:"id"`
	Data    string `json:"data"`
	Horario string `json:"horario"`
}

// PanelAppointment is the patient-facing list view with the formatted
// date and the action flags the panel renders.
type PanelAppointment struct {
	ID            int64             `json:"id"`
	Data          string            `json:"data_consulta"`
	DataFormatada string            `json:"data_formatada"`
	Horario       string            `json:"horario"`
	Tipo          ConsultationKind  `json:"tipo_consulta"`
	Cirurgia      string            `json:"cirurgia"`
	Status        AppointmentStatus `json:"status"`
	EmailStatus   EmailStatus       `json:"email_status"`
	Token         string            `json:"token"`
	Observacoes   *string           `json:"observacoes,omitempty"`
	MedicoNome    string            `json:"medico_nome"`
	Especialidade string            `json:"especialidade"`
	CRM           string            `json:"crm"`
	CriadoEm      time.Time         `json:"created_at"`
	PodeCancelar  bool              `json:"pode_cancelar"`
	PodeRemarcar  bool              `json:"pode_remarcar"`
}

// AppointmentFilter drives the admin listing.
type AppointmentFilter struct {
	Status string `form:"status"`
	Search string `form:"busca"`
	Page   int    `form:"p"`
}

// AppointmentStats is the per-status dashboard breakdown.
type AppointmentStats struct {
	Total     int `db:"total" json:"total"`
	Today     int `db:"today" json:"hoje"`
	Pending   int `db:"pending" json:"pendentes"`
	Confirmed int `db:"confirmed" json:"confirmados"`
	Realized  int `db:"realized" json:"realizados"`
	Cancelled int `db:"cancelled" json:"cancelados"`
}
