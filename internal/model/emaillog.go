package model

import "time"

type EmailKind string

const (
	EmailKindPatientConfirmation EmailKind = "confirmacao_paciente"
	EmailKindDoctorNotice        EmailKind = "notificacao_medico"
	EmailKindVerification        EmailKind = "verificacao_email"
	EmailKindPasswordReset       EmailKind = "reset_senha"
)

// EmailLog records one delivery attempt outcome per recipient.
type EmailLog struct {
	ID            int64      `db:"id" json:"id"`
	AppointmentID *int64     `db:"appointment_id" json:"appointment_id,omitempty"`
	Kind          EmailKind  `db:"kind" json:"kind"`
	Recipient     string     `db:"recipient" json:"recipient"`
	Subject       string     `db:"subject" json:"subject"`
	Sent          bool       `db:"sent" json:"sent"`
	Error         *string    `db:"error" json:"error,omitempty"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
