package email

import (
	"context"
)

// BookingMessage carries the fields rendered into the confirmation
// and doctor notice templates. Date and Slot are already formatted
// for display.
type BookingMessage struct {
	PatientName  string
	PatientEmail string
	DoctorName   string
	DoctorEmail  string
	Date         string
	Slot         string
	Kind         string
	Procedure    string
	Token        string
}

type Service interface {
	SendBookingConfirmation(ctx context.Context, msg *BookingMessage) error
	SendDoctorNotice(ctx context.Context, msg *BookingMessage) error
	SendVerification(ctx context.Context, email, name, token string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}
