package model

import "time"

// StaffUser is an administrative panel account.
type StaffUser struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"nome"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Active       bool       `db:"active" json:"-"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"ultimo_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"-"`
}

type StaffLoginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status"`
}
