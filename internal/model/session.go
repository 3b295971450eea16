package model

import "time"

// SessionTTL is how long a patient session lives. Sessions are never
// renewed in place; a new login issues a new token.
const SessionTTL = 7 * 24 * time.Hour

// Session is an opaque bearer credential for the patient panel.
type Session struct {
	Token     string    `db:"token" json:"token"`
	PatientID int64     `db:"patient_id" json:"-"`
	IP        string    `db:"ip" json:"-"`
	UserAgent string    `db:"user_agent" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expira_em"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
