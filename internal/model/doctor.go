package model

import "time"

// Doctor is the fixed roster entry appointments reference. The roster
// is owned by an external management capability; the booking core only
// reads it.
type Doctor struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"nome"`
	Specialty string    `db:"specialty" json:"especialidade"`
	License   string    `db:"license" json:"crm"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"ativo"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}
