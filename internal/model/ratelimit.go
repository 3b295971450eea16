package model

import "time"

// RateLimitCounter tracks booking attempts per source address and
// endpoint. The window resets lazily: an elapsed window is zeroed on
// the next check instead of by a background sweeper.
type RateLimitCounter struct {
	IP          string    `db:"ip"`
	Endpoint    string    `db:"endpoint"`
	Attempts    int       `db:"attempts"`
	WindowStart time.Time `db:"window_start"`
}
