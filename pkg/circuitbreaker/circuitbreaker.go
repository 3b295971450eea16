package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name string
	// MaxFailures is the consecutive-failure count that opens the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before a trial call.
	Timeout time.Duration
}

// CircuitBreaker guards calls to flaky dependencies (SMTP, Redis) so a
// broken collaborator fails fast instead of holding request goroutines.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(settings Settings) *CircuitBreaker {
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}

	maxFailures := uint32(settings.MaxFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    settings.Name,
		Timeout: settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})

	return &CircuitBreaker{cb: cb}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := cb.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}
