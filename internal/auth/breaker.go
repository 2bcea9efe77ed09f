package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nita-portal/nita/internal/db/models"
)

// breakerDirectory stops calling a directory that keeps failing.
type breakerDirectory struct {
	next Directory
	cb   *gobreaker.CircuitBreaker[*Entry]
}

// NewBreakerDirectory wraps next with a circuit breaker. The circuit opens after
// failures consecutive infrastructure faults and stays open for openFor.
// While open, calls fail fast with a SystemError.
func NewBreakerDirectory(next Directory, failures uint32, openFor time.Duration) Directory {
	if failures == 0 {
		failures = 5
	}

	name := "directory-" + next.Source().String()

	cb := gobreaker.NewCircuitBreaker[*Entry](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: isAnswer,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("directory circuit breaker state change")
			breakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	breakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &breakerDirectory{next: next, cb: cb}
}

func (b *breakerDirectory) Source() models.UserSource { return b.next.Source() }

func (b *breakerDirectory) Lookup(ctx context.Context, username string) (*Entry, error) {
	return b.execute(func() (*Entry, error) { return b.next.Lookup(ctx, username) })
}

func (b *breakerDirectory) Authenticate(ctx context.Context, username, password string) (*Entry, error) {
	return b.execute(func() (*Entry, error) { return b.next.Authenticate(ctx, username, password) })
}

func (b *breakerDirectory) execute(fn func() (*Entry, error)) (*Entry, error) {
	e, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &SystemError{Profile: b.next.Source().String(), Err: err}
	}

	return e, err
}
