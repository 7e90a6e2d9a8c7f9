package trading

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrBreakerOpen is returned when the circuit breaker refuses a call.
var ErrBreakerOpen = errors.New("circuit breaker open")

// Breaker guards swap execution against a failing pool or RPC. It trips
// after a run of consecutive failures and resets lazily once the
// cooldown elapses. Any success resets the consecutive count.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	onTrip func()
}

// NewBreaker creates a Breaker tripping after maxFailures consecutive
// failures and cooling down for cooldown.
func NewBreaker(name string, maxFailures uint32, cooldown time.Duration) *Breaker {
	b := &Breaker{}
	settings := gobreaker.Settings{
		Name:        name,
		Timeout:     cooldown,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen && b.onTrip != nil {
				b.onTrip()
			}
		},
	}
	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// OnTrip registers a callback invoked each time the breaker opens.
// Must be set before the breaker takes traffic.
func (b *Breaker) OnTrip(fn func()) {
	b.onTrip = fn
}

// Execute runs fn through the breaker. Returns ErrBreakerOpen when the
// breaker refuses the call, fn's error otherwise.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

// Tripped reports whether the breaker currently refuses calls. The read
// itself performs the lazy cooldown transition inside gobreaker.
func (b *Breaker) Tripped() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// State returns the breaker state name for metrics and logs.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
