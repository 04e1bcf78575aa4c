// Package circuit wraps sony/gobreaker with the settings used for optional
// infrastructure that has a local fallback.
package circuit

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned by Execute when the call was rejected without running.
var ErrOpen = errors.New("circuit open")

const (
	defaultFailureThreshold = 5
	defaultHalfOpenRequests = 1
	defaultCooldown         = 5 * time.Second
)

// Breaker trips after a run of consecutive failures, rejects calls for the
// cooldown period, then lets a limited number of probes through.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

type options struct {
	failureThreshold uint32
	halfOpenRequests uint32
	cooldown         time.Duration
	onStateChange    func(name, from, to string)
}

// Option configures a Breaker.
type Option func(*options)

// WithFailureThreshold sets consecutive failures needed to open.
func WithFailureThreshold(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.failureThreshold = n
		}
	}
}

// WithHalfOpenRequests sets how many probes may run while half-open.
func WithHalfOpenRequests(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.halfOpenRequests = n
		}
	}
}

// WithCooldown sets how long an open breaker rejects calls.
func WithCooldown(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cooldown = d
		}
	}
}

// WithStateChange registers a callback for transitions, e.g. for logging.
func WithStateChange(fn func(name, from, to string)) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}

// New constructs a closed breaker.
func New(name string, opts ...Option) *Breaker {
	o := options{
		failureThreshold: defaultFailureThreshold,
		halfOpenRequests: defaultHalfOpenRequests,
		cooldown:         defaultCooldown,
	}
	for _, opt := range opts {
		opt(&o)
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: o.halfOpenRequests,
		Timeout:     o.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.failureThreshold
		},
	}
	if o.onStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			o.onStateChange(name, from.String(), to.String())
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the breaker name used in logs.
func (b *Breaker) Name() string { return b.cb.Name() }

// State returns "closed", "open" or "half-open".
func (b *Breaker) State() string { return b.cb.State().String() }

// IsOpen reports whether calls are currently rejected.
func (b *Breaker) IsOpen() bool { return b.cb.State() == gobreaker.StateOpen }

// Execute runs fn unless the breaker rejects it. Rejections wrap ErrOpen;
// errors from fn are returned unchanged.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %w", b.cb.Name(), ErrOpen, err)
	}
	return res, err
}
