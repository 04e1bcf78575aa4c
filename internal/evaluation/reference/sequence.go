package reference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"txguard/pkg/platform/circuit"
)

const (
	// Redis key prefix for per-day counters: ref:seq:20240101
	sequenceKeyPrefix = "ref:seq:"

	// counters outlive their day so late callers in other time zones still
	// see a monotonic sequence
	sequenceKeyTTL = 48 * time.Hour

	defaultSequenceTimeout = 250 * time.Millisecond
)

// Sequence is a Redis-backed generator producing TXN-<YYYYMMDD>-<NNNNNNNN>.
type Sequence struct {
	client    redis.Cmdable
	clock     func() time.Time
	timeout   time.Duration
	fallback  UUID
	logger    *slog.Logger
	fallbacks prometheus.Counter
	breaker   *circuit.Breaker
}

// SequenceOption configures a Sequence.
type SequenceOption func(*Sequence)

// WithSequenceClock sets the clock used to pick the day bucket.
func WithSequenceClock(clock func() time.Time) SequenceOption {
	return func(s *Sequence) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSequenceTimeout bounds each Redis round trip.
func WithSequenceTimeout(d time.Duration) SequenceOption {
	return func(s *Sequence) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSequenceLogger sets a logger for fallback reporting.
func WithSequenceLogger(logger *slog.Logger) SequenceOption {
	return func(s *Sequence) {
		s.logger = logger
	}
}

// WithFallbackCounter counts references served by the UUID fallback.
func WithFallbackCounter(c prometheus.Counter) SequenceOption {
	return func(s *Sequence) {
		s.fallbacks = c
	}
}

// WithBreaker replaces the default circuit breaker guarding Redis.
func WithBreaker(b *circuit.Breaker) SequenceOption {
	return func(s *Sequence) {
		if b != nil {
			s.breaker = b
		}
	}
}

// NewSequence constructs a Redis-backed sequence generator.
func NewSequence(client redis.Cmdable, opts ...SequenceOption) *Sequence {
	s := &Sequence{
		client:  client,
		clock:   time.Now,
		timeout: defaultSequenceTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.breaker == nil {
		s.breaker = circuit.New("reference-sequence", circuit.WithStateChange(s.logStateChange))
	}
	return s
}

// Generate increments today's counter. INCR and EXPIRE run in one MULTI so a
// counter never lingers without a TTL. While the breaker is open Redis is not
// called and references come from the UUID fallback.
func (s *Sequence) Generate() string {
	day := s.clock().UTC().Format("20060102")
	key := sequenceKeyPrefix + day

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (any, error) {
		pipe := s.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, sequenceKeyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
		return incr.Val(), nil
	})
	if err != nil {
		if s.logger != nil && !errors.Is(err, circuit.ErrOpen) {
			s.logger.WarnContext(ctx, "reference sequence unavailable, using uuid fallback",
				"key", key,
				"error", err,
			)
		}
		if s.fallbacks != nil {
			s.fallbacks.Inc()
		}
		return s.fallback.Generate()
	}

	return fmt.Sprintf("%s%s-%08d", Prefix, day, res.(int64))
}

func (s *Sequence) logStateChange(name, from, to string) {
	if s.logger != nil {
		s.logger.Warn("reference sequence breaker state changed",
			"breaker", name,
			"from", from,
			"to", to,
		)
	}
}
