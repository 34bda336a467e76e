package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sakif/recipe-room/internal/apperror"
)

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_store_circuit_state",
			Help: "Image store circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	breakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_store_requests_total",
			Help: "Image store calls by outcome (success, failure, rejected)",
		},
		[]string{"name", "outcome"},
	)
)

// BreakerSettings tunes the breaker. Zero values fall back to defaults.
type BreakerSettings struct {
	Name string
	// MinRequests is how many calls the breaker must see in an Interval
	// before it may open.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	Timeout      time.Duration
}

// BreakerStore stops calling a failing object store for a while and fails
// fast with apperror.ErrUnavailable instead.
//
// STATES:
//
//	closed    → calls pass through; failures are counted
//	open      → calls are rejected without touching the store
//	half-open → after Timeout, a few trial calls decide whether to close
type BreakerStore struct {
	next   ImageStore
	cb     *gobreaker.CircuitBreaker[struct{}]
	name   string
	logger *slog.Logger
}

func NewBreakerStore(next ImageStore, s BreakerSettings, logger *slog.Logger) *BreakerStore {
	if s.Name == "" {
		s.Name = "image-store"
	}
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}

	breakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("image store circuit breaker state change",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &BreakerStore{next: next, cb: cb, name: s.Name, logger: logger}
}

func (b *BreakerStore) URL(key string) string {
	return b.next.URL(key)
}

func (b *BreakerStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	return b.execute(func() error {
		return b.next.Put(ctx, key, contentType, body, size)
	})
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	return b.execute(func() error {
		return b.next.Delete(ctx, key)
	})
}

// Status is the breaker state: "closed", "half-open" or "open".
// Reported by /healthz.
func (b *BreakerStore) Status() string {
	return b.cb.State().String()
}

func (b *BreakerStore) execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	switch {
	case err == nil:
		breakerRequests.WithLabelValues(b.name, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		breakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return apperror.Unavailable("image storage is temporarily unavailable")
	default:
		breakerRequests.WithLabelValues(b.name, "failure").Inc()
		return err
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
