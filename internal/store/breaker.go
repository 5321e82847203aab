package store

import (
	"context"
	"fmt"
	"time"

	"github.com/interestconnect/realtime/internal/config"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/metrics"
	"github.com/interestconnect/realtime/pkg/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerStore guards a MessageStore with a circuit breaker and a write
// timeout. Every failure it returns wraps domain.ErrPersistence.
type BreakerStore struct {
	next    MessageStore
	cb      *gobreaker.CircuitBreaker[*domain.StoredMessage]
	timeout time.Duration
}

func NewBreakerStore(next MessageStore, cfg config.BreakerConfig, timeout time.Duration) *BreakerStore {
	const name = "message_store"

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			l := log.L()
			l.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &BreakerStore{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker[*domain.StoredMessage](settings),
		timeout: timeout,
	}
}

func (s *BreakerStore) InsertMessage(ctx context.Context, draft domain.MessageDraft) (*domain.StoredMessage, error) {
	msg, err := s.cb.Execute(func() (*domain.StoredMessage, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return s.next.InsertMessage(ctx, draft)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return msg, nil
}

// State reports the breaker state for health checks.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}
