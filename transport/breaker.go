package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// BreakerSettings contains circuit breaker settings
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens a breaker
	FailureThreshold uint32

	// SuccessThreshold is the number of trial sends allowed while half-open
	SuccessThreshold uint32

	// Timeout is how long a breaker stays open
	Timeout time.Duration
}

// Breaker guards an exporter with one circuit breaker per network. While a
// network's breaker is open sends to it fail immediately.
type Breaker struct {
	next     xcm.ExportXcm
	settings BreakerSettings
	logger   *zap.Logger

	mu       sync.Mutex
	breakers map[location.NetworkID]*gobreaker.CircuitBreaker
}

// NewBreaker wraps next.
func NewBreaker(next xcm.ExportXcm, settings BreakerSettings, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	return &Breaker{
		next:     next,
		settings: settings,
		logger:   logger,
		breakers: make(map[location.NetworkID]*gobreaker.CircuitBreaker),
	}
}

// ExportXcm implements xcm.ExportXcm.
func (b *Breaker) ExportXcm(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) error {
	_, err := b.breaker(network).Execute(func() (interface{}, error) {
		return nil, b.next.ExportXcm(ctx, network, channel, dest, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &xcm.TransportError{Network: network, Err: err}
	}
	return err
}

// State reports the breaker state for network.
func (b *Breaker) State(network location.NetworkID) gobreaker.State {
	return b.breaker(network).State()
}

func (b *Breaker) breaker(network location.NetworkID) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[network]; ok {
		return cb
	}

	threshold := b.settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(network),
		MaxRequests: b.settings.SuccessThreshold,
		Timeout:     b.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("breaker state changed",
				zap.String("network", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	b.breakers[network] = cb
	return cb
}
