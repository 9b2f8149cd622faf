// Package resilient wraps an embedding service with a circuit breaker
// and a client-side rate limit. Embedding providers throttle aggressively
// under batch ingestion; the wrapper keeps one misbehaving provider from
// stalling the whole pipeline.
package resilient

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/casekb/internal/core/ports/driven"
	"github.com/custodia-labs/casekb/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 20
	DefaultOpenTimeout       = 30 * time.Second
	DefaultMinRequests       = 5
	DefaultFailureRatio      = 0.6
)

// Config holds configuration for the resilient wrapper.
type Config struct {
	// RequestsPerSecond caps outgoing embed calls (default: 10).
	RequestsPerSecond float64

	// Burst is the rate limiter burst size (default: 20).
	Burst int

	// OpenTimeout is how long the breaker stays open before probing
	// again (default: 30s).
	OpenTimeout time.Duration

	// MinRequests is the minimum observed requests before the breaker
	// may trip (default: 5).
	MinRequests uint32

	// FailureRatio trips the breaker at or above this ratio (default: 0.6).
	FailureRatio float64
}

// EmbeddingService decorates another embedding service.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]float32]
}

// Wrap decorates inner with rate limiting and a circuit breaker.
func Wrap(inner driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultMinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = DefaultFailureRatio
	}

	settings := gobreaker.Settings{
		Name:    "embedding/" + inner.ModelName(),
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Debug("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &EmbeddingService{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[[]float32](settings),
	}
}

// Embed waits for rate limiter admission, then runs the inner call
// through the breaker. An open breaker fails fast with
// gobreaker.ErrOpenState, which callers treat like any other provider
// failure.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return s.breaker.Execute(func() ([]float32, error) {
		return s.inner.Embed(ctx, text)
	})
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
