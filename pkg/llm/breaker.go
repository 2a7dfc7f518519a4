package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// Cooldown is how long the circuit stays open before one probe is let through.
	Cooldown time.Duration
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold: 5,
		Cooldown:  30 * time.Second,
	}
}

// BreakerClient wraps an LLMClient so that a serving endpoint that keeps
// failing is not hammered by every generate request.
// Only retryable failures count toward tripping; a bad prompt does not.
type BreakerClient struct {
	next   LLMClient
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	threshold   int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time
	state       CircuitState
}

// NewBreakerClient decorates next with a circuit breaker.
func NewBreakerClient(next LLMClient, cfg BreakerConfig, logger *zap.Logger) *BreakerClient {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultBreakerConfig().Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &BreakerClient{
		next:      next,
		logger:    logger.Named("llm.breaker"),
		now:       time.Now,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		state:     CircuitClosed,
	}
}

// GenerateResponse forwards to the wrapped client unless the circuit is open.
func (b *BreakerClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	if err := b.allow(); err != nil {
		return nil, err
	}

	result, err := b.next.GenerateResponse(ctx, prompt, systemMessage, temperature)
	if err != nil {
		if IsRetryable(err) {
			b.recordFailure()
		} else {
			b.release()
		}
		return nil, err
	}

	b.recordSuccess()
	return result, nil
}

// GetModel returns the wrapped client's model.
func (b *BreakerClient) GetModel() string { return b.next.GetModel() }

// GetEndpoint returns the wrapped client's endpoint.
func (b *BreakerClient) GetEndpoint() string { return b.next.GetEndpoint() }

// State returns the current state of the circuit breaker.
func (b *BreakerClient) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BreakerClient) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if b.now().Sub(b.lastFailure) >= b.cooldown {
			b.state = CircuitHalfOpen
			return nil
		}
		return NewErrorWithContext(ErrorTypeCircuit,
			fmt.Sprintf("LLM endpoint appears to be down (failed %d times)", b.failures),
			false, nil, b.next.GetModel(), b.next.GetEndpoint(), 0)
	default:
		// A probe is already in flight.
		return NewErrorWithContext(ErrorTypeCircuit, "waiting for LLM endpoint to recover",
			false, nil, b.next.GetModel(), b.next.GetEndpoint(), 0)
	}
}

func (b *BreakerClient) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != CircuitClosed {
		b.logger.Info("LLM circuit closed")
	}
	b.failures = 0
	b.state = CircuitClosed
}

func (b *BreakerClient) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	if b.state == CircuitHalfOpen || b.failures >= b.threshold {
		if b.state != CircuitOpen {
			b.logger.Warn("LLM circuit opened", zap.Int("consecutive_failures", b.failures))
		}
		b.state = CircuitOpen
	}
}

// release ends a half-open probe that failed for a non-transient reason;
// the endpoint answered, so the circuit closes.
func (b *BreakerClient) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitHalfOpen {
		b.failures = 0
		b.state = CircuitClosed
	}
}
