// Package retry wraps single fetch attempts with a bounded, jittered retry loop.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// ErrAttemptsExhausted is the terminal failure once every attempt has failed.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// Config controls the retry loop.
type Config struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig returns three attempts with a 1-3s uniform delay between them.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		MinDelay:    time.Second,
		MaxDelay:    3 * time.Second,
	}
}

// Policy runs an attempt function until it succeeds or the attempt budget runs out.
type Policy struct {
	cfg    Config
	logger *zap.Logger

	// Sleep blocks for d or until ctx ends. Replaceable in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter draws a delay in [min, max]. Replaceable in tests.
	Jitter func(min, max time.Duration) time.Duration
	// OnAttemptFailed is invoked after each failed attempt, before any delay.
	OnAttemptFailed func(attempt int, err error)
}

// New builds a Policy, filling zero values from DefaultConfig.
func New(cfg Config, logger *zap.Logger) *Policy {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MinDelay < 0 {
		cfg.MinDelay = 0
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		cfg:    cfg,
		logger: logger,
		Sleep:  sleepContext,
		Jitter: uniformJitter,
	}
}

// MaxAttempts returns the attempt budget.
func (p *Policy) MaxAttempts() int {
	return p.cfg.MaxAttempts
}

type state int

const (
	stateAttempting state = iota
	stateBackoff
	stateDone
	stateExhausted
	stateCanceled
)

// Do calls fn until it returns nil error. Each failure is logged with its 1-based attempt
// index. After the last failed attempt no delay is taken and the returned error wraps
// ErrAttemptsExhausted together with the final attempt's error.
func (p *Policy) Do(ctx context.Context, url string, fn func(ctx context.Context) (string, error)) (string, error) {
	var (
		attempt int
		result  string
		lastErr error
		st      = stateAttempting
	)
	for {
		switch st {
		case stateAttempting:
			attempt++
			out, err := fn(ctx)
			if err == nil {
				result = out
				st = stateDone
				continue
			}
			lastErr = err
			p.logger.Warn("fetch attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.cfg.MaxAttempts),
				zap.Error(err),
			)
			if p.OnAttemptFailed != nil {
				p.OnAttemptFailed(attempt, err)
			}
			switch {
			case attempt >= p.cfg.MaxAttempts:
				st = stateExhausted
			case ctx.Err() != nil:
				st = stateCanceled
			default:
				st = stateBackoff
			}
		case stateBackoff:
			delay := p.Jitter(p.cfg.MinDelay, p.cfg.MaxDelay)
			if err := p.Sleep(ctx, delay); err != nil {
				st = stateCanceled
				continue
			}
			st = stateAttempting
		case stateDone:
			return result, nil
		case stateExhausted:
			return "", fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, lastErr)
		case stateCanceled:
			return "", fmt.Errorf("retry canceled after %d attempts: %w", attempt, errors.Join(ctx.Err(), lastErr))
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry delay interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func uniformJitter(min, max time.Duration) time.Duration {
	span := max - min
	if span <= 0 {
		return min
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(span)+1))
	if err != nil {
		return min + span/2
	}
	return min + time.Duration(n.Int64())
}
