package models

import (
	"fmt"
	"time"
)

// Default retry policy values, matching what the target wiki tolerates.
const (
	DefaultMaxAttempts       = 3
	DefaultInterAttemptDelay = 5 * time.Second
	DefaultPrimaryTimeout    = 60 * time.Second
	DefaultIdleTimeout       = 30 * time.Second
)

// RetryPolicy bounds how hard the navigator tries to load a single URL.
// It is immutable for the duration of a run.
type RetryPolicy struct {
	// MaxAttempts is the total number of navigation attempts (>= 1).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// InterAttemptDelay is the pause between a failed attempt and the next.
	InterAttemptDelay time.Duration `json:"inter_attempt_delay" yaml:"inter_attempt_delay"`

	// PrimaryTimeout bounds the wait for the DOMContentLoaded milestone.
	PrimaryTimeout time.Duration `json:"primary_timeout" yaml:"primary_timeout"`

	// IdleTimeout bounds the wait for network activity to settle, measured
	// from the DOMContentLoaded milestone.
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxAttempts,
		InterAttemptDelay: DefaultInterAttemptDelay,
		PrimaryTimeout:    DefaultPrimaryTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
}

// Validate rejects policies the navigator cannot honour.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("retry policy: max attempts must be >= 1, got %d", p.MaxAttempts), nil)
	case p.InterAttemptDelay < 0:
		return NewScrapeError(ErrCodeInvalidInput, "retry policy: inter-attempt delay must not be negative", nil)
	case p.PrimaryTimeout <= 0:
		return NewScrapeError(ErrCodeInvalidInput, "retry policy: primary timeout must be positive", nil)
	case p.IdleTimeout <= 0:
		return NewScrapeError(ErrCodeInvalidInput, "retry policy: idle timeout must be positive", nil)
	}
	return nil
}
