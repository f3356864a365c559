// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package outlinks

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how the Controller retries an item.
type RetryPolicy struct {
	// MaxAttempts bounds the attempts per item, the first one included.
	MaxAttempts int
	// AttemptTimeout is applied to every attempt. Zero means no timeout.
	AttemptTimeout    time.Duration
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter is the fraction of the delay randomized in both directions.
	Jitter float64
	// Retryable decides whether a failed attempt may be retried.
	// IsTransient is used when nil.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns three attempts with exponential backoff from
// two seconds, capped at thirty, with 25% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxRetries,
		AttemptTimeout:    DefaultRequestTimeout,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: 2.0,
		Jitter:            0.25,
	}
}

// ShouldRetry reports whether another attempt may follow attempt (1-based)
// that failed with err.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsTransient(err)
}

// Backoff returns the delay before the attempt following attempt (1-based).
// The delay grows with the attempt number and never exceeds MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialBackoff) * math.Pow(mult, float64(attempt-1))
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if d < 0 {
		d = float64(p.InitialBackoff)
	}
	return time.Duration(d)
}
