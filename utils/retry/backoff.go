// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package retry

import (
	"fmt"
	"math"
	"time"
)

const maxDuration = time.Duration(math.MaxInt64)

// Backoff yields the delay before the next attempt. Implementations are not
// safe for concurrent use.
type Backoff interface {
	// Next returns the delay before the next attempt.
	Next() time.Duration
	// Reset restarts the sequence, called after a successful attempt.
	Reset()
}

// Kind names a backoff policy.
type Kind string

const (
	KindConstant    Kind = "constant"
	KindLinear      Kind = "linear"
	KindExponential Kind = "exponential"
)

type constantBackoff struct {
	interval time.Duration
}

// NewConstantBackoff always waits interval.
func NewConstantBackoff(interval time.Duration) Backoff {
	return &constantBackoff{interval: interval}
}

func (b *constantBackoff) Next() time.Duration { return b.interval }

func (b *constantBackoff) Reset() {}

type linearBackoff struct {
	initial   time.Duration
	increment time.Duration
	max       time.Duration
	current   time.Duration
}

// NewLinearBackoff waits initial, then grows by increment on each attempt up
// to max. A zero max means no cap.
func NewLinearBackoff(initial, increment, max time.Duration) Backoff {
	return &linearBackoff{initial: initial, increment: increment, max: max, current: initial}
}

func (b *linearBackoff) Next() time.Duration {
	d := b.current
	if b.max > 0 && d > b.max {
		d = b.max
	}
	if d > maxDuration-b.increment {
		b.current = maxDuration
	} else {
		b.current = d + b.increment
	}
	return d
}

func (b *linearBackoff) Reset() { b.current = b.initial }

type exponentialBackoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewExponentialBackoff waits initial and doubles on each attempt up to max.
// A zero max means no cap.
func NewExponentialBackoff(initial, max time.Duration) Backoff {
	return &exponentialBackoff{initial: initial, max: max, current: initial}
}

func (b *exponentialBackoff) Next() time.Duration {
	d := b.current
	if b.max > 0 && d > b.max {
		d = b.max
	}
	if d > maxDuration/2 {
		b.current = maxDuration
	} else {
		b.current = d * 2
	}
	return d
}

func (b *exponentialBackoff) Reset() { b.current = b.initial }

// NewBackoff builds the named policy. interval is the initial delay, and also
// the linear increment. The linear and exponential policies need a positive
// max.
func NewBackoff(kind Kind, interval, max time.Duration) (Backoff, error) {
	if (kind == KindLinear || kind == KindExponential) && max <= 0 {
		return nil, fmt.Errorf("%s backoff needs a positive max, got %v", kind, max)
	}
	switch kind {
	case KindConstant, "":
		return NewConstantBackoff(interval), nil
	case KindLinear:
		return NewLinearBackoff(interval, interval, max), nil
	case KindExponential:
		return NewExponentialBackoff(interval, max), nil
	default:
		return nil, fmt.Errorf("unknown backoff %q", kind)
	}
}
