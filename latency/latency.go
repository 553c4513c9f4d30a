// Package latency holds the artificial delay strategies applied before a mock
// endpoint answers, so callers always observe a pending interval.
package latency

import (
	"context"
	"math/rand/v2"
	"time"
)

// Latency picks the delay for one request.
type Latency interface {
	Next() time.Duration
}

// Uniform draws a delay uniformly from [Min, Max].
type Uniform struct {
	Min time.Duration
	Max time.Duration
}

func (u Uniform) Next() time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + rand.N(u.Max-u.Min+1)
}

// Fixed always waits the same duration.
type Fixed time.Duration

func (f Fixed) Next() time.Duration { return time.Duration(f) }

// None never waits.
var None Latency = Fixed(0)

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
