package latency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUniformStaysInBand(t *testing.T) {
	u := Uniform{Min: 500 * time.Millisecond, Max: time.Second}
	for range 1000 {
		d := u.Next()
		assert.GreaterOrEqual(t, d, u.Min)
		assert.LessOrEqual(t, d, u.Max)
	}
}

func TestUniformDegenerateBand(t *testing.T) {
	u := Uniform{Min: 20 * time.Millisecond, Max: 10 * time.Millisecond}
	assert.Equal(t, 20*time.Millisecond, u.Next())
}

func TestFixedAndNone(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, Fixed(500*time.Millisecond).Next())
	assert.Zero(t, None.Next())
}

func TestSleepWaits(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSleepStopsWhenCallerLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
