package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedPolicy(base, cap time.Duration, jitter float64) *Policy {
	p := NewPolicy(base, cap)
	p.rand = func() float64 { return jitter }
	return p
}

func TestDecide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := fixedPolicy(30*time.Second, time.Hour, 0)

	tests := []struct {
		name        string
		attempts    int
		maxAttempts int
		result      Result
		action      Action
	}{
		{
			name:        "2xx delivers",
			attempts:    0,
			maxAttempts: 3,
			result:      Result{StatusCode: 200},
			action:      Deliver,
		},
		{
			name:        "204 delivers",
			attempts:    2,
			maxAttempts: 3,
			result:      Result{StatusCode: 204},
			action:      Deliver,
		},
		{
			name:        "500 with attempts remaining retries",
			attempts:    0,
			maxAttempts: 3,
			result:      Result{StatusCode: 500},
			action:      Retry,
		},
		{
			name:        "network error with attempts remaining retries",
			attempts:    1,
			maxAttempts: 3,
			result:      Result{StatusCode: 0},
			action:      Retry,
		},
		{
			name:        "last attempt failing expires",
			attempts:    2,
			maxAttempts: 3,
			result:      Result{StatusCode: 500},
			action:      Expire,
		},
		{
			name:        "max attempts of one expires immediately",
			attempts:    0,
			maxAttempts: 1,
			result:      Result{StatusCode: 503},
			action:      Expire,
		},
		{
			name:        "malformed URL fails without retry",
			attempts:    0,
			maxAttempts: 3,
			result:      Result{PermanentFailure: true},
			action:      Fail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.attempts, tt.maxAttempts, tt.result, now)
			assert.Equal(t, tt.action, d.Action)
			if tt.action == Retry {
				assert.True(t, d.RetryAt.After(now))
			} else {
				assert.True(t, d.RetryAt.IsZero())
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	t.Run("doubles per attempt up to cap", func(t *testing.T) {
		p := fixedPolicy(30*time.Second, time.Hour, 0)

		assert.Equal(t, 30*time.Second, p.Backoff(0))
		assert.Equal(t, 60*time.Second, p.Backoff(1))
		assert.Equal(t, 120*time.Second, p.Backoff(2))
		assert.Equal(t, time.Hour, p.Backoff(7))
		// Past the cap the delay stays flat
		assert.Equal(t, time.Hour, p.Backoff(20))
	})

	t.Run("non-decreasing in attempts", func(t *testing.T) {
		p := fixedPolicy(30*time.Second, time.Hour, 0)

		prev := time.Duration(0)
		for attempts := 0; attempts < 15; attempts++ {
			d := p.Backoff(attempts)
			require.GreaterOrEqual(t, d, prev, "backoff shrank at attempts=%d", attempts)
			prev = d
		}
	})

	t.Run("jitter stays within one base", func(t *testing.T) {
		base := 30 * time.Second
		p := NewPolicy(base, time.Hour)

		for i := 0; i < 100; i++ {
			d := p.Backoff(1)
			assert.GreaterOrEqual(t, d, 2*base)
			assert.Less(t, d, 3*base)
		}
	})

	t.Run("defaults applied for non-positive settings", func(t *testing.T) {
		p := NewPolicy(0, 0)
		assert.Equal(t, DefaultBase, p.Base)
		assert.Equal(t, DefaultCap, p.Cap)
	})
}
