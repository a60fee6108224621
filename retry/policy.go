package retry

import (
	"math/rand"
	"time"
)

/* Policy decides what happens after a delivery attempt, as a pure function
 * of the attempt count and the attempt result. It holds no state about
 * individual events: the schedule it produces is persisted on the event
 * itself, which is what lets any dispatcher process pick up the retry.
 */

// Action is the disposition chosen for an event after an attempt
type Action int

const (
	// Deliver marks the event successfully delivered (terminal)
	Deliver Action = iota + 1
	// Retry schedules another attempt at Decision.RetryAt
	Retry
	// Expire terminates the event after exhausting max attempts
	Expire
	// Fail terminates the event immediately (permanent input failure)
	Fail
)

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case Deliver:
		return "deliver"
	case Retry:
		return "retry"
	case Expire:
		return "expire"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Policy.Decide
type Decision struct {
	Action  Action
	RetryAt time.Time // set only when Action is Retry
}

// Result describes a single delivery attempt to the policy
type Result struct {
	// StatusCode is the HTTP status received, 0 when no response arrived
	// (connection error, timeout)
	StatusCode int
	// PermanentFailure is set when the attempt can never succeed, e.g.
	// a malformed target URL detected before any network call
	PermanentFailure bool
}

// Succeeded reports whether the attempt got a 2xx response
func (r Result) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

const (
	DefaultBase = 30 * time.Second
	DefaultCap  = time.Hour
)

type Policy struct {
	Base time.Duration
	Cap  time.Duration

	// rand returns a jitter fraction in [0, 1); swappable for tests
	rand func() float64
}

// NewPolicy creates a policy with the given backoff base and cap.
// Non-positive values fall back to the defaults.
func NewPolicy(base, cap time.Duration) *Policy {
	if base <= 0 {
		base = DefaultBase
	}
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Policy{
		Base: base,
		Cap:  cap,
		rand: rand.Float64,
	}
}

// Decide computes the disposition for an event after an attempt.
// attempts is the count of attempts made before this one.
func (p *Policy) Decide(attempts, maxAttempts int, result Result, now time.Time) Decision {
	if result.Succeeded() {
		return Decision{Action: Deliver}
	}
	if result.PermanentFailure {
		return Decision{Action: Fail}
	}
	if attempts+1 >= maxAttempts {
		return Decision{Action: Expire}
	}
	return Decision{
		Action:  Retry,
		RetryAt: now.Add(p.Backoff(attempts)),
	}
}

// Backoff returns the delay before the next attempt: base * 2^attempts
// capped at Cap, plus random jitter in [0, base). The jitter spreads out
// retries of many events that failed at the same instant against the same
// endpoint, so they do not hammer it again in lockstep.
func (p *Policy) Backoff(attempts int) time.Duration {
	backoff := p.Base
	for i := 0; i < attempts && backoff < p.Cap; i++ {
		backoff *= 2
	}
	if backoff > p.Cap {
		backoff = p.Cap
	}

	jitter := time.Duration(p.rand() * float64(p.Base))
	return backoff + jitter
}
