// Package circuit implements a per-service circuit breaker.
//
// One Breaker instance guards one logical upstream (a registrar, a DNS
// provider) and is shared across every organization and request calling that
// upstream: an outage is a shared fact, not a per-caller one. Transitions are
// serialized under a mutex so concurrent callers observe a consistent state.
//
// State machine:
//   - Closed: calls pass through; consecutive failures count toward
//     FailureThreshold, any success resets the count.
//   - Open: calls fail immediately with *OpenError until Timeout elapses.
//   - HalfOpen: exactly one probe call is admitted; a success counts toward
//     SuccessThreshold (reaching it closes the breaker), any failure reopens
//     immediately.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the breaker's position in the state machine.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is the sentinel matched by errors.Is when a call was short-circuited.
var ErrOpen = errors.New("circuit open")

// OpenError reports a short-circuited call. RetryAfter is a hint for clients;
// the breaker itself probes again once its Timeout elapses.
type OpenError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit open for %s, retry after %s", e.Service, e.RetryAfter)
}

func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// StateChange reports transitions caused by a recorded outcome.
type StateChange struct {
	Opened bool
	Closed bool
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive half-open successes close the circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithTimeout sets how long the circuit stays open before admitting a probe.
func WithTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithResetTimeout sets the retry-after hint carried by OpenError.
func WithResetTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.resetTimeout = d
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(b *Breaker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithOnStateChange registers a hook invoked after every transition, outside
// the hot path lock. Used to surface breaker state as a metric.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// Breaker guards calls to one named upstream. Safe for concurrent use.
type Breaker struct {
	mu            sync.Mutex
	name          string
	state         State
	failureCount  int
	successCount  int
	openedAt      time.Time
	probing       bool
	onStateChange func(name string, from, to State)

	failureThreshold int
	successThreshold int
	timeout          time.Duration
	resetTimeout     time.Duration
	clock            func() time.Time
}

// New constructs a closed breaker for the named upstream.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 2,
		timeout:          30 * time.Second,
		resetTimeout:     60 * time.Second,
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

// State returns the raw current state. An open breaker whose timeout has
// elapsed still reads open here; the transition to half-open happens only
// when a call arrives (see IsAvailable and Execute).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// IsAvailable reports whether a call issued now would be attempted. It never
// mutates state: an open breaker whose timeout has elapsed reads as available
// but only transitions to half-open when a call actually arrives.
func (b *Breaker) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		return b.clock().Sub(b.openedAt) >= b.timeout
	case StateHalfOpen:
		return !b.probing
	default:
		return true
	}
}

// Execute runs fn under the breaker. When the circuit is open it returns
// *OpenError without invoking fn. fn's final outcome (after any internal
// retries) is what counts toward the failure counter.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// allow admits or rejects a call, transitioning Open→HalfOpen when the
// timeout has elapsed. In half-open only a single in-flight probe is allowed.
func (b *Breaker) allow() error {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil
	case StateOpen:
		if b.clock().Sub(b.openedAt) < b.timeout {
			err := &OpenError{Service: b.name, RetryAfter: b.resetTimeout}
			b.mu.Unlock()
			return err
		}
		b.transition(StateHalfOpen)
		b.probing = true
		b.mu.Unlock()
		return nil
	default: // StateHalfOpen
		if b.probing {
			err := &OpenError{Service: b.name, RetryAfter: b.resetTimeout}
			b.mu.Unlock()
			return err
		}
		b.probing = true
		b.mu.Unlock()
		return nil
	}
}

// RecordSuccess records a successful call outcome.
func (b *Breaker) RecordSuccess() StateChange {
	b.mu.Lock()

	var change StateChange
	switch b.state {
	case StateHalfOpen:
		b.probing = false
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.transition(StateClosed)
			b.failureCount = 0
			b.successCount = 0
			change.Closed = true
		}
	case StateClosed:
		b.failureCount = 0
	}
	b.mu.Unlock()
	return change
}

// RecordFailure records a failed call outcome. A failing half-open probe
// reopens the circuit immediately.
func (b *Breaker) RecordFailure() StateChange {
	b.mu.Lock()

	var change StateChange
	switch b.state {
	case StateHalfOpen:
		b.probing = false
		b.successCount = 0
		b.transition(StateOpen)
		b.openedAt = b.clock()
		change.Opened = true
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.transition(StateOpen)
			b.openedAt = b.clock()
			change.Opened = true
		}
	}
	b.mu.Unlock()
	return change
}

// Reset forces the breaker closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.transition(StateClosed)
	b.failureCount = 0
	b.successCount = 0
	b.probing = false
	b.mu.Unlock()
}

// transition moves to a new state and schedules the hook. Callers hold b.mu.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.onStateChange != nil {
		go b.onStateChange(b.name, from, to)
	}
}
