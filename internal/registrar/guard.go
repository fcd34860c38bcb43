package registrar

import (
	"context"

	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/retry"
)

// Guard wraps every outbound provider call in the shared resilience layer:
// bounded retry nested inside the provider's circuit breaker. The breaker is
// keyed to the provider name, so one provider's outage never throttles
// another. Because the retry sequence runs as one guarded call, only its
// final outcome counts toward the breaker's failure counter.
type Guard struct {
	breaker *circuit.Breaker
	retry   retry.Config
}

// NewGuard builds a guard around the given breaker.
func NewGuard(breaker *circuit.Breaker, cfg retry.Config) Guard {
	return Guard{breaker: breaker, retry: cfg}
}

// Do runs fn under breaker and retry. A short-circuited call returns
// *circuit.OpenError without invoking fn.
func (g Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, g.retry, retry.IsRetryable, fn)
	})
}

// Available reports whether a call issued now would be attempted.
func (g Guard) Available() bool { return g.breaker.IsAvailable() }
