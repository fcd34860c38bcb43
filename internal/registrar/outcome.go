package registrar

import (
	"context"
	"errors"

	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/circuit"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/retry"
)

// AsOutcome decides which purchase failures cross the client boundary as
// errors. A circuit-open means "do not even try" and must propagate
// distinctly, as do context cancellations; every other provider failure has
// already been folded into the PurchaseResult and returns nil.
func AsOutcome(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, circuit.ErrOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return nil
	}
}

// ErrorMessage extracts the provider's literal message when one exists, so
// users see what the registrar actually said instead of transport framing.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *retry.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return err.Error()
}
