package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/audit"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerDrainsPublishedEvents(t *testing.T) {
	publisher := audit.NewPublisher(discardLogger(), 16)
	sink := audit.NewMemorySink()
	worker := audit.NewWorker(sink, publisher.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	orgID := id.OrganizationID(uuid.New())
	publisher.Emit(ctx, audit.Event{
		OrganizationID: orgID,
		Domain:         "example.com",
		Action:         audit.ActionDomainPurchased,
		Registrar:      "cloudflare",
		Outcome:        audit.OutcomeSuccess,
	})

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := sink.ListByOrganization(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionDomainPurchased, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "publisher stamps missing timestamps")

	cancel()
	<-done
}

func TestEmitNeverBlocksWhenInboxFull(t *testing.T) {
	// No worker draining: the one-slot inbox fills immediately.
	publisher := audit.NewPublisher(discardLogger(), 1)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 10 {
			publisher.Emit(ctx, audit.Event{Domain: "example.com", Action: audit.ActionDNSConfigured})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full inbox")
	}
}

type failingSink struct {
	calls atomic.Int32
}

func (s *failingSink) Append(context.Context, audit.Event) error {
	s.calls.Add(1)
	return errors.New("broker unavailable")
}

func TestWorkerKeepsDrainingAfterSinkFailure(t *testing.T) {
	publisher := audit.NewPublisher(discardLogger(), 16)
	sink := &failingSink{}
	worker := audit.NewWorker(sink, publisher.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	for range 3 {
		publisher.Emit(ctx, audit.Event{Domain: "example.com", Action: audit.ActionHealthChecked})
	}

	require.Eventually(t, func() bool {
		return sink.calls.Load() == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
