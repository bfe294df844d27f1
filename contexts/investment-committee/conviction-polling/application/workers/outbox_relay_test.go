package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dealdesk/contexts/investment-committee/conviction-polling/adapters/memory"
	"dealdesk/contexts/investment-committee/conviction-polling/application/workers"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

type capturingPublisher struct {
	published []ports.EventEnvelope
	failOn    string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failOn != "" && topic == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func appendEvent(t *testing.T, store *memory.Store, eventID string, eventType string, at time.Time) {
	t.Helper()
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:    eventID,
		EventType:  eventType,
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("AppendOutbox(%s): %v", eventID, err)
	}
}

func TestRunOncePublishesAndAcknowledges(t *testing.T) {
	store := memory.NewStore(nil)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appendEvent(t, store, "evt-1", "poll.created", base)
	appendEvent(t, store, "evt-2", "poll.vote.submitted", base.Add(time.Second))

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("published %d events, want 2", len(publisher.published))
	}
	if publisher.published[0].EventID != "evt-1" {
		t.Fatalf("oldest row must publish first, got %s", publisher.published[0].EventID)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("%d rows still pending after relay", len(pending))
	}
}

func TestRunOnceStopsOnPublishFailure(t *testing.T) {
	store := memory.NewStore(nil)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appendEvent(t, store, "evt-1", "poll.created", base)
	appendEvent(t, store, "evt-2", "poll.revealed", base.Add(time.Second))

	publisher := &capturingPublisher{failOn: "poll.revealed"}
	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce should surface the publish failure")
	}

	// The failed row stays pending for the next cycle.
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("pending after failure = %+v, want evt-2 only", pending)
	}
}
