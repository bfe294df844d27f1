package commands

import (
	"context"
	"encoding/json"
	"time"

	"dealdesk/contexts/investment-committee/conviction-polling/domain/entities"
	"dealdesk/contexts/investment-committee/conviction-polling/ports"
)

// appendPollEvent writes a poll-scoped envelope to the outbox. Events are
// partitioned by poll for stable ordering on poll-scoped consumers. A nil
// outbox is treated as no-op so pure read/test wiring needs no stub.
func (uc PollUseCase) appendPollEvent(
	ctx context.Context,
	eventType string,
	poll entities.Poll,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"poll_id":     poll.PollID,
		"firm_id":     poll.FirmID,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "conviction-polling",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     poll.PollID,
		Data:             raw,
	})
}
