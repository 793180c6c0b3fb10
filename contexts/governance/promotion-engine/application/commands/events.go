package commands

import (
	"encoding/json"
	"time"

	"concord/contexts/governance/promotion-engine/ports"
)

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	constitutionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by constitution for stable ordering
	// on tenant-scoped consumers.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "promotion-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "constitution_id",
		PartitionKey:     constitutionID,
		Data:             payload,
	}, nil
}
