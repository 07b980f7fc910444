package infrastructure

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// EventEnvelope wraps every event published to the bus
type EventEnvelope struct {
	EventId       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	Payload       json.RawMessage        `json:"payload"`
}
