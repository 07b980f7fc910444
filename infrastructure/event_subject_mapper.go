package infrastructure

import (
	"fmt"

	"guildwar/domain/events"
)

const subjectPrefix = "guildwar"

var eventSubjects = map[events.EventType]string{
	events.EventTypeRaidDeclared:      subjectPrefix + ".raids.declared",
	events.EventTypeRaidRosterChanged: subjectPrefix + ".raids.roster_changed",
	events.EventTypeRaidPhaseChanged:  subjectPrefix + ".raids.phase_changed",
	events.EventTypeRaidSettled:       subjectPrefix + ".raids.settled",
	events.EventTypeRaidAborted:       subjectPrefix + ".raids.aborted",
	events.EventTypeWarDispatch:       subjectPrefix + ".raids.dispatch",
	events.EventTypeFactionDestroyed:  subjectPrefix + ".factions.destroyed",
	events.EventTypeShieldPurchased:   subjectPrefix + ".factions.shield_purchased",
	events.EventTypeTreasuryChanged:   subjectPrefix + ".ledger.treasury_changed",
	events.EventTypeDiplomacyChanged:  subjectPrefix + ".diplomacy.changed",
	events.EventTypeBountyPlaced:      subjectPrefix + ".diplomacy.bounty_placed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct {
	eventTypes map[string]events.EventType
}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	eventTypes := make(map[string]events.EventType, len(eventSubjects))
	for eventType, subject := range eventSubjects {
		eventTypes[subject] = eventType
	}
	return &EventSubjectMapper{eventTypes: eventTypes}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.MapEventTypeToSubject(event.Type())
}

// MapEventTypeToSubject converts an event type to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventTypeToSubject(eventType events.EventType) string {
	if subject, ok := eventSubjects[eventType]; ok {
		return subject
	}
	// Fallback for unknown event types
	return fmt.Sprintf("%s.unknown.%s", subjectPrefix, eventType)
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	if eventType, ok := m.eventTypes[subject]; ok {
		return eventType
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		subjectPrefix + ".raids.*",
		subjectPrefix + ".factions.*",
		subjectPrefix + ".ledger.*",
		subjectPrefix + ".diplomacy.*",
	}
}
