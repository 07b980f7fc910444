package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"guildwar/domain/events"

	log "github.com/sirupsen/logrus"
)

// MessageSubscriber delivers raw bytes published on a subject
type MessageSubscriber interface {
	Subscribe(subject string, handler func([]byte) error) error
}

// ReceiveRecorder is notified of every event taken off the bus
type ReceiveRecorder interface {
	RecordNATSMessageReceived(eventType string)
}

// NATSEventSubscriber subscribes to NATS subjects and deserializes events for application handlers
type NATSEventSubscriber struct {
	client        MessageSubscriber
	subjectMapper *EventSubjectMapper
	recorder      ReceiveRecorder
	handlers      map[string]EventHandler
}

// NewNATSEventSubscriber creates a new NATS event subscriber
func NewNATSEventSubscriber(client MessageSubscriber, subjectMapper *EventSubjectMapper, recorder ReceiveRecorder) *NATSEventSubscriber {
	return &NATSEventSubscriber{
		client:        client,
		subjectMapper: subjectMapper,
		recorder:      recorder,
		handlers:      make(map[string]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (s *NATSEventSubscriber) Subscribe(eventType events.EventType, handler EventHandler) error {
	subject := s.subjectMapper.MapEventTypeToSubject(eventType)
	s.handlers[subject] = handler

	log.WithFields(log.Fields{
		"eventType": eventType,
		"subject":   subject,
	}).Info("Registering event handler for subject")

	return s.client.Subscribe(subject, func(data []byte) error {
		return s.handleMessage(subject, data)
	})
}

// handleMessage deserializes a NATS message and routes it to the appropriate handler
func (s *NATSEventSubscriber) handleMessage(subject string, data []byte) error {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Error("Failed to unmarshal event envelope")
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	eventType := events.EventType(envelope.EventType)
	if s.recorder != nil {
		s.recorder.RecordNATSMessageReceived(envelope.EventType)
	}

	event, err := DeserializeEvent(eventType, envelope.Payload)
	if err != nil {
		log.WithFields(log.Fields{
			"subject":     subject,
			"eventType":   eventType,
			"eventId":     envelope.EventId,
			"error":       err,
			"payloadSize": len(envelope.Payload),
		}).Error("Failed to deserialize event payload")
		return fmt.Errorf("failed to deserialize event payload: %w", err)
	}

	handler, exists := s.handlers[subject]
	if !exists {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": eventType,
		}).Warn("No handler registered for subject")
		return fmt.Errorf("no handler registered for subject %s", subject)
	}

	if err := handler(context.Background(), event); err != nil {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": eventType,
			"eventId":   envelope.EventId,
			"error":     err,
		}).Error("Event handler failed")
		return err
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"eventType": eventType,
		"eventId":   envelope.EventId,
	}).Debug("Successfully processed NATS event")
	return nil
}

// DeserializeEvent decodes an event payload by its type
func DeserializeEvent(eventType events.EventType, payload []byte) (events.Event, error) {
	var event events.Event

	switch eventType {
	case events.EventTypeTreasuryChanged:
		event = &events.TreasuryChangedEvent{}
	case events.EventTypeRaidDeclared:
		event = &events.RaidDeclaredEvent{}
	case events.EventTypeRaidRosterChanged:
		event = &events.RaidRosterChangedEvent{}
	case events.EventTypeRaidPhaseChanged:
		event = &events.RaidPhaseChangedEvent{}
	case events.EventTypeRaidSettled:
		event = &events.RaidSettledEvent{}
	case events.EventTypeRaidAborted:
		event = &events.RaidAbortedEvent{}
	case events.EventTypeFactionDestroyed:
		event = &events.FactionDestroyedEvent{}
	case events.EventTypeWarDispatch:
		event = &events.WarDispatchEvent{}
	case events.EventTypeDiplomacyChanged:
		event = &events.DiplomacyChangedEvent{}
	case events.EventTypeBountyPlaced:
		event = &events.BountyPlacedEvent{}
	case events.EventTypeShieldPurchased:
		event = &events.ShieldPurchasedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, err
	}
	return event, nil
}
