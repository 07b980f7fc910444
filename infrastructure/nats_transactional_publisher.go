package infrastructure

import (
	"context"

	"guildwar/domain/events"
	"guildwar/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until flush, then hands them to the real publisher.
// One instance belongs to one unit of work and is not safe for concurrent use.
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
	localHandlers map[events.EventType][]EventHandler
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
		localHandlers: make(map[events.EventType][]EventHandler),
	}
}

// Publish stores an event in the pending queue without immediately publishing
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Adding event to transactional publisher pending queue")

	p.pending = append(p.pending, event)
	return nil
}

// RegisterLocalHandler registers a handler run for a flushed event before it goes to the bus
func (p *NATSTransactionalPublisher) RegisterLocalHandler(eventType events.EventType, handler EventHandler) {
	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
}

// Flush publishes all pending events; call it only after the transaction committed
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(p.pending)).Debug("Flushing pending events")

	for _, event := range p.pending {
		for _, handler := range p.localHandlers[event.Type()] {
			if err := handler(ctx, event); err != nil {
				log.WithFields(log.Fields{
					"eventType": event.Type(),
					"error":     err,
				}).Error("Local event handler failed during flush")
			}
		}

		if err := p.realPublisher.Publish(event); err != nil {
			// A single failed event must not hold back the rest
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	p.pending = p.pending[:0]
	return nil
}

// Discard clears all pending events without publishing them
func (p *NATSTransactionalPublisher) Discard() {
	log.WithField("discardedEventCount", len(p.pending)).Debug("Discarding pending events")
	p.pending = p.pending[:0]
}

// Mark returns the current queue position
func (p *NATSTransactionalPublisher) Mark() int {
	return len(p.pending)
}

// DiscardSince drops events queued after mark, used when a savepoint rolls back
func (p *NATSTransactionalPublisher) DiscardSince(mark int) {
	if mark < 0 || mark > len(p.pending) {
		return
	}
	dropped := len(p.pending) - mark
	p.pending = p.pending[:mark]
	if dropped > 0 {
		log.WithField("discardedEventCount", dropped).Debug("Discarding events queued inside rolled back savepoint")
	}
}

var _ interfaces.TransactionalEventPublisher = (*NATSTransactionalPublisher)(nil)
