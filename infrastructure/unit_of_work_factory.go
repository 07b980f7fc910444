package infrastructure

import (
	"guildwar/application"
	"guildwar/database"
	"guildwar/domain/events"
	"guildwar/domain/interfaces"
	"guildwar/repository"
)

// UnitOfWorkFactory implements the application.UnitOfWorkFactory interface.
// Each UnitOfWork gets its own transactional publisher so events leave only after commit.
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(interfaces.TransactionalEventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
	localHandlers  map[events.EventType][]EventHandler
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
		localHandlers:  make(map[events.EventType][]EventHandler),
	}
}

// RegisterLocalHandler registers a handler run in process after every committed event of the type.
// Register before the first Create; handlers are copied into each unit of work.
func (f *UnitOfWorkFactory) RegisterLocalHandler(eventType events.EventType, handler EventHandler) {
	f.localHandlers[eventType] = append(f.localHandlers[eventType], handler)
}

// Create creates a new UnitOfWork with a transactional event publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	transactionalPublisher := NewNATSTransactionalPublisher(f.eventPublisher)
	for eventType, handlers := range f.localHandlers {
		for _, handler := range handlers {
			transactionalPublisher.RegisterLocalHandler(eventType, handler)
		}
	}
	return f.repoFactory.CreateWithPublisher(transactionalPublisher)
}
