package application

import (
	"context"

	"guildwar/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	// Repository getters
	FactionRepository() interfaces.FactionRepository
	MemberRepository() interfaces.MemberRepository
	CooldownRepository() interfaces.CooldownRepository
	RaidRepository() interfaces.RaidRepository
	ParticipantRepository() interfaces.ParticipantRepository
	RelationshipRepository() interfaces.RelationshipRepository
	ProposalRepository() interfaces.ProposalRepository
	BountyRepository() interfaces.BountyRepository
	LedgerRepository() interfaces.LedgerRepository
	RaidActionRepository() interfaces.RaidActionRepository
	GrantRepository() interfaces.GrantRepository

	// Savepointer scopes partial rollbacks inside the transaction
	Savepointer() interfaces.Savepointer

	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
