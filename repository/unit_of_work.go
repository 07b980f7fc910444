package repository

import (
	"context"
	"errors"
	"fmt"

	"guildwar/application"
	"guildwar/database"
	"guildwar/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const notStarted = "unit of work not started - call Begin() first"

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	factionRepo            interfaces.FactionRepository
	memberRepo             interfaces.MemberRepository
	cooldownRepo           interfaces.CooldownRepository
	raidRepo               interfaces.RaidRepository
	participantRepo        interfaces.ParticipantRepository
	relationshipRepo       interfaces.RelationshipRepository
	proposalRepo           interfaces.ProposalRepository
	bountyRepo             interfaces.BountyRepository
	ledgerRepo             interfaces.LedgerRepository
	actionRepo             interfaces.RaidActionRepository
	grantRepo              interfaces.GrantRepository
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a new UnitOfWork whose events go through the given transactional publisher
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.factionRepo = NewFactionRepositoryScoped(tx)
	u.memberRepo = NewMemberRepositoryScoped(tx)
	u.cooldownRepo = NewCooldownRepositoryScoped(tx)
	u.raidRepo = NewRaidRepositoryScoped(tx)
	u.participantRepo = NewParticipantRepositoryScoped(tx)
	u.relationshipRepo = NewRelationshipRepositoryScoped(tx)
	u.proposalRepo = NewProposalRepositoryScoped(tx)
	u.bountyRepo = NewBountyRepositoryScoped(tx)
	u.ledgerRepo = NewLedgerRepositoryScoped(tx)
	u.actionRepo = NewRaidActionRepositoryScoped(tx)
	u.grantRepo = NewGrantRepositoryScoped(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	// The transaction is durable at this point; publish failures are only logged
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("Failed to flush events after commit")
		}
	}
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// WithSavepoint runs fn inside a nested transaction. Repositories keep writing
// through the outer transaction handle, which shares the connection, so their
// statements fall inside the savepoint.
func (u *unitOfWork) WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	if u.tx == nil {
		return errors.New(notStarted)
	}

	savepoint, err := u.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	mark := -1
	if u.transactionalPublisher != nil {
		mark = u.transactionalPublisher.Mark()
	}

	if err := fn(ctx); err != nil {
		if rbErr := savepoint.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("failed to roll back to savepoint after %v: %w", err, rbErr)
		}
		if mark >= 0 {
			u.transactionalPublisher.DiscardSince(mark)
		}
		return err
	}

	if err := savepoint.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (u *unitOfWork) Savepointer() interfaces.Savepointer {
	if u.tx == nil {
		panic(notStarted)
	}
	return u
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic(notStarted)
	}
	return u.transactionalPublisher
}

func (u *unitOfWork) FactionRepository() interfaces.FactionRepository {
	if u.factionRepo == nil {
		panic(notStarted)
	}
	return u.factionRepo
}

func (u *unitOfWork) MemberRepository() interfaces.MemberRepository {
	if u.memberRepo == nil {
		panic(notStarted)
	}
	return u.memberRepo
}

func (u *unitOfWork) CooldownRepository() interfaces.CooldownRepository {
	if u.cooldownRepo == nil {
		panic(notStarted)
	}
	return u.cooldownRepo
}

func (u *unitOfWork) RaidRepository() interfaces.RaidRepository {
	if u.raidRepo == nil {
		panic(notStarted)
	}
	return u.raidRepo
}

func (u *unitOfWork) ParticipantRepository() interfaces.ParticipantRepository {
	if u.participantRepo == nil {
		panic(notStarted)
	}
	return u.participantRepo
}

func (u *unitOfWork) RelationshipRepository() interfaces.RelationshipRepository {
	if u.relationshipRepo == nil {
		panic(notStarted)
	}
	return u.relationshipRepo
}

func (u *unitOfWork) ProposalRepository() interfaces.ProposalRepository {
	if u.proposalRepo == nil {
		panic(notStarted)
	}
	return u.proposalRepo
}

func (u *unitOfWork) BountyRepository() interfaces.BountyRepository {
	if u.bountyRepo == nil {
		panic(notStarted)
	}
	return u.bountyRepo
}

func (u *unitOfWork) LedgerRepository() interfaces.LedgerRepository {
	if u.ledgerRepo == nil {
		panic(notStarted)
	}
	return u.ledgerRepo
}

func (u *unitOfWork) RaidActionRepository() interfaces.RaidActionRepository {
	if u.actionRepo == nil {
		panic(notStarted)
	}
	return u.actionRepo
}

func (u *unitOfWork) GrantRepository() interfaces.GrantRepository {
	if u.grantRepo == nil {
		panic(notStarted)
	}
	return u.grantRepo
}
