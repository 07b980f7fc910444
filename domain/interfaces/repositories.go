package interfaces

import (
	"context"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"
)

// FactionRepository defines the interface for faction data access
type FactionRepository interface {
	// GetByTag retrieves a faction by its tag, nil when it does not exist
	GetByTag(ctx context.Context, tag string) (*entities.Faction, error)

	// Create inserts a new faction
	Create(ctx context.Context, faction *entities.Faction) error

	// DebitTreasury subtracts amount only when treasury >= amount in the same statement
	DebitTreasury(ctx context.Context, tag string, amount int64) (entities.BalanceWrite, error)

	// CreditTreasury adds amount; GuardFailed when the faction no longer exists
	CreditTreasury(ctx context.Context, tag string, amount int64) (entities.BalanceWrite, error)

	// ApplyLeaderboard increments the faction's leaderboard counters
	ApplyLeaderboard(ctx context.Context, tag string, delta entities.LeaderboardDelta) error

	// Delete removes the faction; memberships, cooldowns, relationships and bounties cascade
	Delete(ctx context.Context, tag string) error

	// ListLeaderboard returns factions ordered by raids won then total looted
	ListLeaderboard(ctx context.Context, limit int) ([]*entities.Faction, error)
}

// MemberRepository defines the interface for faction membership and member balances
type MemberRepository interface {
	// EnsureUser creates the user row if it is missing
	EnsureUser(ctx context.Context, discordID int64, username string) (*entities.User, error)

	// GetMembership returns the user's faction membership, nil when unaffiliated
	GetMembership(ctx context.Context, discordID int64) (*entities.Membership, error)

	// AddMember adds a user to a faction
	AddMember(ctx context.Context, membership *entities.Membership) error

	// ListByFaction returns all members of a faction with their balances
	ListByFaction(ctx context.Context, tag string) ([]*entities.FactionMember, error)

	// DebitBalance subtracts amount only when balance >= amount in the same statement
	DebitBalance(ctx context.Context, discordID int64, amount int64) (entities.BalanceWrite, error)

	// CreditBalance adds amount to a member balance
	CreditBalance(ctx context.Context, discordID int64, amount int64) (entities.BalanceWrite, error)
}

// CooldownRepository defines the interface for per-faction raid timing state
type CooldownRepository interface {
	// Get returns the faction's cooldown state; a never-touched faction gets a fresh state
	Get(ctx context.Context, tag string) (*entities.CooldownState, error)

	// AcquireRaidLock sets is_under_raid only when it is currently false
	AcquireRaidLock(ctx context.Context, tag string) (entities.GuardResult, error)

	// ReleaseRaidLock clears is_under_raid
	ReleaseRaidLock(ctx context.Context, tag string) error

	// SetLastRaid records when the faction last declared a raid
	SetLastRaid(ctx context.Context, tag string, at time.Time) error

	// SetShield sets the shield expiry
	SetShield(ctx context.Context, tag string, expiresAt time.Time) error

	// ClearShield removes any shield
	ClearShield(ctx context.Context, tag string) error
}

// RaidRepository defines the interface for raid record data access
type RaidRepository interface {
	// Create inserts a new raid record and fills its ID
	Create(ctx context.Context, raid *entities.RaidRecord) error

	// GetByID retrieves a raid by ID, nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entities.RaidRecord, error)

	// TransitionPhase moves the raid from one phase to another if it is still in from
	TransitionPhase(ctx context.Context, id int64, from, to entities.RaidPhase, nextPhaseAt *time.Time) (entities.GuardResult, error)

	// AddToWagerPool increments the pool while the raid is pending
	AddToWagerPool(ctx context.Context, id int64, amount int64) (entities.GuardResult, error)

	// ZeroWagerPool clears the pool once distributed
	ZeroWagerPool(ctx context.Context, id int64) error

	// Resolve writes the final outcome if the raid is still pending
	Resolve(ctx context.Context, resolution *entities.RaidResolution) (entities.GuardResult, error)

	// Abort forces an indeterminate raid to failure
	Abort(ctx context.Context, id int64, at time.Time) (entities.GuardResult, error)

	// ListInPhases returns pending raids in any of the given phases
	ListInPhases(ctx context.Context, phases ...entities.RaidPhase) ([]*entities.RaidRecord, error)

	// ListByFaction returns the most recent raids a faction fought in, newest first
	ListByFaction(ctx context.Context, tag string, limit int) ([]*entities.RaidRecord, error)
}

// ParticipantRepository defines the interface for raid participant data access
type ParticipantRepository interface {
	// AddIfOpen inserts the participant only while the raid is pending and its window is open
	AddIfOpen(ctx context.Context, participant *entities.RaidParticipant, now time.Time) (entities.GuardResult, error)

	// Get returns a faction's participation in a raid, nil when absent
	Get(ctx context.Context, raidID int64, tag string) (*entities.RaidParticipant, error)

	// ListDetailsByRaid returns participants joined with faction tier and attitude
	ListDetailsByRaid(ctx context.Context, raidID int64) ([]*entities.ParticipantDetail, error)

	// DeleteByRaid purges all participants of a raid
	DeleteByRaid(ctx context.Context, raidID int64) error
}

// RelationshipRepository defines the interface for diplomacy data access
type RelationshipRepository interface {
	// Get returns the relationship of a canonical pair, nil when none exists
	Get(ctx context.Context, pair entities.FactionPair) (*entities.Relationship, error)

	// Upsert creates or replaces the relationship of a pair
	Upsert(ctx context.Context, relationship *entities.Relationship) error

	// Delete removes the relationship of a pair
	Delete(ctx context.Context, pair entities.FactionPair) error

	// ListForFaction returns every relationship the faction is part of
	ListForFaction(ctx context.Context, tag string) ([]*entities.Relationship, error)

	// GetCooldown returns a diplomacy cooldown, nil when none exists
	GetCooldown(ctx context.Context, pair entities.FactionPair, kind entities.DiplomacyCooldownKind) (*entities.DiplomacyCooldown, error)

	// SetCooldown creates or extends a diplomacy cooldown
	SetCooldown(ctx context.Context, cooldown *entities.DiplomacyCooldown) error
}

// ProposalRepository defines the interface for diplomacy proposals
type ProposalRepository interface {
	// Create inserts a pending proposal; GuardFailed when one is already pending for the same direction and kind
	Create(ctx context.Context, proposal *entities.DiplomacyProposal) (entities.GuardResult, error)

	// GetByID retrieves a proposal, nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entities.DiplomacyProposal, error)

	// Resolve moves a pending proposal to accepted or declined
	Resolve(ctx context.Context, id int64, status entities.ProposalStatus, at time.Time) (entities.GuardResult, error)
}

// BountyRepository defines the interface for bounty data access
type BountyRepository interface {
	// GetActive returns the active bounty on a target, nil when none
	GetActive(ctx context.Context, targetTag string) (*entities.Bounty, error)

	// Create inserts an active bounty; GuardFailed when the target already has one
	Create(ctx context.Context, bounty *entities.Bounty) (entities.GuardResult, error)

	// Claim marks an active bounty claimed by the given faction
	Claim(ctx context.Context, id int64, claimantTag string, at time.Time) (entities.GuardResult, error)

	// DeleteActive removes the unclaimed bounty on a target, leaving claimed ones as history
	DeleteActive(ctx context.Context, targetTag string) error
}

// LedgerRepository defines the interface for the treasury and balance audit ledger
type LedgerRepository interface {
	// Record creates a new ledger entry
	Record(ctx context.Context, entry *entities.LedgerEntry) error

	// ListByAccount returns the most recent entries of an account
	ListByAccount(ctx context.Context, kind entities.AccountKind, accountID string, limit int) ([]*entities.LedgerEntry, error)

	// ListByRaid returns every entry written for a raid
	ListByRaid(ctx context.Context, raidID int64) ([]*entities.LedgerEntry, error)
}

// RaidActionRepository defines the interface for persisted raid timeline actions
type RaidActionRepository interface {
	// Schedule persists a pending action
	Schedule(ctx context.Context, action *entities.ScheduledRaidAction) error

	// ListDue returns pending actions due at or before now, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.ScheduledRaidAction, error)

	// GetNextDueTime returns the earliest pending due time, nil when nothing is pending
	GetNextDueTime(ctx context.Context) (*time.Time, error)

	// Complete marks a pending action done; GuardFailed if it already ran
	Complete(ctx context.Context, id int64, at time.Time) (entities.GuardResult, error)

	// CancelForRaid cancels every pending action of a raid
	CancelForRaid(ctx context.Context, raidID int64) error
}

// GrantRepository defines the interface for temporary user grants
type GrantRepository interface {
	// Grant creates or extends a grant
	Grant(ctx context.Context, grant *entities.TemporaryGrant) error

	// ListActive returns a user's unexpired grants
	ListActive(ctx context.Context, discordID int64, now time.Time) ([]*entities.TemporaryGrant, error)
}

// Savepointer runs part of a transaction so that its writes can be undone without
// aborting the enclosing transaction
type Savepointer interface {
	WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction commits
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes every buffered event
	Flush(ctx context.Context) error

	// Discard drops every buffered event
	Discard()

	// Mark returns a position that DiscardSince can roll back to
	Mark() int

	// DiscardSince drops events buffered after mark
	DiscardSince(mark int)
}
