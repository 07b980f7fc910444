package interfaces

import (
	"context"
	"time"

	"guildwar/domain/entities"
)

// DiplomacyService defines the interface for relationship management and the war gate
type DiplomacyService interface {
	// CheckWarPermitted rejects when the pair is allied, under truce, or bound by a non-aggression pact
	CheckWarPermitted(ctx context.Context, attackerTag, targetTag string) error

	// DeclareEnemy marks the target faction as an enemy of the requester's faction
	DeclareEnemy(ctx context.Context, requesterID int64, targetTag string) (*entities.Relationship, error)

	// OfferRelationship proposes an alliance or a truce to the target faction
	OfferRelationship(ctx context.Context, requesterID int64, targetTag string, kind entities.ProposalKind, truceHours int) (*entities.DiplomacyProposal, error)

	// AcceptProposal accepts a pending proposal addressed to the requester's faction
	AcceptProposal(ctx context.Context, requesterID int64, proposalID int64) (*entities.Relationship, error)

	// DeclineProposal declines a pending proposal addressed to the requester's faction
	DeclineProposal(ctx context.Context, requesterID int64, proposalID int64) error

	// WithdrawEnemy removes an enemy declaration; only the initiator may withdraw
	WithdrawEnemy(ctx context.Context, requesterID int64, targetTag string) error

	// BreakAlliance dissolves an alliance and installs a non-aggression pact
	BreakAlliance(ctx context.Context, requesterID int64, targetTag string) error

	// ListRelationships returns the active relationships of a faction
	ListRelationships(ctx context.Context, tag string) ([]*entities.Relationship, error)
}

// RaidPreview summarizes a raid that passed validation but has not been committed
type RaidPreview struct {
	Attacker       *entities.Faction
	Defender       *entities.Faction
	Cost           int64
	TreasuryAfter  int64
	WindowDuration time.Duration
	DefenderBounty int64
}

// RaidDeclarationService defines the interface for declaring raids
type RaidDeclarationService interface {
	// PreviewRaid runs every declaration check without side effects
	PreviewRaid(ctx context.Context, requesterID int64, targetTag string) (*RaidPreview, error)

	// DeclareRaid re-validates and commits the declaration
	DeclareRaid(ctx context.Context, requesterID int64, targetTag string) (*entities.RaidRecord, error)
}

// JoinResult is the outcome of a successful join request
type JoinResult struct {
	Participant *entities.RaidParticipant
	Roster      *entities.RaidRoster
	Wagered     bool
}

// RecruitmentService defines the interface for the alliance recruitment window
type RecruitmentService interface {
	// JoinRaid commits the requester's faction to a side of a raid
	JoinRaid(ctx context.Context, requesterID int64, raidID int64, side entities.RaidSide) (*JoinResult, error)

	// GetRoster returns the current line-up of a raid
	GetRoster(ctx context.Context, raidID int64) (*entities.RaidRoster, error)
}

// SettlementService defines the interface for applying a raid's economic outcome
type SettlementService interface {
	// SettleForfeit resolves a raid where one side has no participants
	SettleForfeit(ctx context.Context, roster *entities.RaidRoster) (*entities.SettlementSummary, error)

	// SettleBattle scores a contested raid and applies its outcome
	SettleBattle(ctx context.Context, roster *entities.RaidRoster) (*entities.SettlementSummary, error)
}

// CooldownService defines the interface for shields and raid cooldowns
type CooldownService interface {
	// ApplyPostRaid writes the attacker cooldown, the defender shield, and releases the target lock
	ApplyPostRaid(ctx context.Context, raid *entities.RaidRecord, attackerWon bool, defenderDestroyed bool) error

	// PurchaseShield buys hours of raid immunity for the requester's faction
	PurchaseShield(ctx context.Context, requesterID int64, hours int) (*entities.CooldownState, error)

	// AttackerCooldownRemaining returns how long until a faction may declare again
	AttackerCooldownRemaining(ctx context.Context, tag string) (time.Duration, error)
}

// BountyService defines the interface for bounty placement
type BountyService interface {
	// PlaceBounty puts a reward on the target faction paid from the requester's treasury
	PlaceBounty(ctx context.Context, requesterID int64, targetTag string, amount int64) (*entities.Bounty, error)
}

// RaidHistoryService defines read-only raid queries
type RaidHistoryService interface {
	// GetRaidHistory returns a faction's most recent raids, newest first
	GetRaidHistory(ctx context.Context, tag string, limit int) ([]*entities.RaidRecord, error)

	// GetLeaderboard returns the top factions
	GetLeaderboard(ctx context.Context, limit int) ([]*entities.Faction, error)
}

// Dice is the source of randomness for battles and loot
type Dice interface {
	// Roll returns a uniform integer in [1, sides]
	Roll(sides int) int

	// Chance reports true with the given percent probability
	Chance(percent int) bool
}
