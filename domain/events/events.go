package events

import (
	"time"

	"guildwar/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTreasuryChanged   EventType = "treasury_changed"
	EventTypeRaidDeclared      EventType = "raid_declared"
	EventTypeRaidRosterChanged EventType = "raid_roster_changed"
	EventTypeRaidPhaseChanged  EventType = "raid_phase_changed"
	EventTypeRaidSettled       EventType = "raid_settled"
	EventTypeRaidAborted       EventType = "raid_aborted"
	EventTypeFactionDestroyed  EventType = "faction_destroyed"
	EventTypeWarDispatch       EventType = "war_dispatch"
	EventTypeDiplomacyChanged  EventType = "diplomacy_changed"
	EventTypeBountyPlaced      EventType = "bounty_placed"
	EventTypeShieldPurchased   EventType = "shield_purchased"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TreasuryChangedEvent is published for every ledger write
type TreasuryChangedEvent struct {
	AccountKind  entities.AccountKind `json:"account_kind"`
	AccountID    string               `json:"account_id"`
	OldBalance   int64                `json:"old_balance"`
	NewBalance   int64                `json:"new_balance"`
	ChangeAmount int64                `json:"change_amount"`
	EntryType    entities.EntryType   `json:"entry_type"`
	RaidID       *int64               `json:"raid_id,omitempty"`
}

func (e TreasuryChangedEvent) Type() EventType {
	return EventTypeTreasuryChanged
}

// RaidDeclaredEvent opens the recruitment window for a raid
type RaidDeclaredEvent struct {
	RaidID         int64     `json:"raid_id"`
	AttackerTag    string    `json:"attacker_tag"`
	DefenderTag    string    `json:"defender_tag"`
	DeclaredBy     int64     `json:"declared_by"`
	RaidCost       int64     `json:"raid_cost"`
	WindowClosesAt time.Time `json:"window_closes_at"`
}

func (e RaidDeclaredEvent) Type() EventType {
	return EventTypeRaidDeclared
}

// RosterEntry is one line of a roster snapshot
type RosterEntry struct {
	FactionTag  string            `json:"faction_tag"`
	FactionName string            `json:"faction_name"`
	Tier        int               `json:"tier"`
	Attitude    entities.Attitude `json:"attitude"`
	WagerAmount int64             `json:"wager_amount"`
	FormalAlly  bool              `json:"formal_ally"`
}

// RaidRosterChangedEvent carries the recruitment snapshot after a faction joins
type RaidRosterChangedEvent struct {
	RaidID         int64             `json:"raid_id"`
	JoinedTag      string            `json:"joined_tag"`
	JoinedSide     entities.RaidSide `json:"joined_side"`
	WagerAmount    int64             `json:"wager_amount"`
	WagerPool      int64             `json:"wager_pool"`
	Attackers      []RosterEntry     `json:"attackers"`
	Defenders      []RosterEntry     `json:"defenders"`
	WindowClosesAt time.Time         `json:"window_closes_at"`
}

func (e RaidRosterChangedEvent) Type() EventType {
	return EventTypeRaidRosterChanged
}

// RaidPhaseChangedEvent announces a narrative phase and when the next one is due
type RaidPhaseChangedEvent struct {
	RaidID      int64              `json:"raid_id"`
	AttackerTag string             `json:"attacker_tag"`
	DefenderTag string             `json:"defender_tag"`
	OldPhase    entities.RaidPhase `json:"old_phase"`
	NewPhase    entities.RaidPhase `json:"new_phase"`
	NextPhaseAt *time.Time         `json:"next_phase_at,omitempty"`
}

func (e RaidPhaseChangedEvent) Type() EventType {
	return EventTypeRaidPhaseChanged
}

// RaidSettledEvent carries the final settlement summary
type RaidSettledEvent struct {
	Summary *entities.SettlementSummary `json:"summary"`
}

func (e RaidSettledEvent) Type() EventType {
	return EventTypeRaidSettled
}

// RaidAbortedEvent reports an indeterminate outcome after a fatal error
type RaidAbortedEvent struct {
	RaidID      int64  `json:"raid_id"`
	AttackerTag string `json:"attacker_tag"`
	DefenderTag string `json:"defender_tag"`
	Reason      string `json:"reason"`
}

func (e RaidAbortedEvent) Type() EventType {
	return EventTypeRaidAborted
}

// FactionDestroyedEvent is published when a raid empties a faction's vault
type FactionDestroyedEvent struct {
	FactionTag   string `json:"faction_tag"`
	FactionName  string `json:"faction_name"`
	DestroyedBy  string `json:"destroyed_by"`
	RaidID       int64  `json:"raid_id"`
	MembersFreed int    `json:"members_freed"`
}

func (e FactionDestroyedEvent) Type() EventType {
	return EventTypeFactionDestroyed
}

// DispatchStage is the point in the raid a war correspondent reports on
type DispatchStage string

const (
	DispatchStageDeclared DispatchStage = "declared"
	DispatchStageSettled  DispatchStage = "settled"
)

// WarDispatchEvent notifies a third party faction that an ally or enemy is at war
type WarDispatchEvent struct {
	RaidID       int64                       `json:"raid_id"`
	RecipientTag string                      `json:"recipient_tag"`
	SubjectTag   string                      `json:"subject_tag"`
	Relation     entities.RelationshipStatus `json:"relation"`
	SubjectSide  entities.RaidSide           `json:"subject_side"`
	Stage        DispatchStage               `json:"stage"`
	AttackerTag  string                      `json:"attacker_tag"`
	DefenderTag  string                      `json:"defender_tag"`
	Outcome      entities.RaidOutcome        `json:"outcome"`
}

func (e WarDispatchEvent) Type() EventType {
	return EventTypeWarDispatch
}

// DiplomacyAction names the change that produced a DiplomacyChangedEvent
type DiplomacyAction string

const (
	DiplomacyActionEnemyDeclared  DiplomacyAction = "enemy_declared"
	DiplomacyActionEnemyWithdrawn DiplomacyAction = "enemy_withdrawn"
	DiplomacyActionProposed       DiplomacyAction = "proposed"
	DiplomacyActionAccepted       DiplomacyAction = "accepted"
	DiplomacyActionDeclined       DiplomacyAction = "declined"
	DiplomacyActionAllianceBroken DiplomacyAction = "alliance_broken"
)

// DiplomacyChangedEvent reports a relationship change between two factions
type DiplomacyChangedEvent struct {
	ActorTag   string                      `json:"actor_tag"`
	TargetTag  string                      `json:"target_tag"`
	Action     DiplomacyAction             `json:"action"`
	Status     entities.RelationshipStatus `json:"status,omitempty"`
	ExpiresAt  *time.Time                  `json:"expires_at,omitempty"`
	ProposalID int64                       `json:"proposal_id,omitempty"`
}

func (e DiplomacyChangedEvent) Type() EventType {
	return EventTypeDiplomacyChanged
}

// BountyPlacedEvent announces a new bounty
type BountyPlacedEvent struct {
	BountyID  int64  `json:"bounty_id"`
	TargetTag string `json:"target_tag"`
	PlacerTag string `json:"placer_tag"`
	Amount    int64  `json:"amount"`
}

func (e BountyPlacedEvent) Type() EventType {
	return EventTypeBountyPlaced
}

// ShieldPurchasedEvent announces a purchased shield
type ShieldPurchasedEvent struct {
	FactionTag string    `json:"faction_tag"`
	Hours      int       `json:"hours"`
	Cost       int64     `json:"cost"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (e ShieldPurchasedEvent) Type() EventType {
	return EventTypeShieldPurchased
}
