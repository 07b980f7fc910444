package dto

import "time"

// RaidDTO is the presentation view of a raid record
type RaidDTO struct {
	ID             int64      `json:"id"`
	AttackerTag    string     `json:"attacker_tag"`
	DefenderTag    string     `json:"defender_tag"`
	Phase          string     `json:"phase"`
	Outcome        string     `json:"outcome"`
	Forfeit        bool       `json:"forfeit"`
	RaidCost       int64      `json:"raid_cost"`
	StolenAmount   int64      `json:"stolen_amount"`
	WagerPool      int64      `json:"wager_pool"`
	AttackerAllies []string   `json:"attacker_allies"`
	DefenderAllies []string   `json:"defender_allies"`
	DeclaredAt     time.Time  `json:"declared_at"`
	WindowClosesAt time.Time  `json:"window_closes_at"`
	NextPhaseAt    *time.Time `json:"next_phase_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// PreviewDTO is what a leader confirms before a raid is declared
type PreviewDTO struct {
	AttackerTag    string `json:"attacker_tag"`
	DefenderTag    string `json:"defender_tag"`
	Cost           int64  `json:"cost"`
	TreasuryAfter  int64  `json:"treasury_after"`
	WindowSeconds  int64  `json:"window_seconds"`
	DefenderBounty int64  `json:"defender_bounty,omitempty"`
}

// RosterLineDTO is one committed faction
type RosterLineDTO struct {
	Tag         string `json:"tag"`
	Name        string `json:"name"`
	Tier        int    `json:"tier"`
	Attitude    string `json:"attitude"`
	WagerAmount int64  `json:"wager_amount"`
	FormalAlly  bool   `json:"formal_ally"`
}

// RosterDTO is the current line-up of a raid
type RosterDTO struct {
	Raid      RaidDTO         `json:"raid"`
	Attackers []RosterLineDTO `json:"attackers"`
	Defenders []RosterLineDTO `json:"defenders"`
}

// JoinDTO reports a successful join
type JoinDTO struct {
	Side        string    `json:"side"`
	WagerAmount int64     `json:"wager_amount"`
	Wagered     bool      `json:"wagered"`
	Roster      RosterDTO `json:"roster"`
}

// FactionDTO is the public view of a faction
type FactionDTO struct {
	Tag               string `json:"tag"`
	Name              string `json:"name"`
	Tier              int    `json:"tier"`
	Attitude          string `json:"attitude"`
	Treasury          int64  `json:"treasury"`
	RaidsWon          int    `json:"raids_won"`
	RaidsLost         int    `json:"raids_lost"`
	DefensesWon       int    `json:"defenses_won"`
	DefensesLost      int    `json:"defenses_lost"`
	FactionsDestroyed int    `json:"factions_destroyed"`
	TotalLooted       int64  `json:"total_looted"`
}

// RelationshipDTO is the standing between two factions
type RelationshipDTO struct {
	TagA         string     `json:"tag_a"`
	TagB         string     `json:"tag_b"`
	Status       string     `json:"status"`
	InitiatorTag string     `json:"initiator_tag"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// ProposalDTO is an open diplomacy offer
type ProposalDTO struct {
	ID         int64  `json:"id"`
	FromTag    string `json:"from_tag"`
	ToTag      string `json:"to_tag"`
	Kind       string `json:"kind"`
	TruceHours int    `json:"truce_hours,omitempty"`
	Status     string `json:"status"`
}

// BountyDTO is a standing bounty
type BountyDTO struct {
	ID        int64  `json:"id"`
	TargetTag string `json:"target_tag"`
	PlacerTag string `json:"placer_tag"`
	Amount    int64  `json:"amount"`
}

// ShieldDTO reports a faction's shield
type ShieldDTO struct {
	Tag       string     `json:"tag"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CooldownDTO reports how long until a faction may raid again
type CooldownDTO struct {
	Tag              string `json:"tag"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Remaining        string `json:"remaining"`
}
