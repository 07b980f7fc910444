package entities

import "time"

const (
	EnemyRedeclareCooldown = 7 * 24 * time.Hour
	AllianceBreakCooldown  = 24 * time.Hour

	MinTruceHours = 1
	MaxTruceHours = 168
)

// RelationshipStatus is the standing between two factions
type RelationshipStatus string

const (
	RelationshipAlliance RelationshipStatus = "alliance"
	RelationshipEnemy    RelationshipStatus = "enemy"
	RelationshipTruce    RelationshipStatus = "truce"
)

// FactionPair is an unordered pair of faction tags stored in sorted order
type FactionPair struct {
	A string
	B string
}

// NewFactionPair canonicalizes two tags so the smaller one comes first
func NewFactionPair(x, y string) FactionPair {
	if y < x {
		return FactionPair{A: y, B: x}
	}
	return FactionPair{A: x, B: y}
}

// Other returns the tag in the pair that is not tag
func (p FactionPair) Other(tag string) string {
	if p.A == tag {
		return p.B
	}
	return p.A
}

// Relationship is the undirected standing between a canonical pair of factions
type Relationship struct {
	TagA         string             `db:"tag_a"`
	TagB         string             `db:"tag_b"`
	Status       RelationshipStatus `db:"status"`
	InitiatorTag string             `db:"initiator_tag"`
	ExpiresAt    *time.Time         `db:"expires_at"`
	CreatedAt    time.Time          `db:"created_at"`
}

// Pair returns the canonical pair of the relationship
func (r *Relationship) Pair() FactionPair {
	return FactionPair{A: r.TagA, B: r.TagB}
}

// IsExpired reports whether a truce has lapsed; other statuses never expire
func (r *Relationship) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// IsActive reports whether the relationship is in force at now
func (r *Relationship) IsActive(now time.Time) bool {
	return !r.IsExpired(now)
}

// DiplomacyCooldownKind names a per-pair restriction on relationship changes
type DiplomacyCooldownKind string

const (
	DiplomacyCooldownEnemyRedeclare DiplomacyCooldownKind = "enemy_redeclare"
	DiplomacyCooldownAllianceBreak  DiplomacyCooldownKind = "alliance_break"
)

// DiplomacyCooldown blocks a pair from a kind of relationship change until ExpiresAt
type DiplomacyCooldown struct {
	TagA      string                `db:"tag_a"`
	TagB      string                `db:"tag_b"`
	Kind      DiplomacyCooldownKind `db:"kind"`
	ExpiresAt time.Time             `db:"expires_at"`
}

// IsActive reports whether the cooldown still applies
func (c *DiplomacyCooldown) IsActive(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// ProposalKind is the relationship offered by a proposal
type ProposalKind string

const (
	ProposalAlliance ProposalKind = "alliance"
	ProposalTruce    ProposalKind = "truce"
)

// ProposalStatus tracks the lifecycle of a proposal
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusDeclined ProposalStatus = "declined"
)

// DiplomacyProposal is an offer of alliance or truce awaiting the target's answer
type DiplomacyProposal struct {
	ID         int64          `db:"id"`
	FromTag    string         `db:"from_tag"`
	ToTag      string         `db:"to_tag"`
	Kind       ProposalKind   `db:"kind"`
	TruceHours int            `db:"truce_hours"`
	Status     ProposalStatus `db:"status"`
	ProposedBy int64          `db:"proposed_by"`
	CreatedAt  time.Time      `db:"created_at"`
	ResolvedAt *time.Time     `db:"resolved_at"`
}

// IsPending reports whether the proposal is still open
func (p *DiplomacyProposal) IsPending() bool {
	return p.Status == ProposalStatusPending
}
