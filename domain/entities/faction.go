package entities

import (
	"regexp"
	"time"
)

const (
	MinTier = 1
	MaxTier = 15

	// CreationImmunity is how long a newly founded faction cannot be raided
	CreationImmunity = 7 * 24 * time.Hour
)

var tagPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Faction represents a player guild with a shared treasury
type Faction struct {
	Tag               string    `db:"tag"`
	Name              string    `db:"name"`
	Tier              int       `db:"tier"`
	Attitude          Attitude  `db:"attitude"`
	OwnerDiscordID    int64     `db:"owner_discord_id"`
	Treasury          int64     `db:"treasury"`
	RaidsWon          int       `db:"raids_won"`
	RaidsLost         int       `db:"raids_lost"`
	DefensesWon       int       `db:"defenses_won"`
	DefensesLost      int       `db:"defenses_lost"`
	FactionsDestroyed int       `db:"factions_destroyed"`
	TotalLooted       int64     `db:"total_looted"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// IsValidTag reports whether tag is three upper-case letters
func IsValidTag(tag string) bool {
	return tagPattern.MatchString(tag)
}

// IsImmune reports whether the faction is still inside its creation immunity window
func (f *Faction) IsImmune(now time.Time) bool {
	return now.Before(f.CreatedAt.Add(CreationImmunity))
}

// ImmunityEndsAt returns when the creation immunity lapses
func (f *Faction) ImmunityEndsAt() time.Time {
	return f.CreatedAt.Add(CreationImmunity)
}

// RaidCost is the treasury cost of declaring a raid at this faction's tier
func (f *Faction) RaidCost() int64 {
	return RaidCostForTier(f.Tier)
}

// CanAfford checks the treasury against amount
func (f *Faction) CanAfford(amount int64) bool {
	return f.Treasury >= amount
}

// RaidCostForTier returns tier × 200
func RaidCostForTier(tier int) int64 {
	return int64(tier) * 200
}

// OpportunistWagerForTier returns the up-front stake an Opportunist pays to join a raid
func OpportunistWagerForTier(tier int) int64 {
	return int64(tier) * 100
}

// TierBracket groups tiers in threes: 1-3 → 0, 4-6 → 1, ..., 13-15 → 4
func TierBracket(tier int) int {
	if tier < MinTier {
		return 0
	}
	return (tier - 1) / 3
}

// TierPowerBonus is the flat combat bonus a faction contributes at its tier
func TierPowerBonus(tier int) int {
	return TierBracket(tier) + 1
}

// BaseArmorClass is the defender's base resistance before allies and modifiers
func BaseArmorClass(tier int) int {
	return 18 + tier
}

// LeaderboardDelta holds increments applied to a faction's counters at settlement
type LeaderboardDelta struct {
	RaidsWon          int
	RaidsLost         int
	DefensesWon       int
	DefensesLost      int
	FactionsDestroyed int
	TotalLooted       int64
}

// IsZero reports whether the delta changes nothing
func (d LeaderboardDelta) IsZero() bool {
	return d == LeaderboardDelta{}
}
