package entities

import "time"

const (
	BaseRaidCooldownHours = 24
	MinRaidCooldownHours  = 1

	ShieldAfterSuccessfulRaid = 24 * time.Hour
	ShieldAfterHeldDefense    = 12 * time.Hour

	MinShieldPurchaseHours = 1
	MaxShieldPurchaseHours = 48
)

// CooldownState tracks per-faction raid timing and the raid-target lock.
// Nil timestamps mean the event has never happened for this faction.
type CooldownState struct {
	FactionTag      string     `db:"faction_tag"`
	ShieldExpiresAt *time.Time `db:"shield_expires_at"`
	LastRaidAt      *time.Time `db:"last_raid_at"`
	IsUnderRaid     bool       `db:"is_under_raid"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// NewCooldownState returns the state of a faction that has never raided or been shielded
func NewCooldownState(tag string) *CooldownState {
	return &CooldownState{FactionTag: tag}
}

// IsShielded reports whether an unexpired shield protects the faction
func (c *CooldownState) IsShielded(now time.Time) bool {
	return c.ShieldExpiresAt != nil && now.Before(*c.ShieldExpiresAt)
}

// AttackerCooldown returns max(1, 24 - aggressive reduction) hours
func AttackerCooldown(attitude Attitude, tier int) time.Duration {
	hours := BaseRaidCooldownHours - AggressiveCooldownReduction(attitude, tier)
	if hours < MinRaidCooldownHours {
		hours = MinRaidCooldownHours
	}
	return time.Duration(hours) * time.Hour
}

// RaidCooldownRemaining returns how long until the faction may declare again; zero when ready
func (c *CooldownState) RaidCooldownRemaining(attitude Attitude, tier int, now time.Time) time.Duration {
	if c.LastRaidAt == nil {
		return 0
	}
	readyAt := c.LastRaidAt.Add(AttackerCooldown(attitude, tier))
	if !now.Before(readyAt) {
		return 0
	}
	return readyAt.Sub(now)
}

// ShieldPriceForTier is the treasury cost of one hour of purchased shield
func ShieldPriceForTier(tier int) int64 {
	return int64(tier) * 50
}
