package entities

// Attitude is a faction's declared combat stance
type Attitude string

const (
	AttitudeNeutral     Attitude = "neutral"
	AttitudeAggressive  Attitude = "aggressive"
	AttitudeDefensive   Attitude = "defensive"
	AttitudeOpportunist Attitude = "opportunist"
)

// IsValid checks the attitude is one of the known stances
func (a Attitude) IsValid() bool {
	switch a {
	case AttitudeNeutral, AttitudeAggressive, AttitudeDefensive, AttitudeOpportunist:
		return true
	}
	return false
}

// AttitudeEffect is the contribution a joined faction makes to the battle through its stance
type AttitudeEffect struct {
	Attack  int // added to the attacker's modifier
	Defense int // added to the defender's modifier

	// DebuffsOpponent means the faction gets one coin flip to subtract 1 from the opposing side
	DebuffsOpponent bool
}

// AttitudeEffectFor maps (attitude, side) to the faction's battle contribution.
// Only factions that actually joined the raid are passed through this table.
func AttitudeEffectFor(attitude Attitude, side RaidSide) AttitudeEffect {
	switch {
	case attitude == AttitudeAggressive && side == RaidSideAttacker:
		return AttitudeEffect{Attack: 1}
	case attitude == AttitudeDefensive && side == RaidSideDefender:
		return AttitudeEffect{Defense: 1}
	case attitude == AttitudeOpportunist:
		return AttitudeEffect{DebuffsOpponent: true}
	}
	return AttitudeEffect{}
}

// CataclysmChancePercent is the chance that a Defensive defender forces an attacker failure.
// The primary defender counts double compared to a Defensive ally.
func CataclysmChancePercent(attitude Attitude, tier int, primary bool) int {
	if attitude != AttitudeDefensive {
		return 0
	}
	perBracket := 2
	if primary {
		perBracket = 4
	}
	return (TierBracket(tier) + 1) * perBracket
}

// AggressiveCooldownReduction is how many hours an Aggressive stance shaves off the raid cooldown
func AggressiveCooldownReduction(attitude Attitude, tier int) int {
	if attitude != AttitudeAggressive {
		return 0
	}
	switch {
	case tier >= 13:
		return 16
	case tier >= 10:
		return 12
	case tier >= 7:
		return 8
	case tier >= 4:
		return 4
	}
	return 0
}
