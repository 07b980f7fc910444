package services

import (
	"fmt"

	"guildwar/domain/entities"
	"guildwar/domain/interfaces"
)

// opportunistDebuffPercent is the chance an Opportunist sabotages the opposing side
const opportunistDebuffPercent = 50

// BattleResolver scores a contested raid. It has no side effects beyond consuming dice.
type BattleResolver struct {
	dice interfaces.Dice
}

// NewBattleResolver creates a resolver drawing from dice
func NewBattleResolver(dice interfaces.Dice) *BattleResolver {
	return &BattleResolver{dice: dice}
}

// Resolve computes attack power against defense resistance for a roster where both sides have participants.
// defenderAttitude is the primary defender's declared stance, which gates attitude modifiers.
func (r *BattleResolver) Resolve(roster *entities.RaidRoster, defenderAttitude entities.Attitude) *entities.BattleReport {
	raid := roster.Raid
	report := &entities.BattleReport{}

	report.Roll = r.dice.Roll(20)
	report.Lines = append(report.Lines, entities.ModifierLine{Source: "d20 roll", Side: entities.RaidSideAttacker, Value: report.Roll})

	power := report.Roll
	attackerBonus := entities.TierPowerBonus(raid.AttackerTier)
	power += attackerBonus
	report.Lines = append(report.Lines, entities.ModifierLine{
		Source: fmt.Sprintf("%s tier %d power", raid.AttackerTag, raid.AttackerTier),
		Side:   entities.RaidSideAttacker,
		Value:  attackerBonus,
	})

	resistance := entities.BaseArmorClass(raid.DefenderTier)
	report.Lines = append(report.Lines, entities.ModifierLine{
		Source: fmt.Sprintf("%s tier %d armor class", raid.DefenderTag, raid.DefenderTier),
		Side:   entities.RaidSideDefender,
		Value:  resistance,
	})

	for _, ally := range r.allies(roster, entities.RaidSideAttacker) {
		bonus := entities.TierPowerBonus(ally.Tier)
		power += bonus
		report.Lines = append(report.Lines, entities.ModifierLine{
			Source: fmt.Sprintf("ally %s tier %d", ally.FactionTag, ally.Tier),
			Side:   entities.RaidSideAttacker,
			Value:  bonus,
		})
	}
	for _, ally := range r.allies(roster, entities.RaidSideDefender) {
		bonus := entities.TierPowerBonus(ally.Tier)
		resistance += bonus
		report.Lines = append(report.Lines, entities.ModifierLine{
			Source: fmt.Sprintf("ally %s tier %d", ally.FactionTag, ally.Tier),
			Side:   entities.RaidSideDefender,
			Value:  bonus,
		})
	}

	if defenderAttitude != entities.AttitudeNeutral {
		r.applyAttitudes(roster, report)
	}

	switch {
	case raid.AttackerTier > raid.DefenderTier:
		report.AttackModifier += entities.BullyPenalty
		report.Lines = append(report.Lines, entities.ModifierLine{Source: "Bully Penalty", Side: entities.RaidSideAttacker, Value: entities.BullyPenalty})
	case raid.AttackerTier < raid.DefenderTier:
		report.AttackModifier += entities.KingslayerBonus
		report.Lines = append(report.Lines, entities.ModifierLine{Source: "Kingslayer Bonus", Side: entities.RaidSideAttacker, Value: entities.KingslayerBonus})
	}

	report.AttackerPower = power + report.AttackModifier
	report.DefenseResistance = resistance + report.DefenseModifier

	report.CataclysmChance = CataclysmChance(roster, defenderAttitude)
	if report.CataclysmChance > 0 {
		report.Cataclysm = r.dice.Chance(report.CataclysmChance)
	}

	report.AttackerWins = !report.Cataclysm && report.AttackerPower >= report.DefenseResistance
	return report
}

// applyAttitudes adds stance contributions of every faction that actually joined
func (r *BattleResolver) applyAttitudes(roster *entities.RaidRoster, report *entities.BattleReport) {
	for _, side := range []entities.RaidSide{entities.RaidSideAttacker, entities.RaidSideDefender} {
		for _, p := range roster.Side(side) {
			effect := entities.AttitudeEffectFor(p.Attitude, side)
			if effect.Attack != 0 {
				report.AttackModifier += effect.Attack
				report.Lines = append(report.Lines, entities.ModifierLine{
					Source: fmt.Sprintf("%s aggressive stance", p.FactionTag),
					Side:   entities.RaidSideAttacker,
					Value:  effect.Attack,
				})
			}
			if effect.Defense != 0 {
				report.DefenseModifier += effect.Defense
				report.Lines = append(report.Lines, entities.ModifierLine{
					Source: fmt.Sprintf("%s defensive stance", p.FactionTag),
					Side:   entities.RaidSideDefender,
					Value:  effect.Defense,
				})
			}
			if effect.DebuffsOpponent && r.dice.Chance(opportunistDebuffPercent) {
				target := side.Opposite()
				if target == entities.RaidSideAttacker {
					report.AttackModifier += entities.OpportunistDebuff
				} else {
					report.DefenseModifier += entities.OpportunistDebuff
				}
				report.Lines = append(report.Lines, entities.ModifierLine{
					Source: fmt.Sprintf("%s opportunist sabotage", p.FactionTag),
					Side:   target,
					Value:  entities.OpportunistDebuff,
				})
			}
		}
	}
}

// allies returns the joined participants of a side excluding its primary
func (r *BattleResolver) allies(roster *entities.RaidRoster, side entities.RaidSide) []*entities.ParticipantDetail {
	primary := roster.Raid.PrimaryFor(side)
	var allies []*entities.ParticipantDetail
	for _, p := range roster.Side(side) {
		if p.FactionTag != primary {
			allies = append(allies, p)
		}
	}
	return allies
}

// CataclysmChance is the highest forced-failure chance across the defending coalition.
// The primary defender counts whether or not it joined; allies count only when joined.
func CataclysmChance(roster *entities.RaidRoster, defenderAttitude entities.Attitude) int {
	raid := roster.Raid
	best := entities.CataclysmChancePercent(defenderAttitude, raid.DefenderTier, true)
	for _, p := range roster.Defenders {
		if p.FactionTag == raid.DefenderTag {
			continue
		}
		if chance := entities.CataclysmChancePercent(p.Attitude, p.Tier, false); chance > best {
			best = chance
		}
	}
	return best
}
