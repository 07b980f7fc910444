package dto

import (
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/interfaces"
	"guildwar/domain/utils"
)

// RaidToDTO converts a raid record to its presentation view
func RaidToDTO(raid *entities.RaidRecord) RaidDTO {
	return RaidDTO{
		ID:             raid.ID,
		AttackerTag:    raid.AttackerTag,
		DefenderTag:    raid.DefenderTag,
		Phase:          string(raid.Phase),
		Outcome:        string(raid.Outcome),
		Forfeit:        raid.Forfeit,
		RaidCost:       raid.RaidCost,
		StolenAmount:   raid.StolenAmount,
		WagerPool:      raid.WagerPool,
		AttackerAllies: nonNil(raid.AttackerAllies),
		DefenderAllies: nonNil(raid.DefenderAllies),
		DeclaredAt:     raid.DeclaredAt,
		WindowClosesAt: raid.WindowClosesAt,
		NextPhaseAt:    raid.NextPhaseAt,
		ResolvedAt:     raid.ResolvedAt,
	}
}

// RaidsToDTO converts a list of raids
func RaidsToDTO(raids []*entities.RaidRecord) []RaidDTO {
	out := make([]RaidDTO, len(raids))
	for i, raid := range raids {
		out[i] = RaidToDTO(raid)
	}
	return out
}

// PreviewToDTO converts a raid preview
func PreviewToDTO(preview *interfaces.RaidPreview) PreviewDTO {
	return PreviewDTO{
		AttackerTag:    preview.Attacker.Tag,
		DefenderTag:    preview.Defender.Tag,
		Cost:           preview.Cost,
		TreasuryAfter:  preview.TreasuryAfter,
		WindowSeconds:  int64(preview.WindowDuration / time.Second),
		DefenderBounty: preview.DefenderBounty,
	}
}

// RosterToDTO converts a roster
func RosterToDTO(roster *entities.RaidRoster) RosterDTO {
	lines := func(side []*entities.ParticipantDetail) []RosterLineDTO {
		out := make([]RosterLineDTO, len(side))
		for i, p := range side {
			out[i] = RosterLineDTO{
				Tag:         p.FactionTag,
				Name:        p.FactionName,
				Tier:        p.Tier,
				Attitude:    string(p.Attitude),
				WagerAmount: p.WagerAmount,
				FormalAlly:  p.FormalAlly,
			}
		}
		return out
	}
	return RosterDTO{
		Raid:      RaidToDTO(roster.Raid),
		Attackers: lines(roster.Attackers),
		Defenders: lines(roster.Defenders),
	}
}

// JoinToDTO converts a join result
func JoinToDTO(result *interfaces.JoinResult) JoinDTO {
	return JoinDTO{
		Side:        string(result.Participant.Side),
		WagerAmount: result.Participant.WagerAmount,
		Wagered:     result.Wagered,
		Roster:      RosterToDTO(result.Roster),
	}
}

// FactionsToDTO converts leaderboard factions
func FactionsToDTO(factions []*entities.Faction) []FactionDTO {
	out := make([]FactionDTO, len(factions))
	for i, f := range factions {
		out[i] = FactionDTO{
			Tag:               f.Tag,
			Name:              f.Name,
			Tier:              f.Tier,
			Attitude:          string(f.Attitude),
			Treasury:          f.Treasury,
			RaidsWon:          f.RaidsWon,
			RaidsLost:         f.RaidsLost,
			DefensesWon:       f.DefensesWon,
			DefensesLost:      f.DefensesLost,
			FactionsDestroyed: f.FactionsDestroyed,
			TotalLooted:       f.TotalLooted,
		}
	}
	return out
}

// RelationshipToDTO converts a relationship
func RelationshipToDTO(rel *entities.Relationship) RelationshipDTO {
	return RelationshipDTO{
		TagA:         rel.TagA,
		TagB:         rel.TagB,
		Status:       string(rel.Status),
		InitiatorTag: rel.InitiatorTag,
		ExpiresAt:    rel.ExpiresAt,
	}
}

// RelationshipsToDTO converts a list of relationships
func RelationshipsToDTO(rels []*entities.Relationship) []RelationshipDTO {
	out := make([]RelationshipDTO, len(rels))
	for i, rel := range rels {
		out[i] = RelationshipToDTO(rel)
	}
	return out
}

// ProposalToDTO converts a proposal
func ProposalToDTO(p *entities.DiplomacyProposal) ProposalDTO {
	return ProposalDTO{
		ID:         p.ID,
		FromTag:    p.FromTag,
		ToTag:      p.ToTag,
		Kind:       string(p.Kind),
		TruceHours: p.TruceHours,
		Status:     string(p.Status),
	}
}

// BountyToDTO converts a bounty
func BountyToDTO(b *entities.Bounty) BountyDTO {
	return BountyDTO{
		ID:        b.ID,
		TargetTag: b.TargetTag,
		PlacerTag: b.PlacerTag,
		Amount:    b.Amount,
	}
}

// ShieldToDTO converts a cooldown state to its shield view
func ShieldToDTO(state *entities.CooldownState) ShieldDTO {
	return ShieldDTO{
		Tag:       state.FactionTag,
		ExpiresAt: state.ShieldExpiresAt,
	}
}

// CooldownToDTO converts a remaining attacker cooldown
func CooldownToDTO(tag string, remaining time.Duration) CooldownDTO {
	if remaining < 0 {
		remaining = 0
	}
	return CooldownDTO{
		Tag:              tag,
		RemainingSeconds: int64(remaining / time.Second),
		Remaining:        utils.FormatWait(remaining),
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
