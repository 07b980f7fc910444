package warroom

import (
	"fmt"
	"strings"

	"guildwar/bot/common"
	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/utils"

	"github.com/bwmarrin/discordgo"
)

// labeler renders a faction tag for display
type labeler func(tag string) string

var phaseTitles = map[entities.RaidPhase]string{
	entities.RaidPhaseNarratingApproach: "🌫️ The warband approaches",
	entities.RaidPhaseNarratingStance:   "🛡️ The defenders take their stance",
	entities.RaidPhaseNarratingAssault:  "⚔️ The assault begins",
}

var phaseDescriptions = map[entities.RaidPhase]string{
	entities.RaidPhaseNarratingApproach: "Banners of %s are sighted on the roads toward %s.",
	entities.RaidPhaseNarratingStance:   "%s marches on. The walls of %s bristle with spears.",
	entities.RaidPhaseNarratingAssault:  "%s hurls itself at the gates of %s.",
}

func buildRaidDeclaredEmbed(e *events.RaidDeclaredEvent, label labeler) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🚩 Raid #%d declared", e.RaidID),
		Description: fmt.Sprintf("%s marches against %s.\nWar chest committed: **%s**",
			label(e.AttackerTag), label(e.DefenderTag), utils.FormatCrowns(e.RaidCost)),
		Color: common.ColorWarning,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Recruitment closes",
				Value:  common.DiscordTimestamp(e.WindowClosesAt, "R"),
				Inline: true,
			},
			{
				Name:   "Declared by",
				Value:  fmt.Sprintf("<@%d>", e.DeclaredBy),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Join with /raid join raid:%d", e.RaidID),
		},
	}
}

func buildRosterEmbed(e *events.RaidRosterChangedEvent, label labeler) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:   fmt.Sprintf("Attackers (%d)", len(e.Attackers)),
			Value:  rosterLines(e.Attackers),
			Inline: true,
		},
		{
			Name:   fmt.Sprintf("Defenders (%d)", len(e.Defenders)),
			Value:  rosterLines(e.Defenders),
			Inline: true,
		},
	}
	if e.WagerPool > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Wager pool",
			Value: utils.FormatCrowns(e.WagerPool),
		})
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📜 Raid #%d roster", e.RaidID),
		Description: fmt.Sprintf("%s joins the %s. Recruitment closes %s",
			label(e.JoinedTag), e.JoinedSide, common.DiscordTimestamp(e.WindowClosesAt, "R")),
		Color:  common.ColorInfo,
		Fields: fields,
	}
}

func rosterLines(entries []events.RosterEntry) string {
	if len(entries) == 0 {
		return "_nobody_"
	}
	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "**[%s]** T%d %s", entry.FactionTag, entry.Tier, entry.Attitude)
		if entry.FormalAlly {
			b.WriteString(" 🤝")
		}
		if entry.WagerAmount > 0 {
			fmt.Fprintf(&b, " (wager %s)", utils.FormatCrowns(entry.WagerAmount))
		}
		b.WriteString("\n")
	}
	return common.Truncate(b.String(), common.MaxFieldValueRunes)
}

// buildPhaseEmbed returns nil for phases that are not narrated
func buildPhaseEmbed(e *events.RaidPhaseChangedEvent, label labeler) *discordgo.MessageEmbed {
	title, ok := phaseTitles[e.NewPhase]
	if !ok {
		return nil
	}
	description := fmt.Sprintf(phaseDescriptions[e.NewPhase], label(e.AttackerTag), label(e.DefenderTag))
	if e.NextPhaseAt != nil {
		description += fmt.Sprintf("\n\nNext report %s", common.DiscordTimestamp(*e.NextPhaseAt, "R"))
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s · Raid #%d", title, e.RaidID),
		Description: description,
		Color:       common.ColorPrimary,
	}
}

func buildSettledEmbed(summary *entities.SettlementSummary, label labeler) *discordgo.MessageEmbed {
	raid := summary.Raid
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🏁 Raid #%d · %s vs %s", raid.ID, raid.AttackerTag, raid.DefenderTag),
	}

	var fields []*discordgo.MessageEmbedField
	switch {
	case summary.Forfeit && summary.AttackerWon():
		embed.Color = common.ColorSuccess
		embed.Description = fmt.Sprintf("Nobody stood for %s. %s walks through open gates.",
			label(raid.DefenderTag), label(raid.AttackerTag))
	case summary.Forfeit:
		embed.Color = common.ColorMuted
		embed.Description = fmt.Sprintf("The warband of %s never assembled. %s keeps **%s** in compensation.",
			label(raid.AttackerTag), label(raid.DefenderTag), utils.FormatCrowns(summary.DefenderCompensation))
	case summary.AttackerWon():
		embed.Color = common.ColorSuccess
		embed.Description = fmt.Sprintf("**%s breaks the walls of %s!**", label(raid.AttackerTag), label(raid.DefenderTag))
	default:
		embed.Color = common.ColorDanger
		embed.Description = fmt.Sprintf("**%s holds against %s.**", label(raid.DefenderTag), label(raid.AttackerTag))
	}

	if battle := summary.Battle; battle != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Battle",
			Value: fmt.Sprintf("Roll **%d** · Power **%d** vs Resistance **%d**",
				battle.Roll, battle.AttackerPower, battle.DefenseResistance),
		})
		if battle.Cataclysm {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:  "☄️ Cataclysm",
				Value: fmt.Sprintf("The assault collapsed (%d%% chance)", battle.CataclysmChance),
			})
		}
		if len(battle.Lines) > 0 {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:  "Modifiers",
				Value: modifierLines(battle.Lines),
			})
		}
	}

	if loot := summary.Loot; loot != nil {
		value := fmt.Sprintf("Vault: %s (%d%%)\nMembers: %s from %d\nEscape losses: %s (%d%%)\n**Net: %s**",
			utils.FormatCrowns(loot.VaultLoot), loot.VaultPercent,
			utils.FormatCrowns(loot.MemberLoot), loot.MembersRobbed,
			utils.FormatCrowns(loot.EscapeLoss), loot.EscapeLossPercent,
			utils.FormatCrowns(loot.Net))
		if loot.Vulnerable {
			value = "⚠️ Vault was vulnerable\n" + value
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Loot", Value: value})
	}

	if summary.BountyClaimed > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Bounty claimed",
			Value:  utils.FormatCrowns(summary.BountyClaimed),
			Inline: true,
		})
	}

	if wager := summary.Wager; wager != nil && wager.Pool > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Wagers",
			Value:  wagerLine(wager),
			Inline: true,
		})
	}

	if summary.DefenderDestroyed {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "💀 Destroyed",
			Value: fmt.Sprintf("%s has fallen and is no more.", label(raid.DefenderTag)),
		})
	}

	if len(summary.Notes) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Notes",
			Value: common.Truncate(strings.Join(summary.Notes, "\n"), common.MaxFieldValueRunes),
		})
	}

	if len(fields) > common.MaxEmbedFields {
		fields = fields[:common.MaxEmbedFields]
	}
	embed.Fields = fields
	return embed
}

func modifierLines(lines []entities.ModifierLine) string {
	var b strings.Builder
	for _, line := range lines {
		marker := "🛡️"
		if line.Side == entities.RaidSideAttacker {
			marker = "⚔️"
		}
		fmt.Fprintf(&b, "%s %s `%s`\n", marker, line.Source, utils.FormatSigned(line.Value))
	}
	return common.Truncate(b.String(), common.MaxFieldValueRunes)
}

func wagerLine(wager *entities.WagerPayout) string {
	if wager.LostToChaos {
		return fmt.Sprintf("Pool of %s lost to chaos", utils.FormatCrowns(wager.Pool))
	}
	if len(wager.Paid) == 0 {
		return fmt.Sprintf("Pool of %s forfeited", utils.FormatCrowns(wager.Pool))
	}
	line := fmt.Sprintf("%s each to %s", utils.FormatCrowns(wager.PerWinner), strings.Join(wager.Paid, ", "))
	if len(wager.Failed) > 0 {
		line += fmt.Sprintf("\nUnpaid: %s", strings.Join(wager.Failed, ", "))
	}
	return line
}

func buildAbortedEmbed(e *events.RaidAbortedEvent, label labeler) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🌀 Raid #%d abandoned", e.RaidID),
		Description: fmt.Sprintf("The raid of %s on %s ended without a victor.\n%s",
			label(e.AttackerTag), label(e.DefenderTag), e.Reason),
		Color: common.ColorMuted,
	}
}

func buildFactionDestroyedEmbed(e *events.FactionDestroyedEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("💀 %s [%s] has fallen", e.FactionName, e.FactionTag),
		Description: fmt.Sprintf("Its vault emptied by [%s] in raid #%d. %d members are free to find a new banner.",
			e.DestroyedBy, e.RaidID, e.MembersFreed),
		Color: common.ColorDanger,
	}
}

func buildWarDispatchEmbed(e *events.WarDispatchEvent, label labeler) *discordgo.MessageEmbed {
	relation := "ally"
	if e.Relation == entities.RelationshipEnemy {
		relation = "enemy"
	}

	var description string
	switch e.Stage {
	case events.DispatchStageSettled:
		won := (e.Outcome == entities.RaidOutcomeSuccess) == (e.SubjectSide == entities.RaidSideAttacker)
		verdict := "was defeated"
		if won {
			verdict = "was victorious"
		}
		description = fmt.Sprintf("Your %s %s %s in raid #%d (%s vs %s).",
			relation, label(e.SubjectTag), verdict, e.RaidID, e.AttackerTag, e.DefenderTag)
	default:
		description = fmt.Sprintf("Your %s %s is at war as %s in raid #%d (%s vs %s).",
			relation, label(e.SubjectTag), e.SubjectSide, e.RaidID, e.AttackerTag, e.DefenderTag)
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📨 Dispatch for [%s]", e.RecipientTag),
		Description: description,
		Color:       common.ColorInfo,
	}
}

func buildDiplomacyEmbed(e *events.DiplomacyChangedEvent, label labeler) *discordgo.MessageEmbed {
	actor, target := label(e.ActorTag), label(e.TargetTag)
	embed := &discordgo.MessageEmbed{Color: common.ColorInfo}

	switch e.Action {
	case events.DiplomacyActionEnemyDeclared:
		embed.Title = "😠 Enemy declared"
		embed.Description = fmt.Sprintf("%s names %s a sworn enemy.", actor, target)
		embed.Color = common.ColorDanger
	case events.DiplomacyActionEnemyWithdrawn:
		embed.Title = "🕊️ Enmity withdrawn"
		embed.Description = fmt.Sprintf("%s no longer counts %s an enemy.", actor, target)
	case events.DiplomacyActionProposed:
		embed.Title = fmt.Sprintf("✉️ %s proposed", capitalize(string(e.Status)))
		embed.Description = fmt.Sprintf("%s offers %s to %s.", actor, e.Status, target)
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Accept with /diplomacy accept proposal:%d", e.ProposalID),
		}
	case events.DiplomacyActionAccepted:
		embed.Title = fmt.Sprintf("🤝 %s sealed", capitalize(string(e.Status)))
		embed.Description = fmt.Sprintf("%s and %s are now in %s.", actor, target, e.Status)
		embed.Color = common.ColorSuccess
	case events.DiplomacyActionDeclined:
		embed.Title = "✋ Proposal declined"
		embed.Description = fmt.Sprintf("%s turns down the offer from %s.", actor, target)
		embed.Color = common.ColorMuted
	case events.DiplomacyActionAllianceBroken:
		embed.Title = "💔 Alliance broken"
		embed.Description = fmt.Sprintf("%s breaks its alliance with %s.", actor, target)
		embed.Color = common.ColorWarning
	default:
		embed.Title = "Diplomacy"
		embed.Description = fmt.Sprintf("%s and %s: %s", actor, target, e.Action)
	}

	if e.ExpiresAt != nil {
		embed.Description += fmt.Sprintf("\nExpires %s", common.DiscordTimestamp(*e.ExpiresAt, "R"))
	}
	return embed
}

func buildBountyEmbed(e *events.BountyPlacedEvent, label labeler) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "💰 Bounty posted",
		Description: fmt.Sprintf("%s offers **%s** to whoever successfully raids %s.",
			label(e.PlacerTag), utils.FormatCrowns(e.Amount), label(e.TargetTag)),
		Color: common.ColorWarning,
	}
}

func buildShieldEmbed(e *events.ShieldPurchasedEvent, label labeler) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🛡️ Shield raised",
		Description: fmt.Sprintf("%s paid %s for %dh of protection. It holds until %s.",
			label(e.FactionTag), utils.FormatCrowns(e.Cost), e.Hours, common.DiscordTimestamp(e.ExpiresAt, "f")),
		Color: common.ColorInfo,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
