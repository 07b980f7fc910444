package warroom

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"guildwar/application/dto"
	"guildwar/bot/common"
	"guildwar/domain/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	historyLimit     = 10
	leaderboardLimit = 10
)

// options indexes the leaf options of a slash command by name
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func (o options) str(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) integer(name string) int64 {
	if opt, ok := o[name]; ok {
		return opt.IntValue()
	}
	return 0
}

// commandRequest is a slash command translated into an engine command
type commandRequest struct {
	command string
	payload any
}

// buildRequest maps a slash command and its subcommand onto an engine command
func buildRequest(name, sub string, opts options, requesterID int64) (*commandRequest, error) {
	switch name {
	case "raid":
		switch sub {
		case "preview":
			return &commandRequest{dto.CommandRaidPreview, dto.TargetRequest{RequesterID: requesterID, TargetTag: opts.str("target")}}, nil
		case "declare":
			return &commandRequest{dto.CommandRaidDeclare, dto.TargetRequest{RequesterID: requesterID, TargetTag: opts.str("target")}}, nil
		case "join":
			return &commandRequest{dto.CommandRaidJoin, dto.JoinRaidRequest{RequesterID: requesterID, RaidID: opts.integer("raid"), Side: opts.str("side")}}, nil
		case "roster":
			return &commandRequest{dto.CommandRaidRoster, dto.RaidRequest{RaidID: opts.integer("raid")}}, nil
		case "history":
			return &commandRequest{dto.CommandRaidHistory, dto.HistoryRequest{Tag: opts.str("faction"), Limit: historyLimit}}, nil
		}
	case "diplomacy":
		switch sub {
		case "enemy":
			return &commandRequest{dto.CommandDeclareEnemy, dto.TargetRequest{RequesterID: requesterID, TargetTag: opts.str("target")}}, nil
		case "withdraw":
			return &commandRequest{dto.CommandWithdrawEnemy, dto.TargetRequest{RequesterID: requesterID, TargetTag: opts.str("target")}}, nil
		case "offer":
			return &commandRequest{dto.CommandOfferProposal, dto.OfferRequest{
				RequesterID: requesterID,
				TargetTag:   opts.str("target"),
				Kind:        opts.str("kind"),
				TruceHours:  int(opts.integer("hours")),
			}}, nil
		case "accept":
			return &commandRequest{dto.CommandAcceptProposal, dto.ProposalRequest{RequesterID: requesterID, ProposalID: opts.integer("proposal")}}, nil
		case "decline":
			return &commandRequest{dto.CommandDeclineProposal, dto.ProposalRequest{RequesterID: requesterID, ProposalID: opts.integer("proposal")}}, nil
		case "break":
			return &commandRequest{dto.CommandBreakAlliance, dto.TargetRequest{RequesterID: requesterID, TargetTag: opts.str("target")}}, nil
		case "list":
			return &commandRequest{dto.CommandListRelations, dto.FactionRequest{Tag: opts.str("faction")}}, nil
		}
	case "leaderboard":
		return &commandRequest{dto.CommandLeaderboard, dto.LeaderboardRequest{Limit: leaderboardLimit}}, nil
	case "bounty":
		return &commandRequest{dto.CommandPlaceBounty, dto.BountyRequest{RequesterID: requesterID, TargetTag: opts.str("target"), Amount: opts.integer("amount")}}, nil
	case "shield":
		return &commandRequest{dto.CommandPurchaseShield, dto.ShieldRequest{RequesterID: requesterID, Hours: int(opts.integer("hours"))}}, nil
	case "cooldown":
		return &commandRequest{dto.CommandCooldownStatus, dto.FactionRequest{Tag: opts.str("faction")}}, nil
	}
	return nil, fmt.Errorf("unsupported command %s %s", name, sub)
}

// commandReply mirrors dto.CommandResponse with the data left encoded
type commandReply struct {
	OK        bool              `json:"ok"`
	Data      json.RawMessage   `json:"data,omitempty"`
	Rejection *dto.RejectionDTO `json:"rejection,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// formatReply renders the engine's reply as the ephemeral message shown to the player
func formatReply(command string, body []byte) string {
	var reply commandReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "❌ The war council did not answer. Please try again."
	}
	if reply.Rejection != nil {
		return "❌ " + reply.Rejection.Detail
	}
	if !reply.OK {
		return "❌ " + reply.Error
	}

	var (
		text string
		err  error
	)
	switch command {
	case dto.CommandRaidPreview:
		text, err = formatData(reply.Data, func(p dto.PreviewDTO) string {
			line := fmt.Sprintf("Raiding **[%s]** costs **%s**, leaving %s in your vault. Recruitment lasts %s.",
				p.DefenderTag, utils.FormatCrowns(p.Cost), utils.FormatCrowns(p.TreasuryAfter),
				utils.FormatWait(time.Duration(p.WindowSeconds)*time.Second))
			if p.DefenderBounty > 0 {
				line += fmt.Sprintf("\n💰 A bounty of %s awaits.", utils.FormatCrowns(p.DefenderBounty))
			}
			return line
		})
	case dto.CommandRaidDeclare:
		text, err = formatData(reply.Data, func(r dto.RaidDTO) string {
			return fmt.Sprintf("🚩 Raid #%d on **[%s]** declared. Recruitment closes %s.",
				r.ID, r.DefenderTag, common.DiscordTimestamp(r.WindowClosesAt, "R"))
		})
	case dto.CommandRaidJoin:
		text, err = formatData(reply.Data, func(j dto.JoinDTO) string {
			line := fmt.Sprintf("You joined raid #%d as **%s**.", j.Roster.Raid.ID, j.Side)
			if j.Wagered {
				line += fmt.Sprintf(" Wagered %s.", utils.FormatCrowns(j.WagerAmount))
			}
			return line
		})
	case dto.CommandRaidRoster:
		text, err = formatData(reply.Data, formatRoster)
	case dto.CommandRaidHistory:
		text, err = formatData(reply.Data, formatHistory)
	case dto.CommandLeaderboard:
		text, err = formatData(reply.Data, formatLeaderboard)
	case dto.CommandListRelations:
		text, err = formatData(reply.Data, formatRelations)
	case dto.CommandOfferProposal:
		text, err = formatData(reply.Data, func(p dto.ProposalDTO) string {
			return fmt.Sprintf("✉️ Proposal #%d for %s sent to **[%s]**.", p.ID, p.Kind, p.ToTag)
		})
	case dto.CommandDeclareEnemy, dto.CommandAcceptProposal:
		text, err = formatData(reply.Data, func(r dto.RelationshipDTO) string {
			return fmt.Sprintf("[%s] and [%s] are now in **%s**.", r.TagA, r.TagB, r.Status)
		})
	case dto.CommandPlaceBounty:
		text, err = formatData(reply.Data, func(b dto.BountyDTO) string {
			return fmt.Sprintf("💰 Bounty of %s placed on **[%s]**.", utils.FormatCrowns(b.Amount), b.TargetTag)
		})
	case dto.CommandPurchaseShield:
		text, err = formatData(reply.Data, func(s dto.ShieldDTO) string {
			if s.ExpiresAt == nil {
				return "🛡️ Shield raised."
			}
			return fmt.Sprintf("🛡️ Shield holds until %s.", common.DiscordTimestamp(*s.ExpiresAt, "f"))
		})
	case dto.CommandCooldownStatus:
		text, err = formatData(reply.Data, func(c dto.CooldownDTO) string {
			if c.RemainingSeconds <= 0 {
				return fmt.Sprintf("**[%s]** is ready to raid.", c.Tag)
			}
			return fmt.Sprintf("**[%s]** may raid again in %s.", c.Tag, c.Remaining)
		})
	default:
		text = "✅ Done."
	}
	if err != nil {
		return "❌ The war council sent an unreadable answer."
	}
	return common.Truncate(text, 2000)
}

func formatData[T any](data json.RawMessage, format func(T) string) (string, error) {
	var view T
	if err := json.Unmarshal(data, &view); err != nil {
		return "", err
	}
	return format(view), nil
}

func formatRoster(r dto.RosterDTO) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Raid #%d** [%s] vs [%s] · %s\n", r.Raid.ID, r.Raid.AttackerTag, r.Raid.DefenderTag, r.Raid.Phase)
	b.WriteString("⚔️ ")
	b.WriteString(rosterTags(r.Attackers))
	b.WriteString("\n🛡️ ")
	b.WriteString(rosterTags(r.Defenders))
	if r.Raid.WagerPool > 0 {
		fmt.Fprintf(&b, "\nWager pool: %s", utils.FormatCrowns(r.Raid.WagerPool))
	}
	return b.String()
}

func rosterTags(lines []dto.RosterLineDTO) string {
	if len(lines) == 0 {
		return "_nobody_"
	}
	tags := make([]string, len(lines))
	for i, line := range lines {
		tags[i] = fmt.Sprintf("[%s] T%d %s", line.Tag, line.Tier, line.Attitude)
	}
	return strings.Join(tags, ", ")
}

func formatHistory(raids []dto.RaidDTO) string {
	if len(raids) == 0 {
		return "No raids recorded."
	}
	var b strings.Builder
	for _, r := range raids {
		fmt.Fprintf(&b, "#%d [%s] → [%s] · %s", r.ID, r.AttackerTag, r.DefenderTag, r.Outcome)
		if r.Forfeit {
			b.WriteString(" (forfeit)")
		}
		if r.StolenAmount > 0 {
			fmt.Fprintf(&b, " · %s looted", utils.FormatCrowns(r.StolenAmount))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatLeaderboard(factions []dto.FactionDTO) string {
	if len(factions) == 0 {
		return "No factions yet."
	}
	var b strings.Builder
	for i, f := range factions {
		fmt.Fprintf(&b, "%d. **%s [%s]** T%d · %dW/%dL · %s looted\n",
			i+1, f.Name, f.Tag, f.Tier, f.RaidsWon+f.DefensesWon, f.RaidsLost+f.DefensesLost, utils.FormatCrowns(f.TotalLooted))
	}
	return b.String()
}

func formatRelations(rels []dto.RelationshipDTO) string {
	if len(rels) == 0 {
		return "No standing relationships."
	}
	var b strings.Builder
	for _, r := range rels {
		fmt.Fprintf(&b, "[%s] · [%s] · %s", r.TagA, r.TagB, r.Status)
		if r.ExpiresAt != nil {
			fmt.Fprintf(&b, " until %s", common.DiscordTimestamp(*r.ExpiresAt, "f"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
