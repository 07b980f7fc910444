package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func targetOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "target",
		Description: description,
		Required:    true,
		MinLength:   intPtr(2),
		MaxLength:   5,
	}
}

func factionOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "faction",
		Description: "Faction tag",
		Required:    true,
	}
}

func raidOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "raid",
		Description: "Raid number",
		Required:    true,
	}
}

func proposalOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "proposal",
		Description: "Proposal number",
		Required:    true,
	}
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

// slashCommands returns every command the war room serves
func slashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "raid",
			Description: "Plan, declare and join raids",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "preview",
					Description: "See what a raid would cost",
					Options:     []*discordgo.ApplicationCommandOption{targetOption("Faction to raid")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "declare",
					Description: "Declare a raid and open recruitment",
					Options:     []*discordgo.ApplicationCommandOption{targetOption("Faction to raid")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Commit your faction to a side of an open raid",
					Options: []*discordgo.ApplicationCommandOption{
						raidOption(),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "side",
							Description: "Side to fight for",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "Attacker", Value: "attacker"},
								{Name: "Defender", Value: "defender"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "roster",
					Description: "Show who has joined a raid",
					Options:     []*discordgo.ApplicationCommandOption{raidOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "history",
					Description: "Recent raids involving a faction",
					Options:     []*discordgo.ApplicationCommandOption{factionOption()},
				},
			},
		},
		{
			Name:        "diplomacy",
			Description: "Manage alliances, truces and enemies",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "enemy",
					Description: "Declare a sworn enemy",
					Options:     []*discordgo.ApplicationCommandOption{targetOption("Faction to declare enemy")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "withdraw",
					Description: "Withdraw an enemy declaration",
					Options:     []*discordgo.ApplicationCommandOption{targetOption("Enemy faction")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "offer",
					Description: "Offer an alliance or truce",
					Options: []*discordgo.ApplicationCommandOption{
						targetOption("Faction to offer to"),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "kind",
							Description: "What to offer",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "Alliance", Value: "alliance"},
								{Name: "Truce", Value: "truce"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "hours",
							Description: "Truce length in hours",
							MinValue:    floatPtr(1),
							MaxValue:    168,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "accept",
					Description: "Accept a proposal",
					Options:     []*discordgo.ApplicationCommandOption{proposalOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "decline",
					Description: "Decline a proposal",
					Options:     []*discordgo.ApplicationCommandOption{proposalOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "break",
					Description: "Break an alliance",
					Options:     []*discordgo.ApplicationCommandOption{targetOption("Allied faction")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List a faction's relationships",
					Options:     []*discordgo.ApplicationCommandOption{factionOption()},
				},
			},
		},
		{
			Name:        "bounty",
			Description: "Put a price on a faction's vault",
			Options: []*discordgo.ApplicationCommandOption{
				targetOption("Faction to place the bounty on"),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Crowns from your treasury",
					Required:    true,
					MinValue:    floatPtr(1),
				},
			},
		},
		{
			Name:        "shield",
			Description: "Buy hours of raid immunity",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "hours",
					Description: "Hours of protection",
					Required:    true,
					MinValue:    floatPtr(1),
				},
			},
		},
		{
			Name:        "cooldown",
			Description: "How long until a faction may raid again",
			Options:     []*discordgo.ApplicationCommandOption{factionOption()},
		},
		{
			Name:        "leaderboard",
			Description: "Top factions by raid record",
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range slashCommands() {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd); err != nil {
			return fmt.Errorf("cannot create command %s: %w", cmd.Name, err)
		}
	}
	return nil
}
