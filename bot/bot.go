package bot

import (
	"fmt"

	"guildwar/application"
	"guildwar/bot/features/warroom"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token            string
	GuildID          string
	WarChannelID     string
	FactionCacheSize int
	BattleReports    bool
}

// Bot manages the Discord session and the war room
type Bot struct {
	config  Config
	session *discordgo.Session

	warroom   *warroom.Feature
	announcer *warroom.Announcer
}

// New creates a new bot instance, opens the gateway and registers slash commands
func New(config Config, uowFactory application.UnitOfWorkFactory, dispatcher warroom.CommandDispatcher) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	directory, err := warroom.NewFactionDirectory(config.FactionCacheSize, warroom.UnitOfWorkLoader(uowFactory))
	if err != nil {
		return nil, err
	}

	var renderer *warroom.BattleReportRenderer
	if config.BattleReports {
		renderer = warroom.NewBattleReportRenderer()
	}

	bot := &Bot{
		config:    config,
		session:   dg,
		warroom:   warroom.NewFeature(dispatcher),
		announcer: warroom.NewAnnouncer(dg, config.WarChannelID, directory, renderer),
	}

	dg.AddHandler(bot.handleCommands)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	log.WithField("channel", config.WarChannelID).Info("War room bot connected")
	return bot, nil
}

// Announcer returns the handler that posts domain events to the war channel
func (b *Bot) Announcer() *warroom.Announcer {
	return b.announcer
}

// Close gracefully shuts down the bot
func (b *Bot) Close() error {
	return b.session.Close()
}

// handleCommands routes slash commands to the war room
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "raid", "diplomacy", "bounty", "shield", "cooldown", "leaderboard":
		b.warroom.HandleCommand(s, i)
	default:
		log.Warnf("Unknown command: %s", i.ApplicationCommandData().Name)
	}
}
