package warroom

import (
	"bytes"
	"context"
	"fmt"

	"guildwar/domain/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// MessageSender posts messages to a channel; *discordgo.Session satisfies it
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer turns domain events into war room posts
type Announcer struct {
	sender    MessageSender
	channelID string
	directory *FactionDirectory
	renderer  *BattleReportRenderer
}

// NewAnnouncer creates an announcer posting to channelID. A nil renderer disables battle report images.
func NewAnnouncer(sender MessageSender, channelID string, directory *FactionDirectory, renderer *BattleReportRenderer) *Announcer {
	return &Announcer{
		sender:    sender,
		channelID: channelID,
		directory: directory,
		renderer:  renderer,
	}
}

// Handle posts the announcement for one event
func (a *Announcer) Handle(ctx context.Context, event events.Event) error {
	label := a.labeler(ctx)

	var message *discordgo.MessageSend
	switch e := event.(type) {
	case *events.RaidDeclaredEvent:
		message = embedMessage(buildRaidDeclaredEmbed(e, label))
	case events.RaidDeclaredEvent:
		message = embedMessage(buildRaidDeclaredEmbed(&e, label))
	case *events.RaidRosterChangedEvent:
		message = embedMessage(buildRosterEmbed(e, label))
	case events.RaidRosterChangedEvent:
		message = embedMessage(buildRosterEmbed(&e, label))
	case *events.RaidPhaseChangedEvent:
		message = embedMessage(buildPhaseEmbed(e, label))
	case events.RaidPhaseChangedEvent:
		message = embedMessage(buildPhaseEmbed(&e, label))
	case *events.RaidSettledEvent:
		message = a.settledMessage(e, label)
	case events.RaidSettledEvent:
		message = a.settledMessage(&e, label)
	case *events.RaidAbortedEvent:
		message = embedMessage(buildAbortedEmbed(e, label))
	case events.RaidAbortedEvent:
		message = embedMessage(buildAbortedEmbed(&e, label))
	case *events.FactionDestroyedEvent:
		a.directory.Forget(e.FactionTag)
		message = embedMessage(buildFactionDestroyedEmbed(e))
	case events.FactionDestroyedEvent:
		a.directory.Forget(e.FactionTag)
		message = embedMessage(buildFactionDestroyedEmbed(&e))
	case *events.WarDispatchEvent:
		message = embedMessage(buildWarDispatchEmbed(e, label))
	case events.WarDispatchEvent:
		message = embedMessage(buildWarDispatchEmbed(&e, label))
	case *events.DiplomacyChangedEvent:
		message = embedMessage(buildDiplomacyEmbed(e, label))
	case events.DiplomacyChangedEvent:
		message = embedMessage(buildDiplomacyEmbed(&e, label))
	case *events.BountyPlacedEvent:
		message = embedMessage(buildBountyEmbed(e, label))
	case events.BountyPlacedEvent:
		message = embedMessage(buildBountyEmbed(&e, label))
	case *events.ShieldPurchasedEvent:
		message = embedMessage(buildShieldEmbed(e, label))
	case events.ShieldPurchasedEvent:
		message = embedMessage(buildShieldEmbed(&e, label))
	default:
		// Treasury movements and anything unknown are not announced
		return nil
	}

	if message == nil {
		return nil
	}

	if _, err := a.sender.ChannelMessageSendComplex(a.channelID, message); err != nil {
		return fmt.Errorf("failed to post %s announcement: %w", event.Type(), err)
	}
	return nil
}

func (a *Announcer) labeler(ctx context.Context) labeler {
	return func(tag string) string {
		return a.directory.Label(ctx, tag)
	}
}

func (a *Announcer) settledMessage(e *events.RaidSettledEvent, label labeler) *discordgo.MessageSend {
	if e.Summary == nil || e.Summary.Raid == nil {
		log.Warn("Received raid settlement without a summary")
		return nil
	}

	message := embedMessage(buildSettledEmbed(e.Summary, label))
	if a.renderer == nil || e.Summary.Battle == nil {
		return message
	}

	png, err := a.renderer.Render(e.Summary)
	if err != nil {
		log.WithError(err).WithField("raid_id", e.Summary.Raid.ID).Warn("Failed to render battle report")
		return message
	}

	filename := fmt.Sprintf("raid-%d.png", e.Summary.Raid.ID)
	message.Files = []*discordgo.File{{
		Name:        filename,
		ContentType: "image/png",
		Reader:      bytes.NewReader(png),
	}}
	message.Embeds[0].Image = &discordgo.MessageEmbedImage{URL: "attachment://" + filename}
	return message
}

func embedMessage(embed *discordgo.MessageEmbed) *discordgo.MessageSend {
	if embed == nil {
		return nil
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}
