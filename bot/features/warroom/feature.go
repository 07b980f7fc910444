package warroom

import (
	"context"
	"encoding/json"
	"strconv"

	"guildwar/application"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// CommandDispatcher runs an engine command and returns its JSON reply
type CommandDispatcher interface {
	Handle(ctx context.Context, subject string, data []byte) []byte
}

// Feature serves the war room slash commands
type Feature struct {
	dispatcher CommandDispatcher
}

// NewFeature creates the war room feature
func NewFeature(dispatcher CommandDispatcher) *Feature {
	return &Feature{dispatcher: dispatcher}
}

// HandleCommand answers a war room slash command with an ephemeral reply
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := i.User
	if i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	requesterID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", user.ID, err)
		respond(s, i, "❌ Unable to process request. Please try again.")
		return
	}

	data := i.ApplicationCommandData()
	content := f.Dispatch(context.Background(), data.Name, data.Options, requesterID)
	respond(s, i, content)
}

// Dispatch runs one slash command and returns the reply text
func (f *Feature) Dispatch(ctx context.Context, name string, opts []*discordgo.ApplicationCommandInteractionDataOption, requesterID int64) string {
	sub, leaves := flattenOptions(opts)

	request, err := buildRequest(name, sub, leaves, requesterID)
	if err != nil {
		log.WithError(err).Warn("Unsupported war room command")
		return "❌ Unknown command."
	}

	payload, err := json.Marshal(request.payload)
	if err != nil {
		log.WithError(err).Error("Failed to encode command payload")
		return "❌ Unable to process request. Please try again."
	}

	log.WithFields(log.Fields{
		"command":     request.command,
		"requesterID": requesterID,
	}).Debug("Dispatching war room command")

	body := f.dispatcher.Handle(ctx, application.CommandSubjectPrefix+request.command, payload)
	return formatReply(request.command, body)
}

// flattenOptions returns the subcommand name, if any, and its leaf options
func flattenOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, options) {
	leaves := options{}
	sub := ""
	for _, opt := range opts {
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			sub = opt.Name
			for _, inner := range opt.Options {
				leaves[inner.Name] = inner
			}
			continue
		}
		leaves[opt.Name] = opt
	}
	return sub, leaves
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error responding to war room command: %v", err)
	}
}
