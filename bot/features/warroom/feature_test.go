package warroom

import (
	"context"
	"encoding/json"
	"testing"

	"guildwar/application/dto"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	subject string
	payload []byte
	reply   dto.CommandResponse
}

func (d *recordingDispatcher) Handle(ctx context.Context, subject string, data []byte) []byte {
	d.subject = subject
	d.payload = data
	body, _ := json.Marshal(d.reply)
	return body
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func intOpt(name string, value int64) *discordgo.ApplicationCommandInteractionDataOption {
	// Discord delivers numbers as JSON floats
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func subcommand(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) []*discordgo.ApplicationCommandInteractionDataOption {
	return []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts},
	}
}

func TestFeature_DispatchBuildsPayload(t *testing.T) {
	tests := []struct {
		name            string
		command         string
		opts            []*discordgo.ApplicationCommandInteractionDataOption
		expectedSubject string
		expectedPayload string
	}{
		{
			name:            "declare",
			command:         "raid",
			opts:            subcommand("declare", stringOpt("target", "def")),
			expectedSubject: "guildwar.cmd.raid.declare",
			expectedPayload: `{"requester_id":42,"target_tag":"def"}`,
		},
		{
			name:            "join",
			command:         "raid",
			opts:            subcommand("join", intOpt("raid", 7), stringOpt("side", "defender")),
			expectedSubject: "guildwar.cmd.raid.join",
			expectedPayload: `{"requester_id":42,"raid_id":7,"side":"defender"}`,
		},
		{
			name:            "truce offer",
			command:         "diplomacy",
			opts:            subcommand("offer", stringOpt("target", "ALY"), stringOpt("kind", "truce"), intOpt("hours", 12)),
			expectedSubject: "guildwar.cmd.diplomacy.offer",
			expectedPayload: `{"requester_id":42,"target_tag":"ALY","kind":"truce","truce_hours":12}`,
		},
		{
			name:            "shield",
			command:         "shield",
			opts:            []*discordgo.ApplicationCommandInteractionDataOption{intOpt("hours", 6)},
			expectedSubject: "guildwar.cmd.shield.purchase",
			expectedPayload: `{"requester_id":42,"hours":6}`,
		},
		{
			name:            "leaderboard",
			command:         "leaderboard",
			expectedSubject: "guildwar.cmd.leaderboard",
			expectedPayload: `{"limit":10}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &recordingDispatcher{reply: dto.CommandResponse{OK: true}}
			feature := NewFeature(dispatcher)

			feature.Dispatch(context.Background(), tt.command, tt.opts, 42)

			assert.Equal(t, tt.expectedSubject, dispatcher.subject)
			assert.JSONEq(t, tt.expectedPayload, string(dispatcher.payload))
		})
	}
}

func TestFeature_DispatchUnknownCommand(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	feature := NewFeature(dispatcher)

	reply := feature.Dispatch(context.Background(), "raid", subcommand("surrender"), 42)

	assert.Equal(t, "❌ Unknown command.", reply)
	assert.Empty(t, dispatcher.subject)
}

func TestFormatReply(t *testing.T) {
	encode := func(resp dto.CommandResponse) []byte {
		body, err := json.Marshal(resp)
		require.NoError(t, err)
		return body
	}

	tests := []struct {
		name     string
		command  string
		body     []byte
		expected string
	}{
		{
			name:     "rejection",
			command:  dto.CommandRaidDeclare,
			body:     encode(dto.CommandResponse{Rejection: &dto.RejectionDTO{Reason: "shielded", Detail: "[DEF] is shielded for 3h"}}),
			expected: "❌ [DEF] is shielded for 3h",
		},
		{
			name:     "internal error",
			command:  dto.CommandRaidDeclare,
			body:     encode(dto.CommandResponse{Error: "internal error, please try again later"}),
			expected: "❌ internal error, please try again later",
		},
		{
			name:     "garbage",
			command:  dto.CommandRaidDeclare,
			body:     []byte("not json"),
			expected: "❌ The war council did not answer. Please try again.",
		},
		{
			name:     "cooldown ready",
			command:  dto.CommandCooldownStatus,
			body:     encode(dto.CommandResponse{OK: true, Data: dto.CooldownDTO{Tag: "ATK"}}),
			expected: "**[ATK]** is ready to raid.",
		},
		{
			name:     "cooldown waiting",
			command:  dto.CommandCooldownStatus,
			body:     encode(dto.CommandResponse{OK: true, Data: dto.CooldownDTO{Tag: "ATK", RemainingSeconds: 3600, Remaining: "1h"}}),
			expected: "**[ATK]** may raid again in 1h.",
		},
		{
			name:     "withdraw",
			command:  dto.CommandWithdrawEnemy,
			body:     encode(dto.CommandResponse{OK: true}),
			expected: "✅ Done.",
		},
		{
			name:     "bounty",
			command:  dto.CommandPlaceBounty,
			body:     encode(dto.CommandResponse{OK: true, Data: dto.BountyDTO{ID: 1, TargetTag: "DEF", PlacerTag: "ATK", Amount: 500}}),
			expected: "💰 Bounty of 500 Crowns placed on **[DEF]**.",
		},
		{
			name:     "empty history",
			command:  dto.CommandRaidHistory,
			body:     encode(dto.CommandResponse{OK: true, Data: []dto.RaidDTO{}}),
			expected: "No raids recorded.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatReply(tt.command, tt.body))
		})
	}
}

func TestFormatReply_Roster(t *testing.T) {
	body, err := json.Marshal(dto.CommandResponse{OK: true, Data: dto.RosterDTO{
		Raid:      dto.RaidDTO{ID: 7, AttackerTag: "ATK", DefenderTag: "DEF", Phase: "awaiting_participants", WagerPool: 400},
		Attackers: []dto.RosterLineDTO{{Tag: "ATK", Tier: 3, Attitude: "aggressive"}},
	}})
	require.NoError(t, err)

	reply := formatReply(dto.CommandRaidRoster, body)

	assert.Contains(t, reply, "**Raid #7** [ATK] vs [DEF]")
	assert.Contains(t, reply, "[ATK] T3 aggressive")
	assert.Contains(t, reply, "🛡️ _nobody_")
	assert.Contains(t, reply, "Wager pool: 400 Crowns")
}
