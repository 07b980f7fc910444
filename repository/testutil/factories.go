package testutil

import (
	"context"
	"testing"
	"time"

	"guildwar/database"
	"guildwar/domain/entities"

	"github.com/stretchr/testify/require"
)

// CreateTestFaction returns a neutral faction that left creation immunity a month ago
func CreateTestFaction(tag string, ownerID int64, tier int, treasury int64) *entities.Faction {
	return &entities.Faction{
		Tag:            tag,
		Name:           "The " + tag,
		Tier:           tier,
		Attitude:       entities.AttitudeNeutral,
		OwnerDiscordID: ownerID,
		Treasury:       treasury,
		CreatedAt:      time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
}

// CreateTestRaid returns a pending raid whose recruitment window is still open
func CreateTestRaid(attacker, defender *entities.Faction, declaredBy int64) *entities.RaidRecord {
	now := time.Now().UTC()
	return &entities.RaidRecord{
		AttackerTag:    attacker.Tag,
		DefenderTag:    defender.Tag,
		DeclaredBy:     declaredBy,
		AttackerTier:   attacker.Tier,
		DefenderTier:   defender.Tier,
		RaidCost:       attacker.RaidCost(),
		DeclaredAt:     now,
		WindowClosesAt: now.Add(entities.RecruitmentWindow),
		Phase:          entities.RaidPhaseAwaitingParticipants,
		Outcome:        entities.RaidOutcomePending,
	}
}

// CreateTestParticipant returns a free participant on the given side
func CreateTestParticipant(raidID int64, tag string, side entities.RaidSide, joinedBy int64) *entities.RaidParticipant {
	return &entities.RaidParticipant{
		RaidID:     raidID,
		FactionTag: tag,
		Side:       side,
		JoinedBy:   joinedBy,
	}
}

// SeedFaction inserts an owner user, the faction, and the owner's membership
func SeedFaction(t *testing.T, db *database.DB, faction *entities.Faction) *entities.Faction {
	t.Helper()
	ctx := context.Background()

	_, err := db.Exec(ctx,
		`INSERT INTO users (discord_id, username) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		faction.OwnerDiscordID, "owner-"+faction.Tag)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `
		INSERT INTO factions (tag, name, tier, attitude, owner_discord_id, treasury, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		faction.Tag, faction.Name, faction.Tier, string(faction.Attitude), faction.OwnerDiscordID, faction.Treasury, faction.CreatedAt)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `INSERT INTO faction_cooldowns (faction_tag) VALUES ($1)`, faction.Tag)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO faction_members (discord_id, faction_tag, role) VALUES ($1, $2, 'owner')`,
		faction.OwnerDiscordID, faction.Tag)
	require.NoError(t, err)

	return faction
}

// SeedMember inserts a user with a balance and enrolls them in a faction
func SeedMember(t *testing.T, db *database.DB, discordID int64, tag string, balance int64) {
	t.Helper()
	ctx := context.Background()

	_, err := db.Exec(ctx,
		`INSERT INTO users (discord_id, username, balance) VALUES ($1, $2, $3)`,
		discordID, "member", balance)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO faction_members (discord_id, faction_tag, role) VALUES ($1, $2, 'member')`,
		discordID, tag)
	require.NoError(t, err)
}

// Treasury reads a faction's treasury straight from the table
func Treasury(t *testing.T, db *database.DB, tag string) int64 {
	t.Helper()
	var treasury int64
	require.NoError(t, db.QueryRow(context.Background(), `SELECT treasury FROM factions WHERE tag = $1`, tag).Scan(&treasury))
	return treasury
}

// Balance reads a member's personal balance
func Balance(t *testing.T, db *database.DB, discordID int64) int64 {
	t.Helper()
	var balance int64
	require.NoError(t, db.QueryRow(context.Background(), `SELECT balance FROM users WHERE discord_id = $1`, discordID).Scan(&balance))
	return balance
}

// CountRows counts the rows of a table matching a single-parameter condition
func CountRows(t *testing.T, db *database.DB, table, condition string, arg any) int {
	t.Helper()
	var count int
	query := "SELECT COUNT(*) FROM " + table + " WHERE " + condition
	require.NoError(t, db.QueryRow(context.Background(), query, arg).Scan(&count))
	return count
}
