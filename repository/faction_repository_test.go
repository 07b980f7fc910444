package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"guildwar/domain/entities"
	"guildwar/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactionRepository_ConcurrentDebits(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewFactionRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("ATK", 1, 5, 1000))

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan entities.BalanceWrite, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			write, err := repo.DebitTreasury(ctx, "ATK", 300)
			assert.NoError(t, err)
			results <- write
		}()
	}
	wg.Wait()
	close(results)

	applied := 0
	for write := range results {
		if write.Applied() {
			applied++
			assert.Equal(t, write.Before-300, write.After)
		}
	}
	assert.Equal(t, 3, applied)
	assert.Equal(t, int64(100), testutil.Treasury(t, testDB.DB, "ATK"))
}

func TestFactionRepository_BalanceWrites(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewFactionRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DEF", 2, 5, 500))

	t.Run("debit of the exact treasury empties it", func(t *testing.T) {
		write, err := repo.DebitTreasury(ctx, "DEF", 500)
		require.NoError(t, err)
		assert.True(t, write.Applied())
		assert.Equal(t, int64(500), write.Before)
		assert.Equal(t, int64(0), write.After)
	})

	t.Run("overdraw is refused", func(t *testing.T) {
		write, err := repo.DebitTreasury(ctx, "DEF", 1)
		require.NoError(t, err)
		assert.False(t, write.Applied())
	})

	t.Run("credit reports before and after", func(t *testing.T) {
		write, err := repo.CreditTreasury(ctx, "DEF", 250)
		require.NoError(t, err)
		assert.True(t, write.Applied())
		assert.Equal(t, int64(0), write.Before)
		assert.Equal(t, int64(250), write.After)
	})

	t.Run("credit to a missing faction", func(t *testing.T) {
		write, err := repo.CreditTreasury(ctx, "ZZZ", 250)
		require.NoError(t, err)
		assert.False(t, write.Applied())
	})

	t.Run("non-positive amounts are programming errors", func(t *testing.T) {
		_, err := repo.DebitTreasury(ctx, "DEF", 0)
		assert.Error(t, err)
	})
}

func TestFactionRepository_Leaderboard(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewFactionRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("AAA", 1, 3, 0))
	testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("BBB", 2, 3, 0))

	require.NoError(t, repo.ApplyLeaderboard(ctx, "BBB", entities.LeaderboardDelta{RaidsWon: 2, TotalLooted: 900}))
	require.NoError(t, repo.ApplyLeaderboard(ctx, "AAA", entities.LeaderboardDelta{RaidsWon: 2, TotalLooted: 100, FactionsDestroyed: 1}))
	require.NoError(t, repo.ApplyLeaderboard(ctx, "AAA", entities.LeaderboardDelta{}))

	factions, err := repo.ListLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, factions, 2)
	assert.Equal(t, "BBB", factions[0].Tag)
	assert.Equal(t, 1, factions[1].FactionsDestroyed)
}

func TestFactionRepository_DeleteCascades(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	factionRepo := NewFactionRepository(testDB.DB)
	raidRepo := NewRaidRepository(testDB.DB)
	relRepo := NewRelationshipRepository(testDB.DB)
	bountyRepo := NewBountyRepository(testDB.DB)
	ctx := context.Background()

	attacker := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("ATK", 1, 5, 1000))
	defender := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DEF", 2, 5, 50))
	testutil.SeedMember(t, testDB.DB, 20, "DEF", 700)

	raid := testutil.CreateTestRaid(attacker, defender, 1)
	require.NoError(t, raidRepo.Create(ctx, raid))
	require.NoError(t, relRepo.Upsert(ctx, &entities.Relationship{TagA: "DEF", TagB: "ATK", Status: entities.RelationshipEnemy, InitiatorTag: "ATK"}))
	claimed := &entities.Bounty{TargetTag: "DEF", PlacerTag: "ATK", Amount: 500}
	_, err := bountyRepo.Create(ctx, claimed)
	require.NoError(t, err)
	_, err = bountyRepo.Claim(ctx, claimed.ID, "ATK", time.Now().UTC())
	require.NoError(t, err)
	_, err = bountyRepo.Create(ctx, &entities.Bounty{TargetTag: "DEF", PlacerTag: "ATK", Amount: 300})
	require.NoError(t, err)

	require.NoError(t, bountyRepo.DeleteActive(ctx, "DEF"))
	require.NoError(t, factionRepo.Delete(ctx, "DEF"))

	gone, err := factionRepo.GetByTag(ctx, "DEF")
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Zero(t, testutil.CountRows(t, testDB.DB, "faction_members", "faction_tag = $1", "DEF"))
	assert.Zero(t, testutil.CountRows(t, testDB.DB, "faction_cooldowns", "faction_tag = $1", "DEF"))
	assert.Zero(t, testutil.CountRows(t, testDB.DB, "relationships", "tag_a = $1", "ATK"))
	assert.Zero(t, testutil.CountRows(t, testDB.DB, "bounties", "target_tag = $1 AND status = 'ACTIVE'", "DEF"))

	// History and the members' own accounts outlive the faction
	history, err := raidRepo.GetByID(ctx, raid.ID)
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, 1, testutil.CountRows(t, testDB.DB, "users", "discord_id = $1", int64(20)))
	assert.Equal(t, 1, testutil.CountRows(t, testDB.DB, "bounties", "target_tag = 'DEF' AND claimant_tag = $1", "ATK"))

	assert.Error(t, factionRepo.Delete(ctx, "DEF"))
}

func TestFactionRepository_CreateAddsCooldownRow(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	factionRepo := NewFactionRepository(testDB.DB)
	memberRepo := NewMemberRepository(testDB.DB)
	ctx := context.Background()

	_, err := memberRepo.EnsureUser(ctx, 9, "founder")
	require.NoError(t, err)

	faction := &entities.Faction{Tag: "NEW", Name: "Newcomers", Tier: 1, Attitude: entities.AttitudeDefensive, OwnerDiscordID: 9}
	require.NoError(t, factionRepo.Create(ctx, faction))

	assert.WithinDuration(t, time.Now(), faction.CreatedAt, time.Minute)
	assert.True(t, faction.IsImmune(time.Now()))
	assert.Equal(t, 1, testutil.CountRows(t, testDB.DB, "faction_cooldowns", "faction_tag = $1", "NEW"))
}
