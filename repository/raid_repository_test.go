package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"guildwar/domain/entities"
	"guildwar/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaidRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	raidRepo := NewRaidRepository(testDB.DB)
	ctx := context.Background()

	attacker := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("ATK", 1, 5, 5000))
	defender := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DEF", 2, 5, 3000))

	raid := testutil.CreateTestRaid(attacker, defender, 1)
	require.NoError(t, raidRepo.Create(ctx, raid))
	require.NotZero(t, raid.ID)

	t.Run("second pending raid on the same target is refused", func(t *testing.T) {
		duplicate := testutil.CreateTestRaid(attacker, defender, 1)
		assert.Error(t, raidRepo.Create(ctx, duplicate))
	})

	t.Run("wager pool grows while recruiting", func(t *testing.T) {
		result, err := raidRepo.AddToWagerPool(ctx, raid.ID, 300)
		require.NoError(t, err)
		assert.True(t, result.Applied())
	})

	t.Run("phase moves only from the expected phase", func(t *testing.T) {
		result, err := raidRepo.TransitionPhase(ctx, raid.ID, entities.RaidPhaseAwaitingParticipants, entities.RaidPhaseForfeitCheck, nil)
		require.NoError(t, err)
		assert.True(t, result.Applied())

		result, err = raidRepo.TransitionPhase(ctx, raid.ID, entities.RaidPhaseAwaitingParticipants, entities.RaidPhaseForfeitCheck, nil)
		require.NoError(t, err)
		assert.False(t, result.Applied())

		_, err = raidRepo.TransitionPhase(ctx, raid.ID, entities.RaidPhaseForfeitCheck, entities.RaidPhaseNarratingAssault, nil)
		assert.Error(t, err)
	})

	t.Run("pool is closed once recruiting ends", func(t *testing.T) {
		result, err := raidRepo.AddToWagerPool(ctx, raid.ID, 300)
		require.NoError(t, err)
		assert.False(t, result.Applied())
	})

	t.Run("listed among forfeit checks", func(t *testing.T) {
		raids, err := raidRepo.ListInPhases(ctx, entities.RaidPhaseForfeitCheck, entities.RaidPhaseNarratingApproach)
		require.NoError(t, err)
		require.Len(t, raids, 1)
		assert.Equal(t, int64(300), raids[0].WagerPool)
	})

	t.Run("resolves exactly once", func(t *testing.T) {
		resolution := &entities.RaidResolution{
			RaidID:         raid.ID,
			Outcome:        entities.RaidOutcomeSuccess,
			StolenAmount:   1980,
			AttackerAllies: []string{"ALY"},
			ResolvedAt:     time.Now().UTC(),
		}
		result, err := raidRepo.Resolve(ctx, resolution)
		require.NoError(t, err)
		assert.True(t, result.Applied())

		result, err = raidRepo.Resolve(ctx, resolution)
		require.NoError(t, err)
		assert.False(t, result.Applied())

		stored, err := raidRepo.GetByID(ctx, raid.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.RaidPhaseResolved, stored.Phase)
		assert.Equal(t, entities.RaidOutcomeSuccess, stored.Outcome)
		assert.Equal(t, []string{"ALY"}, stored.AttackerAllies)
		assert.Empty(t, stored.DefenderAllies)
		assert.NotNil(t, stored.ResolvedAt)
	})

	t.Run("resolved raid cannot be aborted", func(t *testing.T) {
		result, err := raidRepo.Abort(ctx, raid.ID, time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, result.Applied())
	})

	t.Run("history is newest first from both sides", func(t *testing.T) {
		next := testutil.CreateTestRaid(defender, attacker, 2)
		next.DeclaredAt = next.DeclaredAt.Add(time.Minute)
		require.NoError(t, raidRepo.Create(ctx, next))

		history, err := raidRepo.ListByFaction(ctx, "ATK", 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, next.ID, history[0].ID)

		aborted, err := raidRepo.Abort(ctx, next.ID, time.Now().UTC())
		require.NoError(t, err)
		assert.True(t, aborted.Applied())
	})
}

func TestParticipantRepository_AddIfOpen(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	raidRepo := NewRaidRepository(testDB.DB)
	participantRepo := NewParticipantRepository(testDB.DB)
	ctx := context.Background()

	attacker := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("ATK", 1, 5, 5000))
	defender := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DEF", 2, 8, 3000))
	opportunist := testutil.CreateTestFaction("OPP", 3, 3, 900)
	opportunist.Attitude = entities.AttitudeOpportunist
	testutil.SeedFaction(t, testDB.DB, opportunist)

	raid := testutil.CreateTestRaid(attacker, defender, 1)
	require.NoError(t, raidRepo.Create(ctx, raid))
	now := time.Now().UTC()

	t.Run("primary joins", func(t *testing.T) {
		p := testutil.CreateTestParticipant(raid.ID, "ATK", entities.RaidSideAttacker, 1)
		result, err := participantRepo.AddIfOpen(ctx, p, now)
		require.NoError(t, err)
		assert.True(t, result.Applied())
		assert.NotZero(t, p.ID)
	})

	t.Run("second join of the same faction writes nothing", func(t *testing.T) {
		p := testutil.CreateTestParticipant(raid.ID, "ATK", entities.RaidSideDefender, 1)
		result, err := participantRepo.AddIfOpen(ctx, p, now)
		require.NoError(t, err)
		assert.False(t, result.Applied())
	})

	t.Run("join after the deadline writes nothing", func(t *testing.T) {
		p := testutil.CreateTestParticipant(raid.ID, "DEF", entities.RaidSideDefender, 2)
		result, err := participantRepo.AddIfOpen(ctx, p, raid.WindowClosesAt.Add(time.Second))
		require.NoError(t, err)
		assert.False(t, result.Applied())
	})

	t.Run("details carry tier and attitude", func(t *testing.T) {
		p := testutil.CreateTestParticipant(raid.ID, "OPP", entities.RaidSideDefender, 3)
		p.WagerAmount = 300
		_, err := participantRepo.AddIfOpen(ctx, p, now)
		require.NoError(t, err)

		details, err := participantRepo.ListDetailsByRaid(ctx, raid.ID)
		require.NoError(t, err)
		require.Len(t, details, 2)
		assert.Equal(t, "OPP", details[1].FactionTag)
		assert.Equal(t, 3, details[1].Tier)
		assert.Equal(t, entities.AttitudeOpportunist, details[1].Attitude)
		assert.Equal(t, int64(300), details[1].WagerAmount)

		found, err := participantRepo.Get(ctx, raid.ID, "OPP")
		require.NoError(t, err)
		assert.Equal(t, entities.RaidSideDefender, found.Side)

		missing, err := participantRepo.Get(ctx, raid.ID, "ZZZ")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("purge empties the roster", func(t *testing.T) {
		require.NoError(t, participantRepo.DeleteByRaid(ctx, raid.ID))
		details, err := participantRepo.ListDetailsByRaid(ctx, raid.ID)
		require.NoError(t, err)
		assert.Empty(t, details)
	})
}

func TestParticipantRepository_ConcurrentJoins(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	raidRepo := NewRaidRepository(testDB.DB)
	participantRepo := NewParticipantRepository(testDB.DB)
	ctx := context.Background()

	attacker := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("ATK", 1, 5, 5000))
	defender := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DEF", 2, 8, 3000))
	raid := testutil.CreateTestRaid(attacker, defender, 1)
	require.NoError(t, raidRepo.Create(ctx, raid))

	const distinct = 8
	const duplicates = 6
	tags := make([]string, 0, distinct)
	for i := 0; i < distinct; i++ {
		tag := fmt.Sprintf("A%cA", 'A'+i)
		testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction(tag, int64(100+i), 2, 500))
		tags = append(tags, tag)
	}
	testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DUP", 99, 2, 500))

	now := time.Now().UTC()
	var wg sync.WaitGroup
	type joinResult struct {
		tag     string
		applied bool
	}
	results := make(chan joinResult, distinct+duplicates)
	join := func(tag string, joinedBy int64) {
		defer wg.Done()
		p := testutil.CreateTestParticipant(raid.ID, tag, entities.RaidSideAttacker, joinedBy)
		result, err := participantRepo.AddIfOpen(ctx, p, now)
		assert.NoError(t, err)
		results <- joinResult{tag: tag, applied: result.Applied()}
	}
	for i, tag := range tags {
		wg.Add(1)
		go join(tag, int64(100+i))
	}
	for i := 0; i < duplicates; i++ {
		wg.Add(1)
		go join("DUP", 99)
	}
	wg.Wait()
	close(results)

	landed := map[string]int{}
	for r := range results {
		if r.applied {
			landed[r.tag]++
		}
	}
	for _, tag := range tags {
		assert.Equal(t, 1, landed[tag], "join of %s did not land", tag)
	}
	assert.Equal(t, 1, landed["DUP"])
	assert.Equal(t, distinct+1, testutil.CountRows(t, testDB.DB, "raid_participants", "raid_id = $1", raid.ID))
}

func TestParticipantRepository_ConcurrentStakes(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	raidRepo := NewRaidRepository(testDB.DB)
	factory := NewUnitOfWorkFactory(testDB.DB)
	ctx := context.Background()

	attacker := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("ATK", 1, 5, 5000))
	defender := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DEF", 2, 8, 3000))
	raid := testutil.CreateTestRaid(attacker, defender, 1)
	require.NoError(t, raidRepo.Create(ctx, raid))

	// Five opportunists stake 100..500; OPA also races itself with a second stake
	stakes := map[string]int64{}
	for i := 0; i < 5; i++ {
		tag := fmt.Sprintf("OP%c", 'A'+i)
		faction := testutil.CreateTestFaction(tag, int64(200+i), 3, 2000)
		faction.Attitude = entities.AttitudeOpportunist
		testutil.SeedFaction(t, testDB.DB, faction)
		stakes[tag] = int64(100 * (i + 1))
	}

	// stake joins and adds to the pool in one transaction, like the join handler
	stake := func(tag string, amount int64) (bool, error) {
		uow := factory.CreateWithPublisher(&bufferedPublisher{})
		if err := uow.Begin(ctx); err != nil {
			return false, err
		}
		defer uow.Rollback()

		p := testutil.CreateTestParticipant(raid.ID, tag, entities.RaidSideAttacker, 1)
		p.WagerAmount = amount
		joined, err := uow.ParticipantRepository().AddIfOpen(ctx, p, time.Now().UTC())
		if err != nil || !joined.Applied() {
			return false, err
		}
		pooled, err := uow.RaidRepository().AddToWagerPool(ctx, raid.ID, amount)
		if err != nil || !pooled.Applied() {
			return false, err
		}
		return true, uow.Commit()
	}

	var mu sync.Mutex
	var landed int64
	var wg sync.WaitGroup
	run := func(tag string, amount int64) {
		defer wg.Done()
		ok, err := stake(tag, amount)
		assert.NoError(t, err)
		if ok {
			mu.Lock()
			landed += amount
			mu.Unlock()
		}
	}
	for tag, amount := range stakes {
		wg.Add(1)
		go run(tag, amount)
	}
	wg.Add(1)
	go run("OPA", 900)
	wg.Wait()

	stored, err := raidRepo.GetByID(ctx, raid.ID)
	require.NoError(t, err)
	assert.Equal(t, landed, stored.WagerPool)
	assert.Equal(t, 5, testutil.CountRows(t, testDB.DB, "raid_participants", "raid_id = $1", raid.ID))

	// Whichever OPA stake won, the pool holds the four others plus exactly one of its two
	others := int64(200 + 300 + 400 + 500)
	assert.Contains(t, []int64{others + 100, others + 900}, stored.WagerPool)
}

func TestRaidActionRepository_Claim(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	raidRepo := NewRaidRepository(testDB.DB)
	actionRepo := NewRaidActionRepository(testDB.DB)
	ctx := context.Background()

	attacker := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("ATK", 1, 5, 5000))
	defender := testutil.SeedFaction(t, testDB.DB, testutil.CreateTestFaction("DEF", 2, 5, 3000))
	raid := testutil.CreateTestRaid(attacker, defender, 1)
	require.NoError(t, raidRepo.Create(ctx, raid))

	now := time.Now().UTC()
	due := &entities.ScheduledRaidAction{RaidID: raid.ID, Kind: entities.RaidActionCloseRecruitment, DueAt: now.Add(-time.Second)}
	later := &entities.ScheduledRaidAction{RaidID: raid.ID, Kind: entities.RaidActionAdvancePhase, DueAt: now.Add(time.Hour)}
	require.NoError(t, actionRepo.Schedule(ctx, due))
	require.NoError(t, actionRepo.Schedule(ctx, later))

	next, err := actionRepo.GetNextDueTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.WithinDuration(t, due.DueAt, *next, time.Millisecond)

	actions, err := actionRepo.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, due.ID, actions[0].ID)

	first, err := actionRepo.Complete(ctx, due.ID, now)
	require.NoError(t, err)
	assert.True(t, first.Applied())
	second, err := actionRepo.Complete(ctx, due.ID, now)
	require.NoError(t, err)
	assert.False(t, second.Applied())

	require.NoError(t, actionRepo.CancelForRaid(ctx, raid.ID))
	next, err = actionRepo.GetNextDueTime(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}
