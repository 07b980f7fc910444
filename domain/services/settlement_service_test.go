package services

import (
	"context"
	"testing"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSettlementServiceForTest(mocks *TestMocks, dice *testhelpers.ScriptedDice) *settlementService {
	cooldowns := NewCooldownService(
		mocks.FactionRepo,
		mocks.MemberRepo,
		mocks.CooldownRepo,
		mocks.LedgerRepo,
		mocks.EventPublisher,
	).(*cooldownService)
	cooldowns.now = fixedClock

	svc := NewSettlementService(
		mocks.FactionRepo,
		mocks.MemberRepo,
		mocks.RaidRepo,
		mocks.BountyRepo,
		mocks.LedgerRepo,
		mocks.GrantRepo,
		mocks.RelationshipRepo,
		mocks.Savepointer,
		cooldowns,
		mocks.EventPublisher,
		dice,
	).(*settlementService)
	svc.now = fixedClock
	return svc
}

func defenderMembers(balances ...int64) []*entities.FactionMember {
	members := make([]*entities.FactionMember, 0, len(balances))
	for i, balance := range balances {
		members = append(members, &entities.FactionMember{
			Membership: entities.Membership{
				DiscordID:  int64(500 + i),
				FactionTag: TestDefenderTag,
				Role:       entities.MemberRoleMember,
			},
			Username: "defender",
			Balance:  balance,
		})
	}
	return members
}

// capturePublished records every published event
func capturePublished(mocks *TestMocks) *[]events.Event {
	published := &[]events.Event{}
	mocks.EventPublisher.On("Publish", mock.Anything).Run(func(args mock.Arguments) {
		*published = append(*published, args.Get(0).(events.Event))
	}).Return(nil)
	return published
}

func findEvent[T events.Event](published []events.Event) (T, bool) {
	for _, e := range published {
		if typed, ok := e.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func expectResolved(mocks *TestMocks, outcome entities.RaidOutcome, forfeit bool, stolen int64) {
	mocks.RaidRepo.On("Resolve", mock.Anything, mock.MatchedBy(func(r *entities.RaidResolution) bool {
		return r.RaidID == TestRaidID && r.Outcome == outcome && r.Forfeit == forfeit &&
			r.StolenAmount == stolen && r.ResolvedAt.Equal(testNow)
	})).Return(entities.GuardApplied, nil)
}

func expectAttackerCooldown(mocks *TestMocks) {
	mocks.CooldownRepo.On("SetLastRaid", mock.Anything, TestAttackerTag, testNow).Return(nil)
}

func expectDefenderShield(mocks *TestMocks, shield time.Duration) {
	mocks.CooldownRepo.On("SetShield", mock.Anything, TestDefenderTag, testNow.Add(shield)).Return(nil)
	mocks.CooldownRepo.On("ReleaseRaidLock", mock.Anything, TestDefenderTag).Return(nil)
}

func TestSettlementService_SettleForfeit(t *testing.T) {
	t.Parallel()

	t.Run("empty attacker side compensates the defender", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5)
		roster := entities.NewRaidRoster(raid, []*entities.ParticipantDetail{
			newTestParticipant(TestDefenderTag, entities.RaidSideDefender, 5, entities.AttitudeNeutral),
		})

		helper.ExpectCredit(TestDefenderTag, 500, 3000)
		mocks.MemberRepo.On("ListByFaction", mock.Anything, TestDefenderTag).Return(defenderMembers(100, 200), nil)
		mocks.GrantRepo.On("Grant", mock.Anything, mock.MatchedBy(func(g *entities.TemporaryGrant) bool {
			return g.Kind == entities.GrantSuccessfulDefender && g.ExpiresAt.Equal(testNow.Add(24*time.Hour))
		})).Return(nil).Times(2)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestAttackerTag, entities.LeaderboardDelta{RaidsLost: 1}).Return(nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestDefenderTag, entities.LeaderboardDelta{DefensesWon: 1}).Return(nil)
		mocks.LedgerRepo.On("Record", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
			return e.EntryType == entities.EntryTypeForfeitReward && e.ChangeAmount == 500
		})).Return(nil)
		expectResolved(mocks, entities.RaidOutcomeFailure, true, 0)
		helper.ExpectFaction(newTestFaction(TestAttackerTag, 5, 4000))
		expectAttackerCooldown(mocks)
		expectDefenderShield(mocks, 12*time.Hour)
		helper.ExpectNoThirdParties(TestAttackerTag, TestDefenderTag)
		published := capturePublished(mocks)

		svc := newSettlementServiceForTest(mocks, &testhelpers.ScriptedDice{})
		summary, err := svc.SettleForfeit(context.Background(), roster)

		require.NoError(t, err)
		assert.Equal(t, entities.RaidOutcomeFailure, summary.Outcome)
		assert.True(t, summary.Forfeit)
		assert.Equal(t, int64(500), summary.DefenderCompensation)
		assert.Nil(t, summary.Battle)
		assert.Nil(t, summary.Loot)
		_, settled := findEvent[events.RaidSettledEvent](*published)
		assert.True(t, settled)
		mocks.AssertAllExpectations(t)
	})

	t.Run("empty defender side loots the vault without escape loss", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5)
		roster := entities.NewRaidRoster(raid, []*entities.ParticipantDetail{
			newTestParticipant(TestAttackerTag, entities.RaidSideAttacker, 5, entities.AttitudeNeutral),
		})

		helper.ExpectFaction(newTestFaction(TestDefenderTag, 5, 3000))
		helper.ExpectFaction(newTestFaction(TestAttackerTag, 5, 4000))
		// 15% at tier 5
		helper.ExpectDebit(TestDefenderTag, 450, 3000)
		helper.ExpectCredit(TestAttackerTag, 450, 4000)
		mocks.BountyRepo.On("GetActive", mock.Anything, TestDefenderTag).Return(nil, nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestDefenderTag, entities.LeaderboardDelta{DefensesLost: 1}).Return(nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestAttackerTag, entities.LeaderboardDelta{RaidsWon: 1, TotalLooted: 450}).Return(nil)
		helper.ExpectLedgerRecords()
		expectResolved(mocks, entities.RaidOutcomeSuccess, true, 450)
		expectAttackerCooldown(mocks)
		expectDefenderShield(mocks, 24*time.Hour)
		helper.ExpectNoThirdParties(TestAttackerTag, TestDefenderTag)
		helper.ExpectAnyEventPublish()

		dice := &testhelpers.ScriptedDice{Rolls: []int{9, 9}}
		svc := newSettlementServiceForTest(mocks, dice)
		summary, err := svc.SettleForfeit(context.Background(), roster)

		require.NoError(t, err)
		assert.Equal(t, entities.RaidOutcomeSuccess, summary.Outcome)
		require.NotNil(t, summary.Loot)
		assert.Equal(t, int64(450), summary.Loot.VaultLoot)
		assert.Equal(t, int64(0), summary.Loot.MemberLoot)
		assert.Equal(t, int64(0), summary.Loot.EscapeLoss)
		assert.Equal(t, int64(450), summary.Loot.Net)
		assert.Len(t, dice.Rolls, 2, "forfeit must not roll escape dice")
		mocks.MemberRepo.AssertNotCalled(t, "DebitBalance", mock.Anything, mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})
}

func TestSettlementService_SettleBattle(t *testing.T) {
	t.Parallel()

	t.Run("vulnerable defender is looted out and destroyed, bounty claimed", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5)
		roster := newTestRoster(raid, entities.AttitudeNeutral, entities.AttitudeNeutral,
			newTestParticipant(TestAllyTag, entities.RaidSideAttacker, 7, entities.AttitudeNeutral),
		)

		helper.ExpectFaction(newTestFaction(TestDefenderTag, 5, 50))
		helper.ExpectFaction(newTestFaction(TestAttackerTag, 5, 5000))
		mocks.MemberRepo.On("ListByFaction", mock.Anything, TestDefenderTag).Return(defenderMembers(1000, 0), nil)
		mocks.MemberRepo.On("DebitBalance", mock.Anything, int64(500), int64(100)).Return(entities.BalanceWrite{
			Result: entities.GuardApplied, Before: 1000, After: 900,
		}, nil)
		// 30% of 50 is under the loot floor, so the whole vault goes
		helper.ExpectDebit(TestDefenderTag, 50, 50)
		// gross 150, escape 5+5 = 10%
		helper.ExpectCredit(TestAttackerTag, 135, 5000)
		mocks.BountyRepo.On("GetActive", mock.Anything, TestDefenderTag).Return(&entities.Bounty{
			ID: 9, TargetTag: TestDefenderTag, PlacerTag: TestThirdTag, Amount: 2000, Status: entities.BountyStatusActive,
		}, nil)
		mocks.BountyRepo.On("Claim", mock.Anything, int64(9), TestAttackerTag, testNow).Return(entities.GuardApplied, nil)
		helper.ExpectCredit(TestAttackerTag, 2000, 5135)
		mocks.BountyRepo.On("DeleteActive", mock.Anything, TestDefenderTag).Return(nil)
		mocks.FactionRepo.On("Delete", mock.Anything, TestDefenderTag).Return(nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestAttackerTag, entities.LeaderboardDelta{
			RaidsWon: 1, TotalLooted: 135, FactionsDestroyed: 1,
		}).Return(nil)
		helper.ExpectLedgerRecords()
		expectResolved(mocks, entities.RaidOutcomeSuccess, false, 135)
		expectAttackerCooldown(mocks)
		helper.ExpectNoThirdParties(TestAttackerTag, TestDefenderTag)
		published := capturePublished(mocks)

		dice := &testhelpers.ScriptedDice{Rolls: []int{20, 5, 5}}
		svc := newSettlementServiceForTest(mocks, dice)
		summary, err := svc.SettleBattle(context.Background(), roster)

		require.NoError(t, err)
		require.NotNil(t, summary.Battle)
		assert.True(t, summary.Battle.AttackerWins)
		assert.True(t, summary.Loot.Vulnerable)
		assert.Equal(t, int64(50), summary.Loot.VaultLoot)
		assert.Equal(t, int64(100), summary.Loot.MemberLoot)
		assert.Equal(t, 1, summary.Loot.MembersRobbed)
		assert.Equal(t, 10, summary.Loot.EscapeLossPercent)
		assert.Equal(t, int64(135), summary.Loot.Net)
		assert.Equal(t, int64(2000), summary.BountyClaimed)
		assert.True(t, summary.DefenderDestroyed)
		assert.Equal(t, []string{TestAllyTag}, summary.AttackerAllies)

		destroyed, ok := findEvent[events.FactionDestroyedEvent](*published)
		require.True(t, ok)
		assert.Equal(t, 2, destroyed.MembersFreed)
		assert.Equal(t, TestAttackerTag, destroyed.DestroyedBy)

		mocks.CooldownRepo.AssertNotCalled(t, "SetShield", mock.Anything, mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("protected defender loses capped member loot and survives", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5)
		roster := newTestRoster(raid, entities.AttitudeNeutral, entities.AttitudeNeutral,
			newTestParticipant(TestAllyTag, entities.RaidSideAttacker, 7, entities.AttitudeNeutral),
		)

		helper.ExpectFaction(newTestFaction(TestDefenderTag, 5, 10000))
		helper.ExpectFaction(newTestFaction(TestAttackerTag, 5, 5000))
		mocks.MemberRepo.On("ListByFaction", mock.Anything, TestDefenderTag).Return(defenderMembers(100000, 1000), nil)
		mocks.MemberRepo.On("DebitBalance", mock.Anything, int64(500), int64(500)).Return(entities.BalanceWrite{
			Result: entities.GuardApplied, Before: 100000, After: 99500,
		}, nil)
		mocks.MemberRepo.On("DebitBalance", mock.Anything, int64(501), int64(20)).Return(entities.BalanceWrite{
			Result: entities.GuardApplied, Before: 1000, After: 980,
		}, nil)
		helper.ExpectDebit(TestDefenderTag, 1500, 10000)
		// gross 2020, escape 1+1 = 2% = 40
		helper.ExpectCredit(TestAttackerTag, 1980, 5000)
		mocks.BountyRepo.On("GetActive", mock.Anything, TestDefenderTag).Return(nil, nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestDefenderTag, entities.LeaderboardDelta{DefensesLost: 1}).Return(nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestAttackerTag, entities.LeaderboardDelta{RaidsWon: 1, TotalLooted: 1980}).Return(nil)
		helper.ExpectLedgerRecords()
		expectResolved(mocks, entities.RaidOutcomeSuccess, false, 1980)
		expectAttackerCooldown(mocks)
		expectDefenderShield(mocks, 24*time.Hour)
		helper.ExpectNoThirdParties(TestAttackerTag, TestDefenderTag)
		helper.ExpectAnyEventPublish()

		svc := newSettlementServiceForTest(mocks, &testhelpers.ScriptedDice{Rolls: []int{20, 1, 1}})
		summary, err := svc.SettleBattle(context.Background(), roster)

		require.NoError(t, err)
		assert.False(t, summary.Loot.Vulnerable)
		assert.Equal(t, 15, summary.Loot.VaultPercent)
		assert.Equal(t, int64(520), summary.Loot.MemberLoot)
		assert.Equal(t, int64(40), summary.Loot.EscapeLoss)
		assert.False(t, summary.DefenderDestroyed)
		mocks.FactionRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("held defense pays compensation and forfeits a losing stake", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, func(r *entities.RaidRecord) { r.WagerPool = 300 })
		opp := newTestParticipant(TestOppTag, entities.RaidSideAttacker, 3, entities.AttitudeOpportunist)
		opp.WagerAmount = 300
		roster := newTestRoster(raid, entities.AttitudeNeutral, entities.AttitudeNeutral, opp)

		helper.ExpectFaction(newTestFaction(TestDefenderTag, 5, 3000))
		helper.ExpectFaction(newTestFaction(TestAttackerTag, 5, 4000))
		helper.ExpectCredit(TestDefenderTag, 500, 3000)
		mocks.MemberRepo.On("ListByFaction", mock.Anything, TestDefenderTag).Return(defenderMembers(10, 20, 30), nil)
		mocks.GrantRepo.On("Grant", mock.Anything, mock.Anything).Return(nil).Times(3)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestAttackerTag, entities.LeaderboardDelta{RaidsLost: 1}).Return(nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, TestDefenderTag, entities.LeaderboardDelta{DefensesWon: 1}).Return(nil)
		mocks.RaidRepo.On("ZeroWagerPool", mock.Anything, TestRaidID).Return(nil)
		helper.ExpectLedgerRecords()
		expectResolved(mocks, entities.RaidOutcomeFailure, false, 0)
		expectAttackerCooldown(mocks)
		expectDefenderShield(mocks, 12*time.Hour)
		helper.ExpectNoThirdParties(TestAttackerTag, TestDefenderTag)
		helper.ExpectAnyEventPublish()

		svc := newSettlementServiceForTest(mocks, &testhelpers.ScriptedDice{Rolls: []int{1}})
		summary, err := svc.SettleBattle(context.Background(), roster)

		require.NoError(t, err)
		assert.Equal(t, entities.RaidOutcomeFailure, summary.Outcome)
		assert.Equal(t, int64(500), summary.DefenderCompensation)
		require.NotNil(t, summary.Wager)
		assert.Equal(t, int64(300), summary.Wager.Forfeited)
		assert.Empty(t, summary.Wager.Paid)
		assert.Equal(t, 0, mocks.Savepointer.Calls)
		mocks.FactionRepo.AssertNotCalled(t, "DebitTreasury", mock.Anything, mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("double settlement is refused", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5)
		roster := newTestRoster(raid, entities.AttitudeNeutral, entities.AttitudeNeutral)

		helper.ExpectFaction(newTestFaction(TestDefenderTag, 5, 3000))
		helper.ExpectCredit(TestDefenderTag, 500, 3000)
		mocks.MemberRepo.On("ListByFaction", mock.Anything, TestDefenderTag).Return(defenderMembers(), nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		helper.ExpectLedgerRecords()
		helper.ExpectAnyEventPublish()
		mocks.RaidRepo.On("Resolve", mock.Anything, mock.Anything).Return(entities.GuardFailed, nil)

		svc := newSettlementServiceForTest(mocks, &testhelpers.ScriptedDice{Rolls: []int{1}})
		_, err := svc.SettleBattle(context.Background(), roster)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already resolved")
		mocks.CooldownRepo.AssertNotCalled(t, "ReleaseRaidLock", mock.Anything, mock.Anything)
	})
}

func TestSettlementService_WagerPayout(t *testing.T) {
	t.Parallel()

	// Empty-defender forfeit where OPP and THR staked on the attacker side
	setup := func(mocks *TestMocks, oppPaid, thrPaid bool) *entities.RaidRoster {
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, func(r *entities.RaidRecord) { r.WagerPool = 600 })
		opp := newTestParticipant(TestOppTag, entities.RaidSideAttacker, 3, entities.AttitudeOpportunist)
		thr := newTestParticipant(TestThirdTag, entities.RaidSideAttacker, 3, entities.AttitudeOpportunist)
		roster := entities.NewRaidRoster(raid, []*entities.ParticipantDetail{
			newTestParticipant(TestAttackerTag, entities.RaidSideAttacker, 5, entities.AttitudeNeutral),
			opp,
			thr,
		})

		helper.ExpectFaction(newTestFaction(TestDefenderTag, 5, 3000))
		helper.ExpectFaction(newTestFaction(TestAttackerTag, 5, 4000))
		helper.ExpectDebit(TestDefenderTag, 450, 3000)
		helper.ExpectCredit(TestAttackerTag, 450, 4000)
		mocks.BountyRepo.On("GetActive", mock.Anything, TestDefenderTag).Return(nil, nil)
		mocks.FactionRepo.On("ApplyLeaderboard", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		for tag, paid := range map[string]bool{TestOppTag: oppPaid, TestThirdTag: thrPaid} {
			if paid {
				helper.ExpectCredit(tag, 300, 1000)
			} else {
				helper.ExpectCreditRejected(tag, 300)
			}
		}
		mocks.RaidRepo.On("ZeroWagerPool", mock.Anything, TestRaidID).Return(nil)
		helper.ExpectLedgerRecords()
		expectResolved(mocks, entities.RaidOutcomeSuccess, true, 450)
		expectAttackerCooldown(mocks)
		expectDefenderShield(mocks, 24*time.Hour)
		helper.ExpectNoThirdParties(TestAttackerTag, TestDefenderTag)
		helper.ExpectAnyEventPublish()
		return roster
	}

	t.Run("even split to every winner", func(t *testing.T) {
		mocks := NewTestMocks()
		roster := setup(mocks, true, true)

		summary, err := newSettlementServiceForTest(mocks, &testhelpers.ScriptedDice{}).SettleForfeit(context.Background(), roster)

		require.NoError(t, err)
		assert.Equal(t, int64(300), summary.Wager.PerWinner)
		assert.ElementsMatch(t, []string{TestOppTag, TestThirdTag}, summary.Wager.Paid)
		assert.Equal(t, int64(0), summary.Wager.Forfeited)
		assert.Equal(t, 0, mocks.Savepointer.RolledBack)
		assert.Equal(t, int64(0), roster.Raid.WagerPool)
		mocks.AssertAllExpectations(t)
	})

	t.Run("partial failure still zeroes the pool", func(t *testing.T) {
		mocks := NewTestMocks()
		roster := setup(mocks, true, false)

		summary, err := newSettlementServiceForTest(mocks, &testhelpers.ScriptedDice{}).SettleForfeit(context.Background(), roster)

		require.NoError(t, err)
		assert.Equal(t, []string{TestOppTag}, summary.Wager.Paid)
		assert.Equal(t, []string{TestThirdTag}, summary.Wager.Failed)
		assert.Equal(t, int64(300), summary.Wager.Forfeited)
		assert.False(t, summary.Wager.LostToChaos)
		assert.Equal(t, 3, mocks.Savepointer.Calls)
		assert.Equal(t, 1, mocks.Savepointer.RolledBack)
		mocks.RaidRepo.AssertCalled(t, "ZeroWagerPool", mock.Anything, TestRaidID)
	})

	t.Run("total failure is lost to the chaos of war", func(t *testing.T) {
		mocks := NewTestMocks()
		roster := setup(mocks, false, false)

		summary, err := newSettlementServiceForTest(mocks, &testhelpers.ScriptedDice{}).SettleForfeit(context.Background(), roster)

		require.NoError(t, err)
		assert.True(t, summary.Wager.LostToChaos)
		assert.Empty(t, summary.Wager.Paid)
		assert.Equal(t, int64(600), summary.Wager.Forfeited)
		assert.Equal(t, 3, mocks.Savepointer.RolledBack, "both payouts and the enclosing savepoint roll back")
		mocks.RaidRepo.AssertCalled(t, "ZeroWagerPool", mock.Anything, TestRaidID)
	})
}

func TestVaultTake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		treasury int64
		percent  int
		want     int64
	}{
		{treasury: 10000, percent: 15, want: 1500},
		{treasury: 400, percent: 30, want: 120},
		{treasury: 100, percent: 30, want: 50},
		{treasury: 30, percent: 30, want: 30},
		{treasury: 0, percent: 30, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, vaultTake(tt.treasury, tt.percent), "treasury %d at %d%%", tt.treasury, tt.percent)
	}
}

func TestMemberTake(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(100), memberTake(1000, true))
	assert.Equal(t, int64(10000), memberTake(100000, true), "vulnerable loot is uncapped")
	assert.Equal(t, int64(20), memberTake(1000, false))
	assert.Equal(t, int64(500), memberTake(100000, false))
	assert.Equal(t, int64(0), memberTake(0, false))
	assert.Equal(t, int64(0), memberTake(49, false))
}
