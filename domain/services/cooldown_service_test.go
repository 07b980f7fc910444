package services

import (
	"context"
	"testing"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCooldownServiceForTest(mocks *TestMocks) *cooldownService {
	svc := NewCooldownService(
		mocks.FactionRepo,
		mocks.MemberRepo,
		mocks.CooldownRepo,
		mocks.LedgerRepo,
		mocks.EventPublisher,
	).(*cooldownService)
	svc.now = fixedClock
	return svc
}

func TestCooldownService_ApplyPostRaid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		attackerWon bool
		destroyed   bool
		wantShield  time.Duration
	}{
		{name: "successful raid shields defender for a day", attackerWon: true, wantShield: 24 * time.Hour},
		{name: "held defense shields defender for half a day", attackerWon: false, wantShield: 12 * time.Hour},
		{name: "destroyed defender has nothing to shield", attackerWon: true, destroyed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			helper.ExpectFaction(newTestFaction(TestAttackerTag, 5, 1000))
			mocks.CooldownRepo.On("SetLastRaid", mock.Anything, TestAttackerTag, testNow).Return(nil)
			if !tt.destroyed {
				mocks.CooldownRepo.On("SetShield", mock.Anything, TestDefenderTag, testNow.Add(tt.wantShield)).Return(nil)
				mocks.CooldownRepo.On("ReleaseRaidLock", mock.Anything, TestDefenderTag).Return(nil)
			}

			svc := newCooldownServiceForTest(mocks)
			err := svc.ApplyPostRaid(context.Background(), newTestRaid(5, 5), tt.attackerWon, tt.destroyed)

			require.NoError(t, err)
			mocks.AssertAllExpectations(t)
			if tt.destroyed {
				mocks.CooldownRepo.AssertNotCalled(t, "ReleaseRaidLock", mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("attacker destroyed mid-raid still releases the target", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectFactionNotFound(TestAttackerTag)
		expectDefenderShield(mocks, 12*time.Hour)

		svc := newCooldownServiceForTest(mocks)
		require.NoError(t, svc.ApplyPostRaid(context.Background(), newTestRaid(5, 5), false, false))

		mocks.CooldownRepo.AssertNotCalled(t, "SetLastRaid", mock.Anything, mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})
}

func TestCooldownService_PurchaseShield(t *testing.T) {
	t.Parallel()

	t.Run("charges tier price per hour", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectLeader(TestLeaderID, TestDefenderTag)
		helper.ExpectFaction(newTestFaction(TestDefenderTag, 4, 2000))
		helper.ExpectCooldown(entities.NewCooldownState(TestDefenderTag))
		// 4 × 50 × 6h
		helper.ExpectDebit(TestDefenderTag, 1200, 2000)
		mocks.CooldownRepo.On("SetShield", mock.Anything, TestDefenderTag, testNow.Add(6*time.Hour)).Return(nil)
		mocks.LedgerRepo.On("Record", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
			return e.EntryType == entities.EntryTypeShieldPurchase && e.ChangeAmount == -1200
		})).Return(nil)
		helper.ExpectEventPublish(events.EventTypeTreasuryChanged)
		helper.ExpectEventPublish(events.EventTypeShieldPurchased)

		svc := newCooldownServiceForTest(mocks)
		state, err := svc.PurchaseShield(context.Background(), TestLeaderID, 6)

		require.NoError(t, err)
		require.NotNil(t, state.ShieldExpiresAt)
		assert.Equal(t, testNow.Add(6*time.Hour), *state.ShieldExpiresAt)
		mocks.AssertAllExpectations(t)
	})

	t.Run("extends an existing shield", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		current := testNow.Add(2 * time.Hour)
		state := entities.NewCooldownState(TestDefenderTag)
		state.ShieldExpiresAt = &current
		helper.ExpectLeader(TestLeaderID, TestDefenderTag)
		helper.ExpectFaction(newTestFaction(TestDefenderTag, 1, 500))
		helper.ExpectCooldown(state)
		helper.ExpectDebit(TestDefenderTag, 50, 500)
		mocks.CooldownRepo.On("SetShield", mock.Anything, TestDefenderTag, testNow.Add(3*time.Hour)).Return(nil)
		helper.ExpectLedgerRecords()
		helper.ExpectAnyEventPublish()

		svc := newCooldownServiceForTest(mocks)
		_, err := svc.PurchaseShield(context.Background(), TestLeaderID, 1)

		require.NoError(t, err)
		mocks.AssertAllExpectations(t)
	})

	t.Run("no shields while under attack", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		state := entities.NewCooldownState(TestDefenderTag)
		state.IsUnderRaid = true
		helper.ExpectLeader(TestLeaderID, TestDefenderTag)
		helper.ExpectFaction(newTestFaction(TestDefenderTag, 4, 2000))
		helper.ExpectCooldown(state)

		svc := newCooldownServiceForTest(mocks)
		_, err := svc.PurchaseShield(context.Background(), TestLeaderID, 6)

		assert.ErrorIs(t, err, entities.ErrTargetUnderRaid)
		mocks.FactionRepo.AssertNotCalled(t, "DebitTreasury", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("hours out of range", func(t *testing.T) {
		svc := newCooldownServiceForTest(NewTestMocks())

		_, err := svc.PurchaseShield(context.Background(), TestLeaderID, 49)
		assert.ErrorIs(t, err, entities.ErrInvalidRequest)
		_, err = svc.PurchaseShield(context.Background(), TestLeaderID, 0)
		assert.ErrorIs(t, err, entities.ErrInvalidRequest)
	})

	t.Run("cannot afford", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectLeader(TestLeaderID, TestDefenderTag)
		helper.ExpectFaction(newTestFaction(TestDefenderTag, 10, 100))
		helper.ExpectCooldown(entities.NewCooldownState(TestDefenderTag))

		svc := newCooldownServiceForTest(mocks)
		_, err := svc.PurchaseShield(context.Background(), TestLeaderID, 2)

		assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
	})
}

func TestCooldownService_AttackerCooldownRemaining(t *testing.T) {
	t.Parallel()

	lastRaid := testNow.Add(-10 * time.Hour)

	tests := []struct {
		name     string
		attitude entities.Attitude
		tier     int
		want     time.Duration
	}{
		{"neutral waits a full day", entities.AttitudeNeutral, 5, 14 * time.Hour},
		{"aggressive tier 13 waits eight hours", entities.AttitudeAggressive, 13, 0},
		{"aggressive tier 7 waits sixteen hours", entities.AttitudeAggressive, 7, 6 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			helper.ExpectFaction(newTestFaction(TestAttackerTag, tt.tier, 1000, withAttitude(tt.attitude)))
			state := entities.NewCooldownState(TestAttackerTag)
			state.LastRaidAt = &lastRaid
			helper.ExpectCooldown(state)

			svc := newCooldownServiceForTest(mocks)
			remaining, err := svc.AttackerCooldownRemaining(context.Background(), TestAttackerTag)

			require.NoError(t, err)
			assert.Equal(t, tt.want, remaining)
		})
	}
}
