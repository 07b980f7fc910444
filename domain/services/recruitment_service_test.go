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

func newRecruitmentServiceForTest(mocks *TestMocks) *recruitmentService {
	svc := NewRecruitmentService(
		mocks.FactionRepo,
		mocks.MemberRepo,
		mocks.RaidRepo,
		mocks.ParticipantRepo,
		mocks.RelationshipRepo,
		mocks.LedgerRepo,
		mocks.EventPublisher,
	).(*recruitmentService)
	svc.now = fixedClock
	return svc
}

func openRaid(r *entities.RaidRecord) {
	r.Phase = entities.RaidPhaseAwaitingParticipants
	r.DeclaredAt = testNow.Add(-5 * time.Minute)
	r.WindowClosesAt = testNow.Add(5 * time.Minute)
}

// expectRosterReload sets up the roster read that follows a successful join
func expectRosterReload(mocks *TestMocks, participants ...*entities.ParticipantDetail) {
	mocks.ParticipantRepo.On("ListDetailsByRaid", mock.Anything, TestRaidID).Return(participants, nil)
}

func TestRecruitmentService_JoinRaid(t *testing.T) {
	t.Parallel()

	t.Run("primary defender joins for free", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, openRaid)
		helper.ExpectLeader(TestAllyLeader, TestDefenderTag)
		mocks.RaidRepo.On("GetByID", mock.Anything, TestRaidID).Return(raid, nil)
		mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, TestDefenderTag).Return(nil, nil)
		helper.ExpectFaction(newTestFaction(TestDefenderTag, 5, 3000, withAttitude(entities.AttitudeOpportunist)))
		mocks.ParticipantRepo.On("AddIfOpen", mock.Anything, mock.MatchedBy(func(p *entities.RaidParticipant) bool {
			return p.FactionTag == TestDefenderTag && p.Side == entities.RaidSideDefender && p.WagerAmount == 0 && !p.FormalAlly
		}), testNow).Return(entities.GuardApplied, nil)
		expectRosterReload(mocks, newTestParticipant(TestDefenderTag, entities.RaidSideDefender, 5, entities.AttitudeOpportunist))
		helper.ExpectEventPublish(events.EventTypeRaidRosterChanged)

		svc := newRecruitmentServiceForTest(mocks)
		result, err := svc.JoinRaid(context.Background(), TestAllyLeader, TestRaidID, entities.RaidSideDefender)

		require.NoError(t, err)
		assert.False(t, result.Wagered)
		assert.Len(t, result.Roster.Defenders, 1)
		mocks.FactionRepo.AssertNotCalled(t, "DebitTreasury", mock.Anything, mock.Anything, mock.Anything)
		mocks.RelationshipRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("formal ally joins free even as an opportunist", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, openRaid)
		helper.ExpectLeader(TestOppLeader, TestAllyTag)
		mocks.RaidRepo.On("GetByID", mock.Anything, TestRaidID).Return(raid, nil)
		mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, TestAllyTag).Return(nil, nil)
		helper.ExpectFaction(newTestFaction(TestAllyTag, 4, 100, withAttitude(entities.AttitudeOpportunist)))
		pair := entities.NewFactionPair(TestAllyTag, TestAttackerTag)
		helper.ExpectRelationship(&entities.Relationship{TagA: pair.A, TagB: pair.B, Status: entities.RelationshipAlliance})
		mocks.ParticipantRepo.On("AddIfOpen", mock.Anything, mock.MatchedBy(func(p *entities.RaidParticipant) bool {
			return p.FormalAlly && p.WagerAmount == 0
		}), testNow).Return(entities.GuardApplied, nil)
		expectRosterReload(mocks)
		helper.ExpectEventPublish(events.EventTypeRaidRosterChanged)

		svc := newRecruitmentServiceForTest(mocks)
		result, err := svc.JoinRaid(context.Background(), TestOppLeader, TestRaidID, entities.RaidSideAttacker)

		require.NoError(t, err)
		assert.True(t, result.Participant.FormalAlly)
		assert.False(t, result.Wagered)
		mocks.FactionRepo.AssertNotCalled(t, "DebitTreasury", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unaligned opportunist stakes a tier wager", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, openRaid)
		helper.ExpectLeader(TestOppLeader, TestOppTag)
		mocks.RaidRepo.On("GetByID", mock.Anything, TestRaidID).Return(raid, nil)
		mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, TestOppTag).Return(nil, nil)
		helper.ExpectFaction(newTestFaction(TestOppTag, 3, 1000, withAttitude(entities.AttitudeOpportunist)))
		helper.ExpectNoRelationship(TestOppTag, TestAttackerTag)
		helper.ExpectDebit(TestOppTag, 300, 1000)
		mocks.ParticipantRepo.On("AddIfOpen", mock.Anything, mock.MatchedBy(func(p *entities.RaidParticipant) bool {
			return p.WagerAmount == 300 && !p.FormalAlly
		}), testNow).Return(entities.GuardApplied, nil)
		mocks.RaidRepo.On("AddToWagerPool", mock.Anything, TestRaidID, int64(300)).Return(entities.GuardApplied, nil)
		mocks.LedgerRepo.On("Record", mock.Anything, mock.MatchedBy(func(e *entities.LedgerEntry) bool {
			return e.EntryType == entities.EntryTypeOpportunistStake && e.ChangeAmount == -300
		})).Return(nil)
		expectRosterReload(mocks)
		helper.ExpectEventPublish(events.EventTypeTreasuryChanged)
		helper.ExpectEventPublish(events.EventTypeRaidRosterChanged)

		svc := newRecruitmentServiceForTest(mocks)
		result, err := svc.JoinRaid(context.Background(), TestOppLeader, TestRaidID, entities.RaidSideAttacker)

		require.NoError(t, err)
		assert.True(t, result.Wagered)
		assert.Equal(t, int64(300), result.Participant.WagerAmount)
		mocks.AssertAllExpectations(t)
	})

	t.Run("opportunist who cannot cover the stake leaves no record", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, openRaid)
		helper.ExpectLeader(TestOppLeader, TestOppTag)
		mocks.RaidRepo.On("GetByID", mock.Anything, TestRaidID).Return(raid, nil)
		mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, TestOppTag).Return(nil, nil)
		helper.ExpectFaction(newTestFaction(TestOppTag, 3, 299, withAttitude(entities.AttitudeOpportunist)))
		helper.ExpectNoRelationship(TestOppTag, TestDefenderTag)

		svc := newRecruitmentServiceForTest(mocks)
		_, err := svc.JoinRaid(context.Background(), TestOppLeader, TestRaidID, entities.RaidSideDefender)

		assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
		mocks.ParticipantRepo.AssertNotCalled(t, "AddIfOpen", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stake debit lost a race", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, openRaid)
		helper.ExpectLeader(TestOppLeader, TestOppTag)
		mocks.RaidRepo.On("GetByID", mock.Anything, TestRaidID).Return(raid, nil)
		mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, TestOppTag).Return(nil, nil)
		helper.ExpectFaction(newTestFaction(TestOppTag, 3, 1000, withAttitude(entities.AttitudeOpportunist)))
		helper.ExpectNoRelationship(TestOppTag, TestDefenderTag)
		helper.ExpectDebitRejected(TestOppTag, 300)

		svc := newRecruitmentServiceForTest(mocks)
		_, err := svc.JoinRaid(context.Background(), TestOppLeader, TestRaidID, entities.RaidSideDefender)

		assert.ErrorIs(t, err, entities.ErrInsufficientFundsAtCommit)
		mocks.ParticipantRepo.AssertNotCalled(t, "AddIfOpen", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent duplicate join loses the insert", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		raid := newTestRaid(5, 5, openRaid)
		helper.ExpectLeader(TestOppLeader, TestThirdTag)
		mocks.RaidRepo.On("GetByID", mock.Anything, TestRaidID).Return(raid, nil)
		mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, TestThirdTag).Return(nil, nil).Once()
		mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, TestThirdTag).Return(&entities.RaidParticipant{
			RaidID: TestRaidID, FactionTag: TestThirdTag, Side: entities.RaidSideAttacker,
		}, nil).Once()
		helper.ExpectFaction(newTestFaction(TestThirdTag, 6, 1000, withAttitude(entities.AttitudeAggressive)))
		helper.ExpectNoRelationship(TestThirdTag, TestAttackerTag)
		mocks.ParticipantRepo.On("AddIfOpen", mock.Anything, mock.Anything, testNow).Return(entities.GuardFailed, nil)

		svc := newRecruitmentServiceForTest(mocks)
		_, err := svc.JoinRaid(context.Background(), TestOppLeader, TestRaidID, entities.RaidSideAttacker)

		assert.ErrorIs(t, err, entities.ErrAlreadyParticipating)
	})
}

func TestRecruitmentService_JoinRaidRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requester int64
		tag       string
		side      entities.RaidSide
		raid      *entities.RaidRecord
		existing  *entities.RaidParticipant
		wantErr   error
	}{
		{
			name:      "already participating",
			requester: TestAllyLeader,
			tag:       TestAllyTag,
			side:      entities.RaidSideDefender,
			raid:      newTestRaid(5, 5, openRaid),
			existing:  &entities.RaidParticipant{FactionTag: TestAllyTag, Side: entities.RaidSideAttacker},
			wantErr:   entities.ErrAlreadyParticipating,
		},
		{
			name:      "attacker cannot defend",
			requester: TestLeaderID,
			tag:       TestAttackerTag,
			side:      entities.RaidSideDefender,
			raid:      newTestRaid(5, 5, openRaid),
			wantErr:   entities.ErrInvalidSide,
		},
		{
			name:      "defender cannot attack itself",
			requester: TestAllyLeader,
			tag:       TestDefenderTag,
			side:      entities.RaidSideAttacker,
			raid:      newTestRaid(5, 5, openRaid),
			wantErr:   entities.ErrInvalidSide,
		},
		{
			name:      "unknown side",
			requester: TestAllyLeader,
			tag:       TestAllyTag,
			side:      entities.RaidSide("middle"),
			raid:      newTestRaid(5, 5, openRaid),
			wantErr:   entities.ErrInvalidSide,
		},
		{
			name:      "window closed",
			requester: TestAllyLeader,
			tag:       TestAllyTag,
			side:      entities.RaidSideAttacker,
			raid: newTestRaid(5, 5, openRaid, func(r *entities.RaidRecord) {
				r.WindowClosesAt = testNow
			}),
			wantErr: entities.ErrRaidExpired,
		},
		{
			name:      "already resolved",
			requester: TestAllyLeader,
			tag:       TestAllyTag,
			side:      entities.RaidSideAttacker,
			raid: newTestRaid(5, 5, openRaid, func(r *entities.RaidRecord) {
				r.Outcome = entities.RaidOutcomeSuccess
			}),
			wantErr: entities.ErrRaidExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			helper := NewMockHelper(mocks)
			helper.ExpectLeader(tt.requester, tt.tag)
			mocks.RaidRepo.On("GetByID", mock.Anything, TestRaidID).Return(tt.raid, nil)
			mocks.ParticipantRepo.On("Get", mock.Anything, TestRaidID, tt.tag).Return(tt.existing, nil)

			svc := newRecruitmentServiceForTest(mocks)
			_, err := svc.JoinRaid(context.Background(), tt.requester, TestRaidID, tt.side)

			assert.ErrorIs(t, err, tt.wantErr)
			mocks.ParticipantRepo.AssertNotCalled(t, "AddIfOpen", mock.Anything, mock.Anything, mock.Anything)
			mocks.FactionRepo.AssertNotCalled(t, "DebitTreasury", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("unknown raid", func(t *testing.T) {
		mocks := NewTestMocks()
		helper := NewMockHelper(mocks)
		helper.ExpectLeader(TestAllyLeader, TestAllyTag)
		mocks.RaidRepo.On("GetByID", mock.Anything, int64(999)).Return(nil, nil)

		svc := newRecruitmentServiceForTest(mocks)
		_, err := svc.JoinRaid(context.Background(), TestAllyLeader, 999, entities.RaidSideAttacker)

		assert.ErrorIs(t, err, entities.ErrRaidNotFound)
	})
}

func TestRosterChangedEvent(t *testing.T) {
	t.Parallel()

	raid := newTestRaid(5, 5, openRaid, func(r *entities.RaidRecord) { r.WagerPool = 300 })
	opp := newTestParticipant(TestOppTag, entities.RaidSideAttacker, 3, entities.AttitudeOpportunist)
	opp.WagerAmount = 300
	roster := newTestRoster(raid, entities.AttitudeNeutral, entities.AttitudeDefensive, opp)

	event := RosterChangedEvent(roster, &opp.RaidParticipant)

	assert.Equal(t, TestOppTag, event.JoinedTag)
	assert.Equal(t, int64(300), event.WagerPool)
	assert.Len(t, event.Attackers, 2)
	assert.Len(t, event.Defenders, 1)
	assert.Equal(t, int64(300), event.Attackers[1].WagerAmount)
}
