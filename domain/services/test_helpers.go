package services

import (
	"context"
	"testing"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestLeaderID    = int64(100)
	TestOfficerID   = int64(101)
	TestMemberID    = int64(102)
	TestAllyLeader  = int64(200)
	TestOppLeader   = int64(300)
	TestRaidID      = int64(42)
	TestAttackerTag = "ATK"
	TestDefenderTag = "DEF"
	TestAllyTag     = "ALY"
	TestOppTag      = "OPP"
	TestThirdTag    = "THR"
)

// testNow is the fixed instant every service clock returns in tests
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	FactionRepo      *testhelpers.MockFactionRepository
	MemberRepo       *testhelpers.MockMemberRepository
	CooldownRepo     *testhelpers.MockCooldownRepository
	RaidRepo         *testhelpers.MockRaidRepository
	ParticipantRepo  *testhelpers.MockParticipantRepository
	RelationshipRepo *testhelpers.MockRelationshipRepository
	ProposalRepo     *testhelpers.MockProposalRepository
	BountyRepo       *testhelpers.MockBountyRepository
	LedgerRepo       *testhelpers.MockLedgerRepository
	ActionRepo       *testhelpers.MockRaidActionRepository
	GrantRepo        *testhelpers.MockGrantRepository
	EventPublisher   *testhelpers.MockEventPublisher
	Savepointer      *testhelpers.InlineSavepointer
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		FactionRepo:      &testhelpers.MockFactionRepository{},
		MemberRepo:       &testhelpers.MockMemberRepository{},
		CooldownRepo:     &testhelpers.MockCooldownRepository{},
		RaidRepo:         &testhelpers.MockRaidRepository{},
		ParticipantRepo:  &testhelpers.MockParticipantRepository{},
		RelationshipRepo: &testhelpers.MockRelationshipRepository{},
		ProposalRepo:     &testhelpers.MockProposalRepository{},
		BountyRepo:       &testhelpers.MockBountyRepository{},
		LedgerRepo:       &testhelpers.MockLedgerRepository{},
		ActionRepo:       &testhelpers.MockRaidActionRepository{},
		GrantRepo:        &testhelpers.MockGrantRepository{},
		EventPublisher:   &testhelpers.MockEventPublisher{},
		Savepointer:      &testhelpers.InlineSavepointer{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.FactionRepo.AssertExpectations(t)
	m.MemberRepo.AssertExpectations(t)
	m.CooldownRepo.AssertExpectations(t)
	m.RaidRepo.AssertExpectations(t)
	m.ParticipantRepo.AssertExpectations(t)
	m.RelationshipRepo.AssertExpectations(t)
	m.ProposalRepo.AssertExpectations(t)
	m.BountyRepo.AssertExpectations(t)
	m.LedgerRepo.AssertExpectations(t)
	m.ActionRepo.AssertExpectations(t)
	m.GrantRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// MockHelper provides common mock setup patterns
type MockHelper struct {
	mocks *TestMocks
	ctx   context.Context
}

// NewMockHelper creates a new mock helper
func NewMockHelper(mocks *TestMocks) *MockHelper {
	return &MockHelper{
		mocks: mocks,
		ctx:   context.Background(),
	}
}

// ExpectMembership sets up a membership lookup
func (h *MockHelper) ExpectMembership(discordID int64, tag string, role entities.MemberRole) {
	h.mocks.MemberRepo.On("GetMembership", mock.Anything, discordID).Return(&entities.Membership{
		DiscordID:  discordID,
		FactionTag: tag,
		Role:       role,
		JoinedAt:   testNow.Add(-30 * 24 * time.Hour),
	}, nil)
}

// ExpectLeader sets up an owner membership lookup
func (h *MockHelper) ExpectLeader(discordID int64, tag string) {
	h.ExpectMembership(discordID, tag, entities.MemberRoleOwner)
}

// ExpectNoMembership sets up a lookup for a user outside any faction
func (h *MockHelper) ExpectNoMembership(discordID int64) {
	h.mocks.MemberRepo.On("GetMembership", mock.Anything, discordID).Return(nil, nil)
}

// ExpectFaction sets up faction repository lookup
func (h *MockHelper) ExpectFaction(faction *entities.Faction) {
	h.mocks.FactionRepo.On("GetByTag", mock.Anything, faction.Tag).Return(faction, nil)
}

// ExpectFactionNotFound sets up faction repository to return not found
func (h *MockHelper) ExpectFactionNotFound(tag string) {
	h.mocks.FactionRepo.On("GetByTag", mock.Anything, tag).Return(nil, nil)
}

// ExpectNoRelationship sets up a pair with no standing and no diplomacy cooldowns
func (h *MockHelper) ExpectNoRelationship(x, y string) {
	pair := entities.NewFactionPair(x, y)
	h.mocks.RelationshipRepo.On("Get", mock.Anything, pair).Return(nil, nil)
	h.mocks.RelationshipRepo.On("GetCooldown", mock.Anything, pair, mock.Anything).Return(nil, nil).Maybe()
}

// ExpectRelationship sets up a relationship lookup for its pair
func (h *MockHelper) ExpectRelationship(rel *entities.Relationship) {
	h.mocks.RelationshipRepo.On("Get", mock.Anything, rel.Pair()).Return(rel, nil)
}

// ExpectCooldown sets up a cooldown state lookup
func (h *MockHelper) ExpectCooldown(state *entities.CooldownState) {
	h.mocks.CooldownRepo.On("Get", mock.Anything, state.FactionTag).Return(state, nil)
}

// ExpectDebit sets up an applied guarded treasury debit
func (h *MockHelper) ExpectDebit(tag string, amount, before int64) {
	h.mocks.FactionRepo.On("DebitTreasury", mock.Anything, tag, amount).Return(entities.BalanceWrite{
		Result: entities.GuardApplied,
		Before: before,
		After:  before - amount,
	}, nil).Once()
}

// ExpectDebitRejected sets up a treasury debit whose guard matched no rows
func (h *MockHelper) ExpectDebitRejected(tag string, amount int64) {
	h.mocks.FactionRepo.On("DebitTreasury", mock.Anything, tag, amount).Return(entities.BalanceWrite{Result: entities.GuardFailed}, nil).Once()
}

// ExpectCredit sets up an applied treasury credit
func (h *MockHelper) ExpectCredit(tag string, amount, before int64) {
	h.mocks.FactionRepo.On("CreditTreasury", mock.Anything, tag, amount).Return(entities.BalanceWrite{
		Result: entities.GuardApplied,
		Before: before,
		After:  before + amount,
	}, nil).Once()
}

// ExpectCreditRejected sets up a credit to a faction that no longer exists
func (h *MockHelper) ExpectCreditRejected(tag string, amount int64) {
	h.mocks.FactionRepo.On("CreditTreasury", mock.Anything, tag, amount).Return(entities.BalanceWrite{Result: entities.GuardFailed}, nil).Once()
}

// ExpectLedgerRecords accepts any number of ledger writes
func (h *MockHelper) ExpectLedgerRecords() {
	h.mocks.LedgerRepo.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()
}

// ExpectEventPublish sets up event publisher mock expectations
func (h *MockHelper) ExpectEventPublish(eventType events.EventType) {
	h.mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})).Return(nil)
}

// ExpectAnyEventPublish accepts any event without requiring one
func (h *MockHelper) ExpectAnyEventPublish() {
	h.mocks.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
}

// ExpectNoThirdParties sets up empty relationship lists for war dispatch
func (h *MockHelper) ExpectNoThirdParties(tags ...string) {
	for _, tag := range tags {
		h.mocks.RelationshipRepo.On("ListForFaction", mock.Anything, tag).Return([]*entities.Relationship{}, nil)
	}
}

// newTestFaction creates a faction founded well outside its immunity window
func newTestFaction(tag string, tier int, treasury int64, opts ...func(*entities.Faction)) *entities.Faction {
	faction := &entities.Faction{
		Tag:            tag,
		Name:           tag + " Company",
		Tier:           tier,
		Attitude:       entities.AttitudeNeutral,
		OwnerDiscordID: TestLeaderID,
		Treasury:       treasury,
		CreatedAt:      testNow.Add(-30 * 24 * time.Hour),
		UpdatedAt:      testNow.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(faction)
	}
	return faction
}

func withAttitude(attitude entities.Attitude) func(*entities.Faction) {
	return func(f *entities.Faction) {
		f.Attitude = attitude
	}
}

// newTestRaid creates a pending raid between the test attacker and defender
func newTestRaid(attackerTier, defenderTier int, opts ...func(*entities.RaidRecord)) *entities.RaidRecord {
	raid := &entities.RaidRecord{
		ID:             TestRaidID,
		AttackerTag:    TestAttackerTag,
		DefenderTag:    TestDefenderTag,
		DeclaredBy:     TestLeaderID,
		AttackerTier:   attackerTier,
		DefenderTier:   defenderTier,
		RaidCost:       entities.RaidCostForTier(attackerTier),
		DeclaredAt:     testNow.Add(-entities.RecruitmentWindow),
		WindowClosesAt: testNow,
		Phase:          entities.RaidPhaseNarratingAssault,
		Outcome:        entities.RaidOutcomePending,
		AttackerAllies: []string{},
		DefenderAllies: []string{},
	}
	for _, opt := range opts {
		opt(raid)
	}
	return raid
}

// newTestParticipant creates a joined participant with faction stats
func newTestParticipant(tag string, side entities.RaidSide, tier int, attitude entities.Attitude) *entities.ParticipantDetail {
	return &entities.ParticipantDetail{
		RaidParticipant: entities.RaidParticipant{
			RaidID:     TestRaidID,
			FactionTag: tag,
			Side:       side,
			JoinedAt:   testNow.Add(-5 * time.Minute),
		},
		FactionName: tag + " Company",
		Tier:        tier,
		Attitude:    attitude,
	}
}

// newTestRoster builds a roster where both primaries joined with the given attitudes
func newTestRoster(raid *entities.RaidRecord, attackerAttitude, defenderAttitude entities.Attitude, extra ...*entities.ParticipantDetail) *entities.RaidRoster {
	participants := []*entities.ParticipantDetail{
		newTestParticipant(raid.AttackerTag, entities.RaidSideAttacker, raid.AttackerTier, attackerAttitude),
		newTestParticipant(raid.DefenderTag, entities.RaidSideDefender, raid.DefenderTier, defenderAttitude),
	}
	return entities.NewRaidRoster(raid, append(participants, extra...))
}
