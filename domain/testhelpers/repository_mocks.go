package testhelpers

import (
	"context"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockFactionRepository is a mock implementation of FactionRepository
type MockFactionRepository struct {
	mock.Mock
}

func (m *MockFactionRepository) GetByTag(ctx context.Context, tag string) (*entities.Faction, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Faction), args.Error(1)
}

func (m *MockFactionRepository) Create(ctx context.Context, faction *entities.Faction) error {
	args := m.Called(ctx, faction)
	return args.Error(0)
}

func (m *MockFactionRepository) DebitTreasury(ctx context.Context, tag string, amount int64) (entities.BalanceWrite, error) {
	args := m.Called(ctx, tag, amount)
	return args.Get(0).(entities.BalanceWrite), args.Error(1)
}

func (m *MockFactionRepository) CreditTreasury(ctx context.Context, tag string, amount int64) (entities.BalanceWrite, error) {
	args := m.Called(ctx, tag, amount)
	return args.Get(0).(entities.BalanceWrite), args.Error(1)
}

func (m *MockFactionRepository) ApplyLeaderboard(ctx context.Context, tag string, delta entities.LeaderboardDelta) error {
	args := m.Called(ctx, tag, delta)
	return args.Error(0)
}

func (m *MockFactionRepository) Delete(ctx context.Context, tag string) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockFactionRepository) ListLeaderboard(ctx context.Context, limit int) ([]*entities.Faction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Faction), args.Error(1)
}

// MockMemberRepository is a mock implementation of MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) EnsureUser(ctx context.Context, discordID int64, username string) (*entities.User, error) {
	args := m.Called(ctx, discordID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockMemberRepository) GetMembership(ctx context.Context, discordID int64) (*entities.Membership, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Membership), args.Error(1)
}

func (m *MockMemberRepository) AddMember(ctx context.Context, membership *entities.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMemberRepository) ListByFaction(ctx context.Context, tag string) ([]*entities.FactionMember, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.FactionMember), args.Error(1)
}

func (m *MockMemberRepository) DebitBalance(ctx context.Context, discordID int64, amount int64) (entities.BalanceWrite, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(entities.BalanceWrite), args.Error(1)
}

func (m *MockMemberRepository) CreditBalance(ctx context.Context, discordID int64, amount int64) (entities.BalanceWrite, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(entities.BalanceWrite), args.Error(1)
}

// MockCooldownRepository is a mock implementation of CooldownRepository
type MockCooldownRepository struct {
	mock.Mock
}

func (m *MockCooldownRepository) Get(ctx context.Context, tag string) (*entities.CooldownState, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CooldownState), args.Error(1)
}

func (m *MockCooldownRepository) AcquireRaidLock(ctx context.Context, tag string) (entities.GuardResult, error) {
	args := m.Called(ctx, tag)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockCooldownRepository) ReleaseRaidLock(ctx context.Context, tag string) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockCooldownRepository) SetLastRaid(ctx context.Context, tag string, at time.Time) error {
	args := m.Called(ctx, tag, at)
	return args.Error(0)
}

func (m *MockCooldownRepository) SetShield(ctx context.Context, tag string, expiresAt time.Time) error {
	args := m.Called(ctx, tag, expiresAt)
	return args.Error(0)
}

func (m *MockCooldownRepository) ClearShield(ctx context.Context, tag string) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

// MockRaidRepository is a mock implementation of RaidRepository
type MockRaidRepository struct {
	mock.Mock
}

func (m *MockRaidRepository) Create(ctx context.Context, raid *entities.RaidRecord) error {
	args := m.Called(ctx, raid)
	return args.Error(0)
}

func (m *MockRaidRepository) GetByID(ctx context.Context, id int64) (*entities.RaidRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RaidRecord), args.Error(1)
}

func (m *MockRaidRepository) TransitionPhase(ctx context.Context, id int64, from, to entities.RaidPhase, nextPhaseAt *time.Time) (entities.GuardResult, error) {
	args := m.Called(ctx, id, from, to, nextPhaseAt)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockRaidRepository) AddToWagerPool(ctx context.Context, id int64, amount int64) (entities.GuardResult, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockRaidRepository) ZeroWagerPool(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRaidRepository) Resolve(ctx context.Context, resolution *entities.RaidResolution) (entities.GuardResult, error) {
	args := m.Called(ctx, resolution)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockRaidRepository) Abort(ctx context.Context, id int64, at time.Time) (entities.GuardResult, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockRaidRepository) ListInPhases(ctx context.Context, phases ...entities.RaidPhase) ([]*entities.RaidRecord, error) {
	args := m.Called(ctx, phases)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaidRecord), args.Error(1)
}

func (m *MockRaidRepository) ListByFaction(ctx context.Context, tag string, limit int) ([]*entities.RaidRecord, error) {
	args := m.Called(ctx, tag, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaidRecord), args.Error(1)
}

// MockParticipantRepository is a mock implementation of ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) AddIfOpen(ctx context.Context, participant *entities.RaidParticipant, now time.Time) (entities.GuardResult, error) {
	args := m.Called(ctx, participant, now)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockParticipantRepository) Get(ctx context.Context, raidID int64, tag string) (*entities.RaidParticipant, error) {
	args := m.Called(ctx, raidID, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RaidParticipant), args.Error(1)
}

func (m *MockParticipantRepository) ListDetailsByRaid(ctx context.Context, raidID int64) ([]*entities.ParticipantDetail, error) {
	args := m.Called(ctx, raidID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ParticipantDetail), args.Error(1)
}

func (m *MockParticipantRepository) DeleteByRaid(ctx context.Context, raidID int64) error {
	args := m.Called(ctx, raidID)
	return args.Error(0)
}

// MockRelationshipRepository is a mock implementation of RelationshipRepository
type MockRelationshipRepository struct {
	mock.Mock
}

func (m *MockRelationshipRepository) Get(ctx context.Context, pair entities.FactionPair) (*entities.Relationship, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Relationship), args.Error(1)
}

func (m *MockRelationshipRepository) Upsert(ctx context.Context, relationship *entities.Relationship) error {
	args := m.Called(ctx, relationship)
	return args.Error(0)
}

func (m *MockRelationshipRepository) Delete(ctx context.Context, pair entities.FactionPair) error {
	args := m.Called(ctx, pair)
	return args.Error(0)
}

func (m *MockRelationshipRepository) ListForFaction(ctx context.Context, tag string) ([]*entities.Relationship, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Relationship), args.Error(1)
}

func (m *MockRelationshipRepository) GetCooldown(ctx context.Context, pair entities.FactionPair, kind entities.DiplomacyCooldownKind) (*entities.DiplomacyCooldown, error) {
	args := m.Called(ctx, pair, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DiplomacyCooldown), args.Error(1)
}

func (m *MockRelationshipRepository) SetCooldown(ctx context.Context, cooldown *entities.DiplomacyCooldown) error {
	args := m.Called(ctx, cooldown)
	return args.Error(0)
}

// MockProposalRepository is a mock implementation of ProposalRepository
type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) Create(ctx context.Context, proposal *entities.DiplomacyProposal) (entities.GuardResult, error) {
	args := m.Called(ctx, proposal)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockProposalRepository) GetByID(ctx context.Context, id int64) (*entities.DiplomacyProposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DiplomacyProposal), args.Error(1)
}

func (m *MockProposalRepository) Resolve(ctx context.Context, id int64, status entities.ProposalStatus, at time.Time) (entities.GuardResult, error) {
	args := m.Called(ctx, id, status, at)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

// MockBountyRepository is a mock implementation of BountyRepository
type MockBountyRepository struct {
	mock.Mock
}

func (m *MockBountyRepository) GetActive(ctx context.Context, targetTag string) (*entities.Bounty, error) {
	args := m.Called(ctx, targetTag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bounty), args.Error(1)
}

func (m *MockBountyRepository) Create(ctx context.Context, bounty *entities.Bounty) (entities.GuardResult, error) {
	args := m.Called(ctx, bounty)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockBountyRepository) Claim(ctx context.Context, id int64, claimantTag string, at time.Time) (entities.GuardResult, error) {
	args := m.Called(ctx, id, claimantTag, at)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockBountyRepository) DeleteActive(ctx context.Context, targetTag string) error {
	args := m.Called(ctx, targetTag)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListByAccount(ctx context.Context, kind entities.AccountKind, accountID string, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, kind, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListByRaid(ctx context.Context, raidID int64) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, raidID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

// MockRaidActionRepository is a mock implementation of RaidActionRepository
type MockRaidActionRepository struct {
	mock.Mock
}

func (m *MockRaidActionRepository) Schedule(ctx context.Context, action *entities.ScheduledRaidAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockRaidActionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.ScheduledRaidAction, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ScheduledRaidAction), args.Error(1)
}

func (m *MockRaidActionRepository) GetNextDueTime(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockRaidActionRepository) Complete(ctx context.Context, id int64, at time.Time) (entities.GuardResult, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(entities.GuardResult), args.Error(1)
}

func (m *MockRaidActionRepository) CancelForRaid(ctx context.Context, raidID int64) error {
	args := m.Called(ctx, raidID)
	return args.Error(0)
}

// MockGrantRepository is a mock implementation of GrantRepository
type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Grant(ctx context.Context, grant *entities.TemporaryGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockGrantRepository) ListActive(ctx context.Context, discordID int64, now time.Time) ([]*entities.TemporaryGrant, error) {
	args := m.Called(ctx, discordID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TemporaryGrant), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// InlineSavepointer runs savepoint bodies directly and counts how many were rolled back.
// Writes made through mocks are not undone; tests assert on the rollback count instead.
type InlineSavepointer struct {
	Calls      int
	RolledBack int
}

func (s *InlineSavepointer) WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	s.Calls++
	if err := fn(ctx); err != nil {
		s.RolledBack++
		return err
	}
	return nil
}

// ScriptedDice returns queued rolls and chance outcomes in order.
// Exhausted queues fall back to the lowest roll and no chance.
type ScriptedDice struct {
	Rolls   []int
	Chances []bool
}

func (d *ScriptedDice) Roll(sides int) int {
	if len(d.Rolls) == 0 {
		return 1
	}
	r := d.Rolls[0]
	d.Rolls = d.Rolls[1:]
	if r > sides {
		return sides
	}
	return r
}

func (d *ScriptedDice) Chance(percent int) bool {
	if len(d.Chances) == 0 {
		return false
	}
	c := d.Chances[0]
	d.Chances = d.Chances[1:]
	return c && percent > 0
}
