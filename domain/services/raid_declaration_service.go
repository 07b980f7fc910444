package services

import (
	"context"
	"fmt"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/interfaces"
	"guildwar/domain/utils"

	log "github.com/sirupsen/logrus"
)

// raidDeclarationService implements raid validation and commitment
type raidDeclarationService struct {
	factionRepo       interfaces.FactionRepository
	memberRepo        interfaces.MemberRepository
	cooldownRepo      interfaces.CooldownRepository
	raidRepo          interfaces.RaidRepository
	actionRepo        interfaces.RaidActionRepository
	bountyRepo        interfaces.BountyRepository
	relationshipRepo  interfaces.RelationshipRepository
	ledgerRepo        interfaces.LedgerRepository
	eventPublisher    interfaces.EventPublisher
	correspondent     *WarCorrespondent
	recruitmentWindow time.Duration
	now               clock
}

// NewRaidDeclarationService creates a new raid declaration service
func NewRaidDeclarationService(
	factionRepo interfaces.FactionRepository,
	memberRepo interfaces.MemberRepository,
	cooldownRepo interfaces.CooldownRepository,
	raidRepo interfaces.RaidRepository,
	actionRepo interfaces.RaidActionRepository,
	bountyRepo interfaces.BountyRepository,
	relationshipRepo interfaces.RelationshipRepository,
	ledgerRepo interfaces.LedgerRepository,
	eventPublisher interfaces.EventPublisher,
	recruitmentWindow time.Duration,
) interfaces.RaidDeclarationService {
	if recruitmentWindow <= 0 {
		recruitmentWindow = entities.RecruitmentWindow
	}
	return &raidDeclarationService{
		factionRepo:       factionRepo,
		memberRepo:        memberRepo,
		cooldownRepo:      cooldownRepo,
		raidRepo:          raidRepo,
		actionRepo:        actionRepo,
		bountyRepo:        bountyRepo,
		relationshipRepo:  relationshipRepo,
		ledgerRepo:        ledgerRepo,
		eventPublisher:    eventPublisher,
		correspondent:     NewWarCorrespondent(relationshipRepo, eventPublisher),
		recruitmentWindow: recruitmentWindow,
		now:               systemClock,
	}
}

// declarationCheck holds everything validation loaded so the commit step does not reload it
type declarationCheck struct {
	membership       *entities.Membership
	attacker         *entities.Faction
	target           *entities.Faction
	attackerCooldown *entities.CooldownState
	cost             int64
}

// PreviewRaid is the confirmable step; nothing is written
func (s *raidDeclarationService) PreviewRaid(ctx context.Context, requesterID int64, targetTag string) (*interfaces.RaidPreview, error) {
	check, err := s.validate(ctx, requesterID, targetTag, s.now())
	if err != nil {
		return nil, err
	}

	preview := &interfaces.RaidPreview{
		Attacker:       check.attacker,
		Defender:       check.target,
		Cost:           check.cost,
		TreasuryAfter:  check.attacker.Treasury - check.cost,
		WindowDuration: s.recruitmentWindow,
	}

	bounty, err := s.bountyRepo.GetActive(ctx, check.target.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounty: %w", err)
	}
	if bounty != nil {
		preview.DefenderBounty = bounty.Amount
	}

	return preview, nil
}

// DeclareRaid re-validates then debits, locks, and opens recruitment in the caller's transaction
func (s *raidDeclarationService) DeclareRaid(ctx context.Context, requesterID int64, targetTag string) (*entities.RaidRecord, error) {
	now := s.now()
	check, err := s.validate(ctx, requesterID, targetTag, now)
	if err != nil {
		return nil, err
	}
	attacker, target := check.attacker, check.target

	debit, err := s.factionRepo.DebitTreasury(ctx, attacker.Tag, check.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to debit raid cost: %w", err)
	}
	if !debit.Applied() {
		log.WithFields(log.Fields{
			"attacker": attacker.Tag,
			"cost":     check.cost,
		}).Warn("Raid cost debit lost a race")
		return nil, entities.NewRejection(entities.RejectFundsChangedAtCommit, "%s's treasury changed before the raid could be declared", attacker.Tag)
	}

	lock, err := s.cooldownRepo.AcquireRaidLock(ctx, target.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to lock raid target: %w", err)
	}
	if !lock.Applied() {
		return nil, entities.NewRejection(entities.RejectTargetUnderRaid, "%s came under attack from another faction first", target.Tag)
	}

	// Declaring a raid forfeits the attacker's own shield
	if check.attackerCooldown.ShieldExpiresAt != nil {
		if err := s.cooldownRepo.ClearShield(ctx, attacker.Tag); err != nil {
			return nil, fmt.Errorf("failed to clear attacker shield: %w", err)
		}
	}

	raid := &entities.RaidRecord{
		AttackerTag:    attacker.Tag,
		DefenderTag:    target.Tag,
		DeclaredBy:     requesterID,
		AttackerTier:   attacker.Tier,
		DefenderTier:   target.Tier,
		RaidCost:       check.cost,
		DeclaredAt:     now,
		WindowClosesAt: now.Add(s.recruitmentWindow),
		Phase:          entities.RaidPhaseAwaitingParticipants,
		Outcome:        entities.RaidOutcomePending,
		AttackerAllies: []string{},
		DefenderAllies: []string{},
	}
	if err := s.raidRepo.Create(ctx, raid); err != nil {
		return nil, fmt.Errorf("failed to create raid record: %w", err)
	}

	action := &entities.ScheduledRaidAction{
		RaidID:    raid.ID,
		Kind:      entities.RaidActionCloseRecruitment,
		DueAt:     raid.WindowClosesAt,
		Status:    entities.RaidActionStatusPending,
		CreatedAt: now,
	}
	if err := s.actionRepo.Schedule(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to schedule recruitment close: %w", err)
	}

	if err := utils.RecordTreasuryChange(ctx, s.ledgerRepo, s.eventPublisher, attacker.Tag, debit,
		entities.EntryTypeRaidDeclaration, &raid.ID, map[string]any{"target": target.Tag}); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.RaidDeclaredEvent{
		RaidID:         raid.ID,
		AttackerTag:    attacker.Tag,
		DefenderTag:    target.Tag,
		DeclaredBy:     requesterID,
		RaidCost:       check.cost,
		WindowClosesAt: raid.WindowClosesAt,
	}); err != nil {
		log.WithError(err).Error("Failed to publish raid declared event")
	}

	if _, err := s.correspondent.withClock(s.now).Dispatch(ctx, raid, events.DispatchStageDeclared, entities.RaidOutcomePending); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raidID":         raid.ID,
		"attacker":       attacker.Tag,
		"defender":       target.Tag,
		"cost":           check.cost,
		"windowClosesAt": raid.WindowClosesAt,
	}).Info("Raid declared")

	return raid, nil
}

// validate runs every declaration precondition in order; each failure is a distinct rejection
func (s *raidDeclarationService) validate(ctx context.Context, requesterID int64, targetTag string, now time.Time) (*declarationCheck, error) {
	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return nil, err
	}

	target, err := requireFaction(ctx, s.factionRepo, targetTag)
	if err != nil {
		return nil, err
	}
	if target.Tag == membership.FactionTag {
		return nil, entities.NewRejection(entities.RejectSelfTarget, "a faction cannot raid itself")
	}

	if err := checkWarPermitted(ctx, s.relationshipRepo, membership.FactionTag, target.Tag, now); err != nil {
		return nil, err
	}

	targetCooldown, err := s.cooldownRepo.Get(ctx, target.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get target cooldown: %w", err)
	}
	if targetCooldown.IsUnderRaid {
		return nil, entities.NewRejection(entities.RejectTargetUnderRaid, "%s is already under attack", target.Tag)
	}
	if target.IsImmune(now) {
		return nil, entities.NewRejection(entities.RejectTargetImmune, "%s is newly founded and immune until %s",
			target.Tag, target.ImmunityEndsAt().Format(time.RFC3339))
	}
	if targetCooldown.IsShielded(now) {
		return nil, entities.NewRejection(entities.RejectTargetShielded, "%s is shielded for another %s",
			target.Tag, utils.FormatWait(targetCooldown.ShieldExpiresAt.Sub(now)))
	}

	attacker, err := s.factionRepo.GetByTag(ctx, membership.FactionTag)
	if err != nil {
		return nil, fmt.Errorf("failed to get attacking faction: %w", err)
	}
	if attacker == nil {
		return nil, entities.NewRejection(entities.RejectNotInFaction, "your faction no longer exists")
	}

	cost := attacker.RaidCost()
	if !attacker.CanAfford(cost) {
		return nil, entities.NewRejection(entities.RejectInsufficientFunds, "declaring a raid costs %s but %s holds %s",
			utils.FormatCrowns(cost), attacker.Tag, utils.FormatCrowns(attacker.Treasury))
	}

	attackerCooldown, err := s.cooldownRepo.Get(ctx, attacker.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get attacker cooldown: %w", err)
	}
	if remaining := attackerCooldown.RaidCooldownRemaining(attacker.Attitude, attacker.Tier, now); remaining > 0 {
		return nil, entities.NewRejection(entities.RejectAttackerOnCooldown, "%s can raid again in %s", attacker.Tag, utils.FormatWait(remaining))
	}

	return &declarationCheck{
		membership:       membership,
		attacker:         attacker,
		target:           target,
		attackerCooldown: attackerCooldown,
		cost:             cost,
	}, nil
}
