package services

import (
	"context"
	"fmt"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/interfaces"
	"guildwar/domain/utils"

	log "github.com/sirupsen/logrus"
)

// bountyService implements bounty placement
type bountyService struct {
	factionRepo    interfaces.FactionRepository
	memberRepo     interfaces.MemberRepository
	bountyRepo     interfaces.BountyRepository
	ledgerRepo     interfaces.LedgerRepository
	eventPublisher interfaces.EventPublisher
	now            clock
}

// NewBountyService creates a new bounty service
func NewBountyService(
	factionRepo interfaces.FactionRepository,
	memberRepo interfaces.MemberRepository,
	bountyRepo interfaces.BountyRepository,
	ledgerRepo interfaces.LedgerRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.BountyService {
	return &bountyService{
		factionRepo:    factionRepo,
		memberRepo:     memberRepo,
		bountyRepo:     bountyRepo,
		ledgerRepo:     ledgerRepo,
		eventPublisher: eventPublisher,
		now:            systemClock,
	}
}

// PlaceBounty escrows amount from the requester's treasury against the target.
// Only one active bounty may stand on a faction at a time.
func (s *bountyService) PlaceBounty(ctx context.Context, requesterID int64, targetTag string, amount int64) (*entities.Bounty, error) {
	if amount < entities.MinBountyAmount {
		return nil, entities.NewRejection(entities.RejectInvalidRequest, "bounties start at %s", utils.FormatCrowns(entities.MinBountyAmount))
	}

	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return nil, err
	}
	target, err := requireFaction(ctx, s.factionRepo, targetTag)
	if err != nil {
		return nil, err
	}
	if target.Tag == membership.FactionTag {
		return nil, entities.NewRejection(entities.RejectSelfTarget, "a faction cannot put a bounty on itself")
	}

	placer, err := s.factionRepo.GetByTag(ctx, membership.FactionTag)
	if err != nil {
		return nil, fmt.Errorf("failed to get faction: %w", err)
	}
	if placer == nil {
		return nil, entities.NewRejection(entities.RejectNotInFaction, "your faction no longer exists")
	}
	if !placer.CanAfford(amount) {
		return nil, entities.NewRejection(entities.RejectInsufficientFunds, "%s holds only %s", placer.Tag, utils.FormatCrowns(placer.Treasury))
	}

	debit, err := s.factionRepo.DebitTreasury(ctx, placer.Tag, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit bounty: %w", err)
	}
	if !debit.Applied() {
		return nil, entities.NewRejection(entities.RejectFundsChangedAtCommit, "%s's treasury changed before the bounty could be placed", placer.Tag)
	}

	bounty := &entities.Bounty{
		TargetTag: target.Tag,
		PlacerTag: placer.Tag,
		Amount:    amount,
		Status:    entities.BountyStatusActive,
		CreatedAt: s.now(),
	}
	created, err := s.bountyRepo.Create(ctx, bounty)
	if err != nil {
		return nil, fmt.Errorf("failed to create bounty: %w", err)
	}
	if !created.Applied() {
		return nil, entities.NewRejection(entities.RejectBountyExists, "%s already has a price on its head", target.Tag)
	}

	if err := utils.RecordTreasuryChange(ctx, s.ledgerRepo, s.eventPublisher, placer.Tag, debit,
		entities.EntryTypeBountyPlaced, nil, map[string]any{"target": target.Tag, "bounty_id": bounty.ID}); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.BountyPlacedEvent{
		BountyID:  bounty.ID,
		TargetTag: target.Tag,
		PlacerTag: placer.Tag,
		Amount:    amount,
	}); err != nil {
		log.WithError(err).Error("Failed to publish bounty placed event")
	}

	log.WithFields(log.Fields{
		"bountyID": bounty.ID,
		"target":   target.Tag,
		"placer":   placer.Tag,
		"amount":   amount,
	}).Info("Bounty placed")

	return bounty, nil
}
