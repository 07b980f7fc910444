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

// cooldownService implements post-raid timing, shields and cooldown queries
type cooldownService struct {
	factionRepo    interfaces.FactionRepository
	memberRepo     interfaces.MemberRepository
	cooldownRepo   interfaces.CooldownRepository
	ledgerRepo     interfaces.LedgerRepository
	eventPublisher interfaces.EventPublisher
	now            clock
}

// NewCooldownService creates a new cooldown service
func NewCooldownService(
	factionRepo interfaces.FactionRepository,
	memberRepo interfaces.MemberRepository,
	cooldownRepo interfaces.CooldownRepository,
	ledgerRepo interfaces.LedgerRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.CooldownService {
	return &cooldownService{
		factionRepo:    factionRepo,
		memberRepo:     memberRepo,
		cooldownRepo:   cooldownRepo,
		ledgerRepo:     ledgerRepo,
		eventPublisher: eventPublisher,
		now:            systemClock,
	}
}

// ApplyPostRaid runs at settlement regardless of outcome
func (s *cooldownService) ApplyPostRaid(ctx context.Context, raid *entities.RaidRecord, attackerWon bool, defenderDestroyed bool) error {
	now := s.now()

	// The attacker is not locked during its own raid and may have been destroyed by a third party
	attacker, err := s.factionRepo.GetByTag(ctx, raid.AttackerTag)
	if err != nil {
		return fmt.Errorf("failed to get attacker: %w", err)
	}
	if attacker != nil {
		if err := s.cooldownRepo.SetLastRaid(ctx, raid.AttackerTag, now); err != nil {
			return fmt.Errorf("failed to set attacker cooldown: %w", err)
		}
	}

	if defenderDestroyed {
		return nil
	}

	shield := entities.ShieldAfterHeldDefense
	if attackerWon {
		shield = entities.ShieldAfterSuccessfulRaid
	}
	if err := s.cooldownRepo.SetShield(ctx, raid.DefenderTag, now.Add(shield)); err != nil {
		return fmt.Errorf("failed to set defender shield: %w", err)
	}
	if err := s.cooldownRepo.ReleaseRaidLock(ctx, raid.DefenderTag); err != nil {
		return fmt.Errorf("failed to release raid lock: %w", err)
	}

	log.WithFields(log.Fields{
		"raidID":      raid.ID,
		"defender":    raid.DefenderTag,
		"shieldHours": shield.Hours(),
	}).Debug("Post-raid cooldowns applied")
	return nil
}

// PurchaseShield extends the faction's shield by hours, charged per hour at the faction's tier
func (s *cooldownService) PurchaseShield(ctx context.Context, requesterID int64, hours int) (*entities.CooldownState, error) {
	if hours < entities.MinShieldPurchaseHours || hours > entities.MaxShieldPurchaseHours {
		return nil, entities.NewRejection(entities.RejectInvalidRequest, "shields last between %d and %d hours",
			entities.MinShieldPurchaseHours, entities.MaxShieldPurchaseHours)
	}

	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return nil, err
	}
	faction, err := s.factionRepo.GetByTag(ctx, membership.FactionTag)
	if err != nil {
		return nil, fmt.Errorf("failed to get faction: %w", err)
	}
	if faction == nil {
		return nil, entities.NewRejection(entities.RejectNotInFaction, "your faction no longer exists")
	}

	state, err := s.cooldownRepo.Get(ctx, faction.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get cooldown state: %w", err)
	}
	if state.IsUnderRaid {
		return nil, entities.NewRejection(entities.RejectTargetUnderRaid, "a shield cannot be raised while %s is under attack", faction.Tag)
	}

	cost := entities.ShieldPriceForTier(faction.Tier) * int64(hours)
	if !faction.CanAfford(cost) {
		return nil, entities.NewRejection(entities.RejectInsufficientFunds, "a %dh shield costs %s", hours, utils.FormatCrowns(cost))
	}

	debit, err := s.factionRepo.DebitTreasury(ctx, faction.Tag, cost)
	if err != nil {
		return nil, fmt.Errorf("failed to debit shield cost: %w", err)
	}
	if !debit.Applied() {
		return nil, entities.NewRejection(entities.RejectFundsChangedAtCommit, "%s's treasury changed before the shield could be bought", faction.Tag)
	}

	now := s.now()
	start := now
	if state.IsShielded(now) {
		start = *state.ShieldExpiresAt
	}
	expiresAt := start.Add(time.Duration(hours) * time.Hour)
	if err := s.cooldownRepo.SetShield(ctx, faction.Tag, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to set shield: %w", err)
	}
	state.ShieldExpiresAt = &expiresAt

	if err := utils.RecordTreasuryChange(ctx, s.ledgerRepo, s.eventPublisher, faction.Tag, debit,
		entities.EntryTypeShieldPurchase, nil, map[string]any{"hours": hours}); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.ShieldPurchasedEvent{
		FactionTag: faction.Tag,
		Hours:      hours,
		Cost:       cost,
		ExpiresAt:  expiresAt,
	}); err != nil {
		log.WithError(err).Error("Failed to publish shield purchased event")
	}

	return state, nil
}

// AttackerCooldownRemaining is zero when the faction may declare now
func (s *cooldownService) AttackerCooldownRemaining(ctx context.Context, tag string) (time.Duration, error) {
	faction, err := requireFaction(ctx, s.factionRepo, tag)
	if err != nil {
		return 0, err
	}
	state, err := s.cooldownRepo.Get(ctx, tag)
	if err != nil {
		return 0, fmt.Errorf("failed to get cooldown state: %w", err)
	}
	return state.RaidCooldownRemaining(faction.Attitude, faction.Tier, s.now()), nil
}
