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

// recruitmentService implements the alliance recruitment window
type recruitmentService struct {
	factionRepo      interfaces.FactionRepository
	memberRepo       interfaces.MemberRepository
	raidRepo         interfaces.RaidRepository
	participantRepo  interfaces.ParticipantRepository
	relationshipRepo interfaces.RelationshipRepository
	ledgerRepo       interfaces.LedgerRepository
	eventPublisher   interfaces.EventPublisher
	now              clock
}

// NewRecruitmentService creates a new recruitment service
func NewRecruitmentService(
	factionRepo interfaces.FactionRepository,
	memberRepo interfaces.MemberRepository,
	raidRepo interfaces.RaidRepository,
	participantRepo interfaces.ParticipantRepository,
	relationshipRepo interfaces.RelationshipRepository,
	ledgerRepo interfaces.LedgerRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.RecruitmentService {
	return &recruitmentService{
		factionRepo:      factionRepo,
		memberRepo:       memberRepo,
		raidRepo:         raidRepo,
		participantRepo:  participantRepo,
		relationshipRepo: relationshipRepo,
		ledgerRepo:       ledgerRepo,
		eventPublisher:   eventPublisher,
		now:              systemClock,
	}
}

// JoinRaid commits the requester's faction to a side. Every write is guarded so
// concurrent joins for the same raid interleave without a shared lock.
func (s *recruitmentService) JoinRaid(ctx context.Context, requesterID int64, raidID int64, side entities.RaidSide) (*interfaces.JoinResult, error) {
	now := s.now()

	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return nil, err
	}
	tag := membership.FactionTag

	raid, err := s.raidRepo.GetByID(ctx, raidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raid: %w", err)
	}
	if raid == nil {
		return nil, entities.NewRejection(entities.RejectRaidNotFound, "raid %d does not exist", raidID)
	}

	existing, err := s.participantRepo.Get(ctx, raid.ID, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	if existing != nil {
		return nil, entities.NewRejection(entities.RejectAlreadyParticipating, "%s already fights on the %s side", tag, existing.Side)
	}

	if !side.IsValid() {
		return nil, entities.NewRejection(entities.RejectInvalidSide, "unknown side %q", side)
	}
	if (tag == raid.AttackerTag && side != entities.RaidSideAttacker) || (tag == raid.DefenderTag && side != entities.RaidSideDefender) {
		return nil, entities.NewRejection(entities.RejectInvalidSide, "%s cannot fight against itself", tag)
	}

	if !raid.IsWindowOpen(now) {
		return nil, entities.NewRejection(entities.RejectRaidExpired, "recruitment for raid %d has closed", raid.ID)
	}

	faction, err := s.factionRepo.GetByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get faction: %w", err)
	}
	if faction == nil {
		return nil, entities.NewRejection(entities.RejectNotInFaction, "your faction no longer exists")
	}

	participant := &entities.RaidParticipant{
		RaidID:     raid.ID,
		FactionTag: tag,
		Side:       side,
		JoinedBy:   requesterID,
		JoinedAt:   now,
	}

	primary := raid.PrimaryFor(side)
	if tag != primary {
		formal, err := s.isFormalAlly(ctx, tag, primary, now)
		if err != nil {
			return nil, err
		}
		participant.FormalAlly = formal
		if !formal && faction.Attitude == entities.AttitudeOpportunist {
			participant.WagerAmount = entities.OpportunistWagerForTier(faction.Tier)
		}
	}

	var debit entities.BalanceWrite
	if participant.WagerAmount > 0 {
		if !faction.CanAfford(participant.WagerAmount) {
			return nil, entities.NewRejection(entities.RejectInsufficientFunds, "an opportunist stake of %s is required",
				utils.FormatCrowns(participant.WagerAmount))
		}
		debit, err = s.factionRepo.DebitTreasury(ctx, tag, participant.WagerAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to debit opportunist stake: %w", err)
		}
		if !debit.Applied() {
			return nil, entities.NewRejection(entities.RejectFundsChangedAtCommit, "%s's treasury changed before the stake could be placed", tag)
		}
	}

	added, err := s.participantRepo.AddIfOpen(ctx, participant, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}
	if !added.Applied() {
		return nil, s.explainRejectedJoin(ctx, raid.ID, tag)
	}

	if participant.WagerAmount > 0 {
		pooled, err := s.raidRepo.AddToWagerPool(ctx, raid.ID, participant.WagerAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to add stake to wager pool: %w", err)
		}
		if !pooled.Applied() {
			return nil, entities.NewRejection(entities.RejectRaidExpired, "raid %d resolved before the stake was placed", raid.ID)
		}
		if err := utils.RecordTreasuryChange(ctx, s.ledgerRepo, s.eventPublisher, tag, debit,
			entities.EntryTypeOpportunistStake, &raid.ID, map[string]any{"side": string(side)}); err != nil {
			return nil, err
		}
	}

	roster, err := s.GetRoster(ctx, raid.ID)
	if err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(RosterChangedEvent(roster, participant)); err != nil {
		log.WithError(err).Error("Failed to publish roster changed event")
	}

	log.WithFields(log.Fields{
		"raidID":     raid.ID,
		"faction":    tag,
		"side":       side,
		"formalAlly": participant.FormalAlly,
		"wager":      participant.WagerAmount,
	}).Info("Faction joined raid")

	return &interfaces.JoinResult{
		Participant: participant,
		Roster:      roster,
		Wagered:     participant.WagerAmount > 0,
	}, nil
}

// GetRoster returns the attacker and defender line-up
func (s *recruitmentService) GetRoster(ctx context.Context, raidID int64) (*entities.RaidRoster, error) {
	raid, err := s.raidRepo.GetByID(ctx, raidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raid: %w", err)
	}
	if raid == nil {
		return nil, entities.NewRejection(entities.RejectRaidNotFound, "raid %d does not exist", raidID)
	}
	participants, err := s.participantRepo.ListDetailsByRaid(ctx, raidID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return entities.NewRaidRoster(raid, participants), nil
}

func (s *recruitmentService) isFormalAlly(ctx context.Context, tag, primary string, now time.Time) (bool, error) {
	relationship, err := s.relationshipRepo.Get(ctx, entities.NewFactionPair(tag, primary))
	if err != nil {
		return false, fmt.Errorf("failed to get relationship with %s: %w", primary, err)
	}
	return relationship != nil && relationship.Status == entities.RelationshipAlliance && relationship.IsActive(now), nil
}

// explainRejectedJoin tells a lost insert race apart from a window that closed mid-request
func (s *recruitmentService) explainRejectedJoin(ctx context.Context, raidID int64, tag string) error {
	existing, err := s.participantRepo.Get(ctx, raidID, tag)
	if err != nil {
		return fmt.Errorf("failed to check participation: %w", err)
	}
	if existing != nil {
		return entities.NewRejection(entities.RejectAlreadyParticipating, "%s already joined this raid", tag)
	}
	return entities.NewRejection(entities.RejectRaidExpired, "recruitment for raid %d has closed", raidID)
}

// RosterChangedEvent builds a roster snapshot event for a join
func RosterChangedEvent(roster *entities.RaidRoster, joined *entities.RaidParticipant) events.RaidRosterChangedEvent {
	entries := func(side []*entities.ParticipantDetail) []events.RosterEntry {
		out := make([]events.RosterEntry, 0, len(side))
		for _, p := range side {
			out = append(out, events.RosterEntry{
				FactionTag:  p.FactionTag,
				FactionName: p.FactionName,
				Tier:        p.Tier,
				Attitude:    p.Attitude,
				WagerAmount: p.WagerAmount,
				FormalAlly:  p.FormalAlly,
			})
		}
		return out
	}
	return events.RaidRosterChangedEvent{
		RaidID:         roster.Raid.ID,
		JoinedTag:      joined.FactionTag,
		JoinedSide:     joined.Side,
		WagerAmount:    joined.WagerAmount,
		WagerPool:      roster.Raid.WagerPool,
		Attackers:      entries(roster.Attackers),
		Defenders:      entries(roster.Defenders),
		WindowClosesAt: roster.Raid.WindowClosesAt,
	}
}
