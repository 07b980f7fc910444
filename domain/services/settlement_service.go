package services

import (
	"context"
	"errors"
	"fmt"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/interfaces"
	"guildwar/domain/utils"

	log "github.com/sirupsen/logrus"
)

var (
	errWagerCreditRejected = errors.New("wager credit rejected")
	errNoWagerPaid         = errors.New("no wager recipient could be paid")
)

// settlementService applies the economic outcome of a raid inside the caller's transaction
type settlementService struct {
	factionRepo     interfaces.FactionRepository
	memberRepo      interfaces.MemberRepository
	raidRepo        interfaces.RaidRepository
	bountyRepo      interfaces.BountyRepository
	ledgerRepo      interfaces.LedgerRepository
	grantRepo       interfaces.GrantRepository
	savepointer     interfaces.Savepointer
	cooldownService interfaces.CooldownService
	eventPublisher  interfaces.EventPublisher
	resolver        *BattleResolver
	correspondent   *WarCorrespondent
	dice            interfaces.Dice
	now             clock
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	factionRepo interfaces.FactionRepository,
	memberRepo interfaces.MemberRepository,
	raidRepo interfaces.RaidRepository,
	bountyRepo interfaces.BountyRepository,
	ledgerRepo interfaces.LedgerRepository,
	grantRepo interfaces.GrantRepository,
	relationshipRepo interfaces.RelationshipRepository,
	savepointer interfaces.Savepointer,
	cooldownService interfaces.CooldownService,
	eventPublisher interfaces.EventPublisher,
	dice interfaces.Dice,
) interfaces.SettlementService {
	return &settlementService{
		factionRepo:     factionRepo,
		memberRepo:      memberRepo,
		raidRepo:        raidRepo,
		bountyRepo:      bountyRepo,
		ledgerRepo:      ledgerRepo,
		grantRepo:       grantRepo,
		savepointer:     savepointer,
		cooldownService: cooldownService,
		eventPublisher:  eventPublisher,
		resolver:        NewBattleResolver(dice),
		correspondent:   NewWarCorrespondent(relationshipRepo, eventPublisher),
		dice:            dice,
		now:             systemClock,
	}
}

// SettleForfeit resolves a raid with an empty side. An empty attacker side
// (including both sides empty) is a defender victory; an empty defender side
// lets the attacker walk into the vault.
func (s *settlementService) SettleForfeit(ctx context.Context, roster *entities.RaidRoster) (*entities.SettlementSummary, error) {
	summary := s.newSummary(roster, true)

	if len(roster.Attackers) == 0 {
		summary.Outcome = entities.RaidOutcomeFailure
		summary.Notes = append(summary.Notes, "no attackers answered the call")
		if err := s.applyDefenderVictory(ctx, roster.Raid, summary, entities.EntryTypeForfeitReward); err != nil {
			return nil, err
		}
	} else {
		summary.Outcome = entities.RaidOutcomeSuccess
		summary.Notes = append(summary.Notes, "no defenders stood at the walls")
		if err := s.applyAttackerVictory(ctx, roster.Raid, summary, false); err != nil {
			return nil, err
		}
	}

	return s.finish(ctx, roster, summary)
}

// SettleBattle scores a contested raid and applies its outcome
func (s *settlementService) SettleBattle(ctx context.Context, roster *entities.RaidRoster) (*entities.SettlementSummary, error) {
	raid := roster.Raid
	summary := s.newSummary(roster, false)

	defender, err := s.factionRepo.GetByTag(ctx, raid.DefenderTag)
	if err != nil {
		return nil, fmt.Errorf("failed to get defender: %w", err)
	}
	if defender == nil {
		return nil, fmt.Errorf("defender %s of raid %d no longer exists", raid.DefenderTag, raid.ID)
	}

	summary.Battle = s.resolver.Resolve(roster, defender.Attitude)
	if summary.Battle.Cataclysm {
		summary.Notes = append(summary.Notes, "a cataclysm turned the assault back")
	}

	if summary.Battle.AttackerWins {
		summary.Outcome = entities.RaidOutcomeSuccess
		if err := s.applyAttackerVictory(ctx, raid, summary, true); err != nil {
			return nil, err
		}
	} else {
		summary.Outcome = entities.RaidOutcomeFailure
		if err := s.applyDefenderVictory(ctx, raid, summary, entities.EntryTypeDefenseReward); err != nil {
			return nil, err
		}
	}

	return s.finish(ctx, roster, summary)
}

func (s *settlementService) newSummary(roster *entities.RaidRoster, forfeit bool) *entities.SettlementSummary {
	return &entities.SettlementSummary{
		Raid:           roster.Raid,
		Forfeit:        forfeit,
		AttackerAllies: roster.Allies(entities.RaidSideAttacker),
		DefenderAllies: roster.Allies(entities.RaidSideDefender),
		Notes:          []string{},
	}
}

// applyAttackerVictory loots the defender, credits the attacker, claims any bounty and
// destroys a defender whose treasury hits zero. A contested battle also picks the
// defender's pockets and loses part of the haul on the way home.
func (s *settlementService) applyAttackerVictory(ctx context.Context, raid *entities.RaidRecord, summary *entities.SettlementSummary, contested bool) error {
	defender, err := s.factionRepo.GetByTag(ctx, raid.DefenderTag)
	if err != nil {
		return fmt.Errorf("failed to get defender: %w", err)
	}
	if defender == nil {
		return fmt.Errorf("defender %s of raid %d no longer exists", raid.DefenderTag, raid.ID)
	}

	loot := &entities.LootBreakdown{Vulnerable: defender.Treasury < entities.VulnerabilityThreshold}
	summary.Loot = loot

	if contested {
		if err := s.lootMembers(ctx, raid, defender, loot); err != nil {
			return err
		}
	}

	remaining, err := s.lootVault(ctx, raid, defender, loot)
	if err != nil {
		return err
	}

	loot.Gross = loot.VaultLoot + loot.MemberLoot
	if contested {
		loot.EscapeLossPercent = s.dice.Roll(10) + s.dice.Roll(10)
		loot.EscapeLoss = loot.Gross * int64(loot.EscapeLossPercent) / 100
	}
	loot.Net = loot.Gross - loot.EscapeLoss

	credited, err := s.creditTreasury(ctx, raid, raid.AttackerTag, loot.Net, entities.EntryTypeLootCollected, summary)
	if err != nil {
		return err
	}
	if credited {
		if err := s.claimBounty(ctx, raid, summary); err != nil {
			return err
		}
	}

	attackerDelta := entities.LeaderboardDelta{RaidsWon: 1, TotalLooted: loot.Net}
	if remaining <= 0 {
		if err := s.destroyFaction(ctx, raid, defender); err != nil {
			return err
		}
		summary.DefenderDestroyed = true
		attackerDelta.FactionsDestroyed = 1
	} else if err := s.factionRepo.ApplyLeaderboard(ctx, raid.DefenderTag, entities.LeaderboardDelta{DefensesLost: 1}); err != nil {
		return fmt.Errorf("failed to update defender leaderboard: %w", err)
	}

	return s.applyLeaderboard(ctx, raid.AttackerTag, attackerDelta)
}

// lootVault debits the vault share and returns the treasury left behind
func (s *settlementService) lootVault(ctx context.Context, raid *entities.RaidRecord, defender *entities.Faction, loot *entities.LootBreakdown) (int64, error) {
	loot.VaultPercent = entities.VulnerableVaultPercent
	if !loot.Vulnerable {
		loot.VaultPercent = entities.MitigatedVaultPercent(defender.Tier)
	}

	treasury := defender.Treasury
	take := vaultTake(treasury, loot.VaultPercent)
	if take == 0 {
		return treasury, nil
	}

	write, err := s.factionRepo.DebitTreasury(ctx, defender.Tag, take)
	if err != nil {
		return 0, fmt.Errorf("failed to loot vault: %w", err)
	}
	if !write.Applied() {
		// The treasury shrank since it was read; take what is there now
		current, err := s.factionRepo.GetByTag(ctx, defender.Tag)
		if err != nil {
			return 0, fmt.Errorf("failed to reload defender: %w", err)
		}
		if current == nil || current.Treasury <= 0 {
			return 0, nil
		}
		take = vaultTake(current.Treasury, loot.VaultPercent)
		write, err = s.factionRepo.DebitTreasury(ctx, defender.Tag, take)
		if err != nil {
			return 0, fmt.Errorf("failed to loot vault: %w", err)
		}
		if !write.Applied() {
			return 0, fmt.Errorf("vault of %s changed twice during settlement of raid %d", defender.Tag, raid.ID)
		}
	}

	loot.VaultLoot = take
	if err := utils.RecordTreasuryChange(ctx, s.ledgerRepo, s.eventPublisher, defender.Tag, write,
		entities.EntryTypeVaultLooted, &raid.ID, map[string]any{"attacker": raid.AttackerTag, "percent": loot.VaultPercent}); err != nil {
		return 0, err
	}
	return write.After, nil
}

// vaultTake applies the percent with the minimum-loot floor, never exceeding the treasury
func vaultTake(treasury int64, percent int) int64 {
	if treasury <= 0 {
		return 0
	}
	take := treasury * int64(percent) / 100
	if take < entities.MinVaultLoot {
		take = entities.MinVaultLoot
	}
	if take > treasury {
		take = treasury
	}
	return take
}

// lootMembers takes a share of each defender member's personal balance
func (s *settlementService) lootMembers(ctx context.Context, raid *entities.RaidRecord, defender *entities.Faction, loot *entities.LootBreakdown) error {
	members, err := s.memberRepo.ListByFaction(ctx, defender.Tag)
	if err != nil {
		return fmt.Errorf("failed to list defender members: %w", err)
	}

	for _, member := range members {
		take := memberTake(member.Balance, loot.Vulnerable)
		if take == 0 {
			continue
		}
		write, err := s.memberRepo.DebitBalance(ctx, member.DiscordID, take)
		if err != nil {
			return fmt.Errorf("failed to loot member %d: %w", member.DiscordID, err)
		}
		if !write.Applied() {
			log.WithFields(log.Fields{
				"raidID":    raid.ID,
				"discordID": member.DiscordID,
			}).Debug("Member balance changed before looting, skipping")
			continue
		}
		if err := utils.RecordBalanceChange(ctx, s.ledgerRepo, s.eventPublisher, member.DiscordID, write,
			entities.EntryTypeMemberLooted, &raid.ID, map[string]any{"attacker": raid.AttackerTag}); err != nil {
			return err
		}
		loot.MemberLoot += take
		loot.MembersRobbed++
	}
	return nil
}

func memberTake(balance int64, vulnerable bool) int64 {
	if balance <= 0 {
		return 0
	}
	if vulnerable {
		return balance * entities.VulnerableMemberPercent / 100
	}
	take := balance * entities.ProtectedMemberPercent / 100
	if take > entities.ProtectedMemberCap {
		take = entities.ProtectedMemberCap
	}
	return take
}

func (s *settlementService) claimBounty(ctx context.Context, raid *entities.RaidRecord, summary *entities.SettlementSummary) error {
	bounty, err := s.bountyRepo.GetActive(ctx, raid.DefenderTag)
	if err != nil {
		return fmt.Errorf("failed to get bounty: %w", err)
	}
	if bounty == nil {
		return nil
	}

	claimed, err := s.bountyRepo.Claim(ctx, bounty.ID, raid.AttackerTag, s.now())
	if err != nil {
		return fmt.Errorf("failed to claim bounty: %w", err)
	}
	if !claimed.Applied() {
		return nil
	}

	credited, err := s.creditTreasury(ctx, raid, raid.AttackerTag, bounty.Amount, entities.EntryTypeBountyClaimed, summary)
	if err != nil {
		return err
	}
	if credited {
		summary.BountyClaimed = bounty.Amount
	}
	return nil
}

// destroyFaction deletes a looted-out defender along with its memberships, cooldowns,
// relationships and any unclaimed bounty. Claimed bounties stay on record.
func (s *settlementService) destroyFaction(ctx context.Context, raid *entities.RaidRecord, defender *entities.Faction) error {
	members, err := s.memberRepo.ListByFaction(ctx, defender.Tag)
	if err != nil {
		return fmt.Errorf("failed to list members of destroyed faction: %w", err)
	}
	if err := s.bountyRepo.DeleteActive(ctx, defender.Tag); err != nil {
		return err
	}
	if err := s.factionRepo.Delete(ctx, defender.Tag); err != nil {
		return fmt.Errorf("failed to destroy faction: %w", err)
	}

	if err := s.eventPublisher.Publish(events.FactionDestroyedEvent{
		FactionTag:   defender.Tag,
		FactionName:  defender.Name,
		DestroyedBy:  raid.AttackerTag,
		RaidID:       raid.ID,
		MembersFreed: len(members),
	}); err != nil {
		log.WithError(err).Error("Failed to publish faction destroyed event")
	}

	log.WithFields(log.Fields{
		"raidID":      raid.ID,
		"faction":     defender.Tag,
		"destroyedBy": raid.AttackerTag,
	}).Warn("Faction destroyed")
	return nil
}

// applyDefenderVictory compensates the defender and decorates its members
func (s *settlementService) applyDefenderVictory(ctx context.Context, raid *entities.RaidRecord, summary *entities.SettlementSummary, entryType entities.EntryType) error {
	compensation := raid.RaidCost / 2
	credited, err := s.creditTreasury(ctx, raid, raid.DefenderTag, compensation, entryType, summary)
	if err != nil {
		return err
	}
	if credited {
		summary.DefenderCompensation = compensation
	}

	members, err := s.memberRepo.ListByFaction(ctx, raid.DefenderTag)
	if err != nil {
		return fmt.Errorf("failed to list defender members: %w", err)
	}
	now := s.now()
	for _, member := range members {
		if err := s.grantRepo.Grant(ctx, &entities.TemporaryGrant{
			DiscordID:  member.DiscordID,
			Kind:       entities.GrantSuccessfulDefender,
			FactionTag: raid.DefenderTag,
			ExpiresAt:  now.Add(entities.SuccessfulDefenderDuration),
			GrantedAt:  now,
		}); err != nil {
			return fmt.Errorf("failed to grant defender status: %w", err)
		}
	}

	if err := s.applyLeaderboard(ctx, raid.AttackerTag, entities.LeaderboardDelta{RaidsLost: 1}); err != nil {
		return err
	}
	return s.applyLeaderboard(ctx, raid.DefenderTag, entities.LeaderboardDelta{DefensesWon: 1})
}

// creditTreasury credits a faction and records it; false means the faction is gone
func (s *settlementService) creditTreasury(ctx context.Context, raid *entities.RaidRecord, tag string, amount int64, entryType entities.EntryType, summary *entities.SettlementSummary) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	write, err := s.factionRepo.CreditTreasury(ctx, tag, amount)
	if err != nil {
		return false, fmt.Errorf("failed to credit %s: %w", tag, err)
	}
	if !write.Applied() {
		summary.Notes = append(summary.Notes, fmt.Sprintf("%s no longer exists; %s went unclaimed", tag, utils.FormatCrowns(amount)))
		return false, nil
	}
	if err := utils.RecordTreasuryChange(ctx, s.ledgerRepo, s.eventPublisher, tag, write, entryType, &raid.ID, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (s *settlementService) applyLeaderboard(ctx context.Context, tag string, delta entities.LeaderboardDelta) error {
	if delta.IsZero() {
		return nil
	}
	if err := s.factionRepo.ApplyLeaderboard(ctx, tag, delta); err != nil {
		return fmt.Errorf("failed to update leaderboard for %s: %w", tag, err)
	}
	return nil
}

// distributeWagers splits the pool evenly among winning-side Opportunists. Each credit runs
// in its own savepoint; if none succeed the whole payout is undone and the pool is lost.
func (s *settlementService) distributeWagers(ctx context.Context, roster *entities.RaidRoster, summary *entities.SettlementSummary) error {
	raid := roster.Raid
	if raid.WagerPool <= 0 {
		return nil
	}

	winningSide := entities.RaidSideDefender
	if summary.AttackerWon() {
		winningSide = entities.RaidSideAttacker
	}

	var winners []string
	for _, p := range roster.Side(winningSide) {
		if p.Attitude == entities.AttitudeOpportunist {
			winners = append(winners, p.FactionTag)
		}
	}

	payout := &entities.WagerPayout{Pool: raid.WagerPool, Paid: []string{}, Failed: []string{}}
	summary.Wager = payout

	if len(winners) > 0 {
		payout.PerWinner = raid.WagerPool / int64(len(winners))
	}

	if payout.PerWinner == 0 {
		payout.Forfeited = raid.WagerPool
		summary.Notes = append(summary.Notes, "no opportunist on the winning side could collect the wager pool")
	} else {
		err := s.savepointer.WithSavepoint(ctx, func(ctx context.Context) error {
			for _, tag := range winners {
				if err := s.savepointer.WithSavepoint(ctx, func(ctx context.Context) error {
					return s.payWager(ctx, raid, tag, payout.PerWinner)
				}); err != nil {
					log.WithError(err).WithFields(log.Fields{
						"raidID":  raid.ID,
						"faction": tag,
					}).Warn("Wager payout failed")
					payout.Failed = append(payout.Failed, tag)
					continue
				}
				payout.Paid = append(payout.Paid, tag)
			}
			if len(payout.Paid) == 0 {
				return errNoWagerPaid
			}
			return nil
		})

		switch {
		case errors.Is(err, errNoWagerPaid):
			payout.LostToChaos = true
			payout.Forfeited = raid.WagerPool
			summary.Notes = append(summary.Notes, "the wager pool was lost to the chaos of war")
		case err != nil:
			return fmt.Errorf("failed to distribute wagers: %w", err)
		default:
			payout.Forfeited = raid.WagerPool - payout.PerWinner*int64(len(payout.Paid))
			if len(payout.Failed) > 0 {
				summary.Notes = append(summary.Notes, fmt.Sprintf("%d wager payouts could not be delivered", len(payout.Failed)))
			}
		}
	}

	if err := s.raidRepo.ZeroWagerPool(ctx, raid.ID); err != nil {
		return fmt.Errorf("failed to zero wager pool: %w", err)
	}
	return nil
}

func (s *settlementService) payWager(ctx context.Context, raid *entities.RaidRecord, tag string, amount int64) error {
	write, err := s.factionRepo.CreditTreasury(ctx, tag, amount)
	if err != nil {
		return err
	}
	if !write.Applied() {
		return errWagerCreditRejected
	}
	return utils.RecordTreasuryChange(ctx, s.ledgerRepo, s.eventPublisher, tag, write,
		entities.EntryTypeWagerPayout, &raid.ID, map[string]any{"pool": raid.WagerPool})
}

// finish pays wagers, writes the resolution, applies cooldowns and announces the result
func (s *settlementService) finish(ctx context.Context, roster *entities.RaidRoster, summary *entities.SettlementSummary) (*entities.SettlementSummary, error) {
	raid := roster.Raid
	now := s.now()

	if err := s.distributeWagers(ctx, roster, summary); err != nil {
		return nil, err
	}

	var stolen int64
	if summary.Loot != nil {
		stolen = summary.Loot.Net
	}

	resolved, err := s.raidRepo.Resolve(ctx, &entities.RaidResolution{
		RaidID:         raid.ID,
		Outcome:        summary.Outcome,
		Forfeit:        summary.Forfeit,
		StolenAmount:   stolen,
		AttackerAllies: summary.AttackerAllies,
		DefenderAllies: summary.DefenderAllies,
		ResolvedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve raid: %w", err)
	}
	if !resolved.Applied() {
		return nil, fmt.Errorf("raid %d was already resolved", raid.ID)
	}

	raid.Outcome = summary.Outcome
	raid.Forfeit = summary.Forfeit
	raid.StolenAmount = stolen
	raid.AttackerAllies = summary.AttackerAllies
	raid.DefenderAllies = summary.DefenderAllies
	raid.Phase = entities.RaidPhaseResolved
	raid.WagerPool = 0
	raid.ResolvedAt = &now

	if err := s.cooldownService.ApplyPostRaid(ctx, raid, summary.AttackerWon(), summary.DefenderDestroyed); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.RaidSettledEvent{Summary: summary}); err != nil {
		log.WithError(err).Error("Failed to publish raid settled event")
	}

	if _, err := s.correspondent.withClock(s.now).Dispatch(ctx, raid, events.DispatchStageSettled, summary.Outcome); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raidID":    raid.ID,
		"outcome":   summary.Outcome,
		"forfeit":   summary.Forfeit,
		"stolen":    stolen,
		"destroyed": summary.DefenderDestroyed,
	}).Info("Raid settled")

	return summary, nil
}
