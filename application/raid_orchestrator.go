package application

import (
	"context"
	"fmt"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultNarrationDelay is the pause between narrative phase announcements
	DefaultNarrationDelay = 45 * time.Second

	abortReasonFailed    = "settlement_failed"
	abortReasonRestarted = "interrupted_by_restart"
)

// abortCharges states what an aborted raid cost; nothing is refunded
const abortCharges = "The attacker's raid cost and any Opportunist stakes are spent and not refunded. " +
	"No loot, bounty or compensation was paid out."

// abortMessages are shown to players in the indeterminate-outcome notice
var abortMessages = map[string]string{
	abortReasonFailed:    "The fog of war swallowed the battlefield and no victor could be determined. " + abortCharges,
	abortReasonRestarted: "The battle was interrupted before a victor could be determined. " + abortCharges,
}

// RaidOrchestrator drives each raid along its persisted timeline:
// recruitment close, forfeit check, narrative phases and settlement.
type RaidOrchestrator struct {
	uowFactory        UnitOfWorkFactory
	dice              interfaces.Dice
	metrics           RaidMetrics
	narrationDelay    time.Duration
	recruitmentWindow time.Duration
	now               func() time.Time
}

// NewRaidOrchestrator creates a new raid orchestrator
func NewRaidOrchestrator(uowFactory UnitOfWorkFactory, dice interfaces.Dice, metrics RaidMetrics, narrationDelay, recruitmentWindow time.Duration) *RaidOrchestrator {
	if narrationDelay <= 0 {
		narrationDelay = DefaultNarrationDelay
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RaidOrchestrator{
		uowFactory:        uowFactory,
		dice:              dice,
		metrics:           metrics,
		narrationDelay:    narrationDelay,
		recruitmentWindow: recruitmentWindow,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// HandleAction runs one scheduled action in its own transaction. Any failure
// after the action was claimed rolls the transaction back and takes the raid
// down the abort path.
func (o *RaidOrchestrator) HandleAction(ctx context.Context, action *entities.ScheduledRaidAction) error {
	kind := string(action.Kind)

	uow := o.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := o.now()
	claimed, err := uow.RaidActionRepository().Complete(ctx, action.ID, now)
	if err != nil {
		return fmt.Errorf("failed to claim raid action %d: %w", action.ID, err)
	}
	if !claimed.Applied() {
		o.metrics.RecordActionProcessed(kind, ActionSkipped)
		return nil
	}

	raid, err := uow.RaidRepository().GetByID(ctx, action.RaidID)
	if err != nil {
		return fmt.Errorf("failed to get raid %d: %w", action.RaidID, err)
	}
	if raid == nil || !raid.IsPending() {
		log.WithFields(log.Fields{
			"actionID": action.ID,
			"raidID":   action.RaidID,
		}).Warn("Skipping action for a raid that is no longer pending")
		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		o.metrics.RecordActionProcessed(kind, ActionSkipped)
		return nil
	}

	svc := newRaidServices(uow, o.dice, o.recruitmentWindow)

	var summary *entities.SettlementSummary
	started := time.Now()
	switch action.Kind {
	case entities.RaidActionCloseRecruitment:
		summary, err = o.closeRecruitment(ctx, uow, svc, raid, now)
	case entities.RaidActionAdvancePhase:
		summary, err = o.advancePhase(ctx, uow, svc, raid, now)
	default:
		err = fmt.Errorf("unknown raid action kind %q", action.Kind)
	}

	if err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Failed to roll back raid action")
		}
		o.metrics.RecordActionProcessed(kind, ActionFailed)
		log.WithFields(log.Fields{
			"raidID": raid.ID,
			"action": kind,
			"phase":  raid.Phase,
		}).WithError(err).Error("Raid action failed, aborting raid")

		if abortErr := o.abort(ctx, raid, abortReasonFailed); abortErr != nil {
			log.WithError(abortErr).WithField("raidID", raid.ID).Error("Failed to abort raid")
		}
		return fmt.Errorf("raid %d %s failed: %w", raid.ID, kind, err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	o.metrics.RecordActionProcessed(kind, ActionDone)
	if summary != nil {
		o.metrics.RecordRaidSettled(string(summary.Outcome), summary.Forfeit, time.Since(started))
	}
	return nil
}

// closeRecruitment ends the window and either settles a forfeit or starts the narration
func (o *RaidOrchestrator) closeRecruitment(ctx context.Context, uow UnitOfWork, svc *raidServices, raid *entities.RaidRecord, now time.Time) (*entities.SettlementSummary, error) {
	if raid.Phase != entities.RaidPhaseAwaitingParticipants {
		log.WithFields(log.Fields{
			"raidID": raid.ID,
			"phase":  raid.Phase,
		}).Warn("Recruitment close found the raid past recruitment")
		return nil, nil
	}

	moved, err := uow.RaidRepository().TransitionPhase(ctx, raid.ID, raid.Phase, entities.RaidPhaseForfeitCheck, nil)
	if err != nil {
		return nil, err
	}
	if !moved.Applied() {
		return nil, nil
	}
	o.publishPhase(uow, raid, entities.RaidPhaseAwaitingParticipants, entities.RaidPhaseForfeitCheck, nil)
	raid.Phase = entities.RaidPhaseForfeitCheck

	roster, err := svc.recruitment.GetRoster(ctx, raid.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	log.WithFields(log.Fields{
		"raidID":    raid.ID,
		"attackers": len(roster.Attackers),
		"defenders": len(roster.Defenders),
	}).Info("Recruitment window closed")

	if roster.IsForfeit() {
		return svc.settlement.SettleForfeit(ctx, roster)
	}
	return nil, o.enterPhase(ctx, uow, raid, entities.RaidPhaseNarratingApproach, now)
}

// advancePhase moves to the next narrative phase, settling the battle after the assault
func (o *RaidOrchestrator) advancePhase(ctx context.Context, uow UnitOfWork, svc *raidServices, raid *entities.RaidRecord, now time.Time) (*entities.SettlementSummary, error) {
	if !raid.Phase.IsNarrating() {
		log.WithFields(log.Fields{
			"raidID": raid.ID,
			"phase":  raid.Phase,
		}).Warn("Phase advance found the raid outside narration")
		return nil, nil
	}

	if next, ok := raid.Phase.NextNarrationPhase(); ok {
		return nil, o.enterPhase(ctx, uow, raid, next, now)
	}

	roster, err := svc.recruitment.GetRoster(ctx, raid.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	return svc.settlement.SettleBattle(ctx, roster)
}

// enterPhase moves the raid into a narrative phase and schedules the next step
func (o *RaidOrchestrator) enterPhase(ctx context.Context, uow UnitOfWork, raid *entities.RaidRecord, next entities.RaidPhase, now time.Time) error {
	nextPhaseAt := now.Add(o.narrationDelay)
	from := raid.Phase

	moved, err := uow.RaidRepository().TransitionPhase(ctx, raid.ID, from, next, &nextPhaseAt)
	if err != nil {
		return err
	}
	if !moved.Applied() {
		return fmt.Errorf("raid %d left phase %s concurrently", raid.ID, from)
	}

	if err := uow.RaidActionRepository().Schedule(ctx, &entities.ScheduledRaidAction{
		RaidID:    raid.ID,
		Kind:      entities.RaidActionAdvancePhase,
		DueAt:     nextPhaseAt,
		Status:    entities.RaidActionStatusPending,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to schedule phase advance: %w", err)
	}

	raid.Phase = next
	raid.NextPhaseAt = &nextPhaseAt
	o.publishPhase(uow, raid, from, next, &nextPhaseAt)

	log.WithFields(log.Fields{
		"raidID":      raid.ID,
		"phase":       next,
		"nextPhaseAt": nextPhaseAt,
	}).Info("Raid entered narrative phase")
	return nil
}

func (o *RaidOrchestrator) publishPhase(uow UnitOfWork, raid *entities.RaidRecord, from, to entities.RaidPhase, nextPhaseAt *time.Time) {
	if err := uow.EventBus().Publish(events.RaidPhaseChangedEvent{
		RaidID:      raid.ID,
		AttackerTag: raid.AttackerTag,
		DefenderTag: raid.DefenderTag,
		OldPhase:    from,
		NewPhase:    to,
		NextPhaseAt: nextPhaseAt,
	}); err != nil {
		log.WithError(err).Error("Failed to publish raid phase changed event")
	}
}

// abort forces an indeterminate raid to failure in a fresh transaction. It
// releases the target, purges the roster and cancels the rest of the timeline.
// Nothing is refunded.
func (o *RaidOrchestrator) abort(ctx context.Context, raid *entities.RaidRecord, reason string) error {
	ctx = context.WithoutCancel(ctx)

	uow := o.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	aborted, err := uow.RaidRepository().Abort(ctx, raid.ID, o.now())
	if err != nil {
		return err
	}
	if !aborted.Applied() {
		return nil
	}

	if err := uow.CooldownRepository().ReleaseRaidLock(ctx, raid.DefenderTag); err != nil {
		return fmt.Errorf("failed to release raid lock: %w", err)
	}
	if err := uow.ParticipantRepository().DeleteByRaid(ctx, raid.ID); err != nil {
		return fmt.Errorf("failed to purge participants: %w", err)
	}
	if err := uow.RaidActionRepository().CancelForRaid(ctx, raid.ID); err != nil {
		return fmt.Errorf("failed to cancel raid actions: %w", err)
	}

	if err := uow.EventBus().Publish(events.RaidAbortedEvent{
		RaidID:      raid.ID,
		AttackerTag: raid.AttackerTag,
		DefenderTag: raid.DefenderTag,
		Reason:      abortMessages[reason],
	}); err != nil {
		log.WithError(err).Error("Failed to publish raid aborted event")
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit abort: %w", err)
	}

	o.metrics.RecordRaidAborted(reason)
	log.WithFields(log.Fields{
		"raidID":   raid.ID,
		"attacker": raid.AttackerTag,
		"defender": raid.DefenderTag,
		"reason":   reason,
	}).Warn("Raid aborted")
	return nil
}

// RecoverInterruptedRaids aborts raids that were past recruitment when the
// process stopped. Raids still recruiting resume from their persisted close action.
func (o *RaidOrchestrator) RecoverInterruptedRaids(ctx context.Context) (int, error) {
	uow := o.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	raids, err := uow.RaidRepository().ListInPhases(ctx,
		entities.RaidPhaseForfeitCheck,
		entities.RaidPhaseNarratingApproach,
		entities.RaidPhaseNarratingStance,
		entities.RaidPhaseNarratingAssault,
	)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list interrupted raids: %w", err)
	}

	recovered := 0
	for _, raid := range raids {
		if err := o.abort(ctx, raid, abortReasonRestarted); err != nil {
			log.WithError(err).WithField("raidID", raid.ID).Error("Failed to abort interrupted raid")
			continue
		}
		recovered++
	}

	if recovered > 0 {
		log.WithField("count", recovered).Warn("Aborted raids interrupted by restart")
	}
	return recovered, nil
}
