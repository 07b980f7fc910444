package services

import (
	"context"
	"fmt"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// WarCorrespondent tells allies and enemies of both combatants that a raid involves them
type WarCorrespondent struct {
	relationshipRepo interfaces.RelationshipRepository
	eventPublisher   interfaces.EventPublisher
	now              clock
}

// NewWarCorrespondent creates a new war correspondent
func NewWarCorrespondent(relationshipRepo interfaces.RelationshipRepository, eventPublisher interfaces.EventPublisher) *WarCorrespondent {
	return &WarCorrespondent{
		relationshipRepo: relationshipRepo,
		eventPublisher:   eventPublisher,
		now:              systemClock,
	}
}

// Dispatch publishes one WarDispatchEvent per (third party, combatant) relationship.
// Truces are not reported; only allies and enemies have a stake in the outcome.
func (c *WarCorrespondent) Dispatch(ctx context.Context, raid *entities.RaidRecord, stage events.DispatchStage, outcome entities.RaidOutcome) (int, error) {
	now := c.now()
	sent := 0

	subjects := []struct {
		tag  string
		side entities.RaidSide
	}{
		{raid.AttackerTag, entities.RaidSideAttacker},
		{raid.DefenderTag, entities.RaidSideDefender},
	}

	for _, subject := range subjects {
		relationships, err := c.relationshipRepo.ListForFaction(ctx, subject.tag)
		if err != nil {
			return sent, fmt.Errorf("failed to list relationships for %s: %w", subject.tag, err)
		}
		for _, rel := range relationships {
			if !rel.IsActive(now) || rel.Status == entities.RelationshipTruce {
				continue
			}
			recipient := rel.Pair().Other(subject.tag)
			if recipient == raid.AttackerTag || recipient == raid.DefenderTag {
				continue
			}
			c.publish(events.WarDispatchEvent{
				RaidID:       raid.ID,
				RecipientTag: recipient,
				SubjectTag:   subject.tag,
				Relation:     rel.Status,
				SubjectSide:  subject.side,
				Stage:        stage,
				AttackerTag:  raid.AttackerTag,
				DefenderTag:  raid.DefenderTag,
				Outcome:      outcome,
			})
			sent++
		}
	}

	if sent > 0 {
		log.WithFields(log.Fields{
			"raidID":     raid.ID,
			"stage":      stage,
			"dispatches": sent,
		}).Debug("War correspondent dispatched")
	}
	return sent, nil
}

func (c *WarCorrespondent) publish(event events.WarDispatchEvent) {
	if err := c.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("recipient", event.RecipientTag).Error("Failed to publish war dispatch")
	}
}

// withClock is used by services that share their clock with the correspondent
func (c *WarCorrespondent) withClock(now func() time.Time) *WarCorrespondent {
	c.now = now
	return c
}
