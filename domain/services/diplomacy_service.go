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

// diplomacyService implements relationship management and the war gate
type diplomacyService struct {
	factionRepo      interfaces.FactionRepository
	memberRepo       interfaces.MemberRepository
	relationshipRepo interfaces.RelationshipRepository
	proposalRepo     interfaces.ProposalRepository
	eventPublisher   interfaces.EventPublisher
	now              clock
}

// NewDiplomacyService creates a new diplomacy service
func NewDiplomacyService(
	factionRepo interfaces.FactionRepository,
	memberRepo interfaces.MemberRepository,
	relationshipRepo interfaces.RelationshipRepository,
	proposalRepo interfaces.ProposalRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.DiplomacyService {
	return &diplomacyService{
		factionRepo:      factionRepo,
		memberRepo:       memberRepo,
		relationshipRepo: relationshipRepo,
		proposalRepo:     proposalRepo,
		eventPublisher:   eventPublisher,
		now:              systemClock,
	}
}

// CheckWarPermitted has no side effects
func (s *diplomacyService) CheckWarPermitted(ctx context.Context, attackerTag, targetTag string) error {
	return checkWarPermitted(ctx, s.relationshipRepo, attackerTag, targetTag, s.now())
}

func checkWarPermitted(ctx context.Context, relationshipRepo interfaces.RelationshipRepository, attackerTag, targetTag string, now time.Time) error {
	pair := entities.NewFactionPair(attackerTag, targetTag)

	relationship, err := relationshipRepo.Get(ctx, pair)
	if err != nil {
		return fmt.Errorf("failed to get relationship: %w", err)
	}
	if relationship != nil && relationship.IsActive(now) {
		switch relationship.Status {
		case entities.RelationshipAlliance:
			return entities.NewRejection(entities.RejectAllianceProtected, "%s and %s are allied", attackerTag, targetTag)
		case entities.RelationshipTruce:
			return entities.NewRejection(entities.RejectTruceActive, "%s and %s are under truce", attackerTag, targetTag)
		}
	}

	pact, err := relationshipRepo.GetCooldown(ctx, pair, entities.DiplomacyCooldownAllianceBreak)
	if err != nil {
		return fmt.Errorf("failed to get non-aggression cooldown: %w", err)
	}
	if pact != nil && pact.IsActive(now) {
		return entities.NewRejection(entities.RejectNonAggressionPact, "%s and %s are bound by a non-aggression pact until %s",
			attackerTag, targetTag, pact.ExpiresAt.Format(time.RFC3339))
	}

	return nil
}

// DeclareEnemy marks the target faction as an enemy
func (s *diplomacyService) DeclareEnemy(ctx context.Context, requesterID int64, targetTag string) (*entities.Relationship, error) {
	membership, target, err := s.resolveCounterparty(ctx, requesterID, targetTag)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if target.Attitude == entities.AttitudeNeutral {
		return nil, entities.NewRejection(entities.RejectNeutralExempt, "%s is neutral and cannot be declared an enemy", target.Tag)
	}

	pair := entities.NewFactionPair(membership.FactionTag, target.Tag)
	existing, err := s.relationshipRepo.Get(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	if existing != nil && existing.IsActive(now) {
		switch existing.Status {
		case entities.RelationshipAlliance:
			return nil, entities.NewRejection(entities.RejectAllianceProtected, "%s is your ally", target.Tag)
		case entities.RelationshipTruce:
			return nil, entities.NewRejection(entities.RejectTruceActive, "you are under truce with %s", target.Tag)
		}
	}

	cooldown, err := s.relationshipRepo.GetCooldown(ctx, pair, entities.DiplomacyCooldownEnemyRedeclare)
	if err != nil {
		return nil, fmt.Errorf("failed to get redeclare cooldown: %w", err)
	}
	if cooldown != nil && cooldown.IsActive(now) {
		return nil, entities.NewRejection(entities.RejectDiplomacyCooldownActive, "cannot declare %s an enemy again until %s",
			target.Tag, cooldown.ExpiresAt.Format(time.RFC3339))
	}

	if existing != nil && existing.Status == entities.RelationshipEnemy {
		return nil, entities.NewRejection(entities.RejectRelationshipExists, "%s is already your enemy", target.Tag)
	}

	relationship := &entities.Relationship{
		TagA:         pair.A,
		TagB:         pair.B,
		Status:       entities.RelationshipEnemy,
		InitiatorTag: membership.FactionTag,
		CreatedAt:    now,
	}
	if err := s.relationshipRepo.Upsert(ctx, relationship); err != nil {
		return nil, fmt.Errorf("failed to save enemy declaration: %w", err)
	}

	s.publish(events.DiplomacyChangedEvent{
		ActorTag:  membership.FactionTag,
		TargetTag: target.Tag,
		Action:    events.DiplomacyActionEnemyDeclared,
		Status:    entities.RelationshipEnemy,
	})

	log.WithFields(log.Fields{
		"actor":  membership.FactionTag,
		"target": target.Tag,
	}).Info("Enemy declared")

	return relationship, nil
}

// OfferRelationship creates a pending alliance or truce proposal
func (s *diplomacyService) OfferRelationship(ctx context.Context, requesterID int64, targetTag string, kind entities.ProposalKind, truceHours int) (*entities.DiplomacyProposal, error) {
	switch kind {
	case entities.ProposalAlliance:
		truceHours = 0
	case entities.ProposalTruce:
		if truceHours < entities.MinTruceHours || truceHours > entities.MaxTruceHours {
			return nil, entities.NewRejection(entities.RejectInvalidRequest, "truce must last between %d and %d hours",
				entities.MinTruceHours, entities.MaxTruceHours)
		}
	default:
		return nil, entities.NewRejection(entities.RejectInvalidRequest, "unknown proposal kind %q", kind)
	}

	membership, target, err := s.resolveCounterparty(ctx, requesterID, targetTag)
	if err != nil {
		return nil, err
	}
	now := s.now()

	pair := entities.NewFactionPair(membership.FactionTag, target.Tag)
	existing, err := s.relationshipRepo.Get(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	if existing != nil && existing.IsActive(now) {
		if existing.Status == entities.RelationshipAlliance {
			return nil, entities.NewRejection(entities.RejectRelationshipExists, "you are already allied with %s", target.Tag)
		}
		if existing.Status == entities.RelationshipTruce && kind == entities.ProposalTruce {
			return nil, entities.NewRejection(entities.RejectRelationshipExists, "a truce with %s is already in force", target.Tag)
		}
	}

	proposal := &entities.DiplomacyProposal{
		FromTag:    membership.FactionTag,
		ToTag:      target.Tag,
		Kind:       kind,
		TruceHours: truceHours,
		Status:     entities.ProposalStatusPending,
		ProposedBy: requesterID,
		CreatedAt:  now,
	}
	result, err := s.proposalRepo.Create(ctx, proposal)
	if err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	if !result.Applied() {
		return nil, entities.NewRejection(entities.RejectProposalPending, "a %s offer to %s is already pending", kind, target.Tag)
	}

	s.publish(events.DiplomacyChangedEvent{
		ActorTag:   membership.FactionTag,
		TargetTag:  target.Tag,
		Action:     events.DiplomacyActionProposed,
		ProposalID: proposal.ID,
	})

	return proposal, nil
}

// AcceptProposal turns a pending proposal into a relationship
func (s *diplomacyService) AcceptProposal(ctx context.Context, requesterID int64, proposalID int64) (*entities.Relationship, error) {
	membership, proposal, err := s.resolveProposal(ctx, requesterID, proposalID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	result, err := s.proposalRepo.Resolve(ctx, proposal.ID, entities.ProposalStatusAccepted, now)
	if err != nil {
		return nil, fmt.Errorf("failed to accept proposal: %w", err)
	}
	if !result.Applied() {
		return nil, entities.NewRejection(entities.RejectProposalNotFound, "proposal %d is no longer pending", proposal.ID)
	}

	pair := entities.NewFactionPair(proposal.FromTag, proposal.ToTag)
	relationship := &entities.Relationship{
		TagA:         pair.A,
		TagB:         pair.B,
		InitiatorTag: proposal.FromTag,
		CreatedAt:    now,
	}
	switch proposal.Kind {
	case entities.ProposalAlliance:
		relationship.Status = entities.RelationshipAlliance
	case entities.ProposalTruce:
		relationship.Status = entities.RelationshipTruce
		expiresAt := now.Add(time.Duration(proposal.TruceHours) * time.Hour)
		relationship.ExpiresAt = &expiresAt
	}

	if err := s.relationshipRepo.Upsert(ctx, relationship); err != nil {
		return nil, fmt.Errorf("failed to save relationship: %w", err)
	}

	s.publish(events.DiplomacyChangedEvent{
		ActorTag:   membership.FactionTag,
		TargetTag:  proposal.FromTag,
		Action:     events.DiplomacyActionAccepted,
		Status:     relationship.Status,
		ExpiresAt:  relationship.ExpiresAt,
		ProposalID: proposal.ID,
	})

	log.WithFields(log.Fields{
		"from":   proposal.FromTag,
		"to":     proposal.ToTag,
		"status": relationship.Status,
	}).Info("Diplomacy proposal accepted")

	return relationship, nil
}

// DeclineProposal closes a pending proposal without a relationship change
func (s *diplomacyService) DeclineProposal(ctx context.Context, requesterID int64, proposalID int64) error {
	membership, proposal, err := s.resolveProposal(ctx, requesterID, proposalID)
	if err != nil {
		return err
	}

	result, err := s.proposalRepo.Resolve(ctx, proposal.ID, entities.ProposalStatusDeclined, s.now())
	if err != nil {
		return fmt.Errorf("failed to decline proposal: %w", err)
	}
	if !result.Applied() {
		return entities.NewRejection(entities.RejectProposalNotFound, "proposal %d is no longer pending", proposal.ID)
	}

	s.publish(events.DiplomacyChangedEvent{
		ActorTag:   membership.FactionTag,
		TargetTag:  proposal.FromTag,
		Action:     events.DiplomacyActionDeclined,
		ProposalID: proposal.ID,
	})
	return nil
}

// WithdrawEnemy removes an enemy declaration made by the requester's faction
func (s *diplomacyService) WithdrawEnemy(ctx context.Context, requesterID int64, targetTag string) error {
	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return err
	}
	now := s.now()

	pair := entities.NewFactionPair(membership.FactionTag, targetTag)
	existing, err := s.relationshipRepo.Get(ctx, pair)
	if err != nil {
		return fmt.Errorf("failed to get relationship: %w", err)
	}
	if existing == nil || existing.Status != entities.RelationshipEnemy {
		return entities.NewRejection(entities.RejectRelationshipNotFound, "%s is not your enemy", targetTag)
	}
	if existing.InitiatorTag != membership.FactionTag {
		return entities.NewRejection(entities.RejectNotInitiator, "only %s can withdraw this declaration", existing.InitiatorTag)
	}

	if err := s.relationshipRepo.Delete(ctx, pair); err != nil {
		return fmt.Errorf("failed to delete enemy declaration: %w", err)
	}
	cooldown := &entities.DiplomacyCooldown{
		TagA:      pair.A,
		TagB:      pair.B,
		Kind:      entities.DiplomacyCooldownEnemyRedeclare,
		ExpiresAt: now.Add(entities.EnemyRedeclareCooldown),
	}
	if err := s.relationshipRepo.SetCooldown(ctx, cooldown); err != nil {
		return fmt.Errorf("failed to set redeclare cooldown: %w", err)
	}

	s.publish(events.DiplomacyChangedEvent{
		ActorTag:  membership.FactionTag,
		TargetTag: targetTag,
		Action:    events.DiplomacyActionEnemyWithdrawn,
		ExpiresAt: &cooldown.ExpiresAt,
	})
	return nil
}

// BreakAlliance dissolves an alliance and starts a non-aggression pact
func (s *diplomacyService) BreakAlliance(ctx context.Context, requesterID int64, targetTag string) error {
	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return err
	}
	now := s.now()

	pair := entities.NewFactionPair(membership.FactionTag, targetTag)
	existing, err := s.relationshipRepo.Get(ctx, pair)
	if err != nil {
		return fmt.Errorf("failed to get relationship: %w", err)
	}
	if existing == nil || existing.Status != entities.RelationshipAlliance {
		return entities.NewRejection(entities.RejectRelationshipNotFound, "you are not allied with %s", targetTag)
	}

	if err := s.relationshipRepo.Delete(ctx, pair); err != nil {
		return fmt.Errorf("failed to delete alliance: %w", err)
	}
	pact := &entities.DiplomacyCooldown{
		TagA:      pair.A,
		TagB:      pair.B,
		Kind:      entities.DiplomacyCooldownAllianceBreak,
		ExpiresAt: now.Add(entities.AllianceBreakCooldown),
	}
	if err := s.relationshipRepo.SetCooldown(ctx, pact); err != nil {
		return fmt.Errorf("failed to set non-aggression pact: %w", err)
	}

	s.publish(events.DiplomacyChangedEvent{
		ActorTag:  membership.FactionTag,
		TargetTag: targetTag,
		Action:    events.DiplomacyActionAllianceBroken,
		ExpiresAt: &pact.ExpiresAt,
	})

	log.WithFields(log.Fields{
		"actor":      membership.FactionTag,
		"target":     targetTag,
		"pactExpiry": pact.ExpiresAt,
	}).Info("Alliance broken")
	return nil
}

// ListRelationships filters out lapsed truces
func (s *diplomacyService) ListRelationships(ctx context.Context, tag string) ([]*entities.Relationship, error) {
	all, err := s.relationshipRepo.ListForFaction(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships for %s: %w", tag, err)
	}
	now := s.now()
	active := make([]*entities.Relationship, 0, len(all))
	for _, r := range all {
		if r.IsActive(now) {
			active = append(active, r)
		}
	}
	return active, nil
}

// resolveCounterparty authorizes the requester and loads a distinct target faction
func (s *diplomacyService) resolveCounterparty(ctx context.Context, requesterID int64, targetTag string) (*entities.Membership, *entities.Faction, error) {
	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return nil, nil, err
	}
	target, err := requireFaction(ctx, s.factionRepo, targetTag)
	if err != nil {
		return nil, nil, err
	}
	if target.Tag == membership.FactionTag {
		return nil, nil, entities.NewRejection(entities.RejectSelfTarget, "a faction cannot hold diplomacy with itself")
	}
	return membership, target, nil
}

// resolveProposal authorizes the requester as the leadership of a pending proposal's recipient
func (s *diplomacyService) resolveProposal(ctx context.Context, requesterID int64, proposalID int64) (*entities.Membership, *entities.DiplomacyProposal, error) {
	membership, err := requireLeader(ctx, s.memberRepo, requesterID)
	if err != nil {
		return nil, nil, err
	}
	proposal, err := s.proposalRepo.GetByID(ctx, proposalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	if proposal == nil || !proposal.IsPending() {
		return nil, nil, entities.NewRejection(entities.RejectProposalNotFound, "no pending proposal %d", proposalID)
	}
	if proposal.ToTag != membership.FactionTag {
		return nil, nil, entities.NewRejection(entities.RejectNotAuthorized, "proposal %d is addressed to %s", proposalID, proposal.ToTag)
	}
	return membership, proposal, nil
}

func (s *diplomacyService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish diplomacy event")
	}
}
