package services

import (
	"context"
	"fmt"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/interfaces"
)

// requireMembership returns the requester's membership or a NotInFaction rejection
func requireMembership(ctx context.Context, memberRepo interfaces.MemberRepository, requesterID int64) (*entities.Membership, error) {
	membership, err := memberRepo.GetMembership(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		return nil, entities.NewRejection(entities.RejectNotInFaction, "you are not a member of any faction")
	}
	return membership, nil
}

// requireLeader returns the requester's membership when they may act for their faction
func requireLeader(ctx context.Context, memberRepo interfaces.MemberRepository, requesterID int64) (*entities.Membership, error) {
	membership, err := requireMembership(ctx, memberRepo, requesterID)
	if err != nil {
		return nil, err
	}
	if !membership.Role.HasLeadership() {
		return nil, entities.NewRejection(entities.RejectNotAuthorized, "only the owner or an officer of %s can do that", membership.FactionTag)
	}
	return membership, nil
}

// requireFaction loads a faction or returns a TargetNotFound rejection
func requireFaction(ctx context.Context, factionRepo interfaces.FactionRepository, tag string) (*entities.Faction, error) {
	faction, err := factionRepo.GetByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get faction %s: %w", tag, err)
	}
	if faction == nil {
		return nil, entities.NewRejection(entities.RejectTargetNotFound, "no faction with tag %s", tag)
	}
	return faction, nil
}

// clock returns the current UTC time; services override it in tests
type clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
