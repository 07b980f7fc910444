package services

import (
	"context"
	"fmt"

	"guildwar/domain/entities"
	"guildwar/domain/interfaces"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

type raidHistoryService struct {
	factionRepo interfaces.FactionRepository
	raidRepo    interfaces.RaidRepository
}

// NewRaidHistoryService creates a new raid history service
func NewRaidHistoryService(factionRepo interfaces.FactionRepository, raidRepo interfaces.RaidRepository) interfaces.RaidHistoryService {
	return &raidHistoryService{
		factionRepo: factionRepo,
		raidRepo:    raidRepo,
	}
}

// GetRaidHistory includes raids the faction attacked or defended
func (s *raidHistoryService) GetRaidHistory(ctx context.Context, tag string, limit int) ([]*entities.RaidRecord, error) {
	if _, err := requireFaction(ctx, s.factionRepo, tag); err != nil {
		return nil, err
	}
	raids, err := s.raidRepo.ListByFaction(ctx, tag, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list raid history: %w", err)
	}
	return raids, nil
}

func (s *raidHistoryService) GetLeaderboard(ctx context.Context, limit int) ([]*entities.Faction, error) {
	factions, err := s.factionRepo.ListLeaderboard(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return factions, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
