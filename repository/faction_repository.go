package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildwar/database"
	"guildwar/domain/entities"
	"guildwar/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const factionColumns = `
	tag, name, tier, attitude, owner_discord_id, treasury,
	raids_won, raids_lost, defenses_won, defenses_lost, factions_destroyed, total_looted,
	created_at, updated_at`

type factionRepository struct {
	q Queryable
}

// NewFactionRepository creates a new faction repository
func NewFactionRepository(db *database.DB) interfaces.FactionRepository {
	return &factionRepository{q: db.Pool}
}

// NewFactionRepositoryScoped creates a new faction repository bound to a transaction
func NewFactionRepositoryScoped(tx Queryable) interfaces.FactionRepository {
	return &factionRepository{q: tx}
}

func scanFaction(row pgx.Row) (*entities.Faction, error) {
	var f entities.Faction
	err := row.Scan(
		&f.Tag,
		&f.Name,
		&f.Tier,
		&f.Attitude,
		&f.OwnerDiscordID,
		&f.Treasury,
		&f.RaidsWon,
		&f.RaidsLost,
		&f.DefensesWon,
		&f.DefensesLost,
		&f.FactionsDestroyed,
		&f.TotalLooted,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *factionRepository) GetByTag(ctx context.Context, tag string) (*entities.Faction, error) {
	query := `SELECT ` + factionColumns + ` FROM factions WHERE tag = $1`

	faction, err := scanFaction(r.q.QueryRow(ctx, query, tag))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get faction %s: %w", tag, err)
	}
	return faction, nil
}

// Create inserts the faction together with its cooldown row
func (r *factionRepository) Create(ctx context.Context, faction *entities.Faction) error {
	if faction.CreatedAt.IsZero() {
		faction.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO factions (tag, name, tier, attitude, owner_discord_id, treasury, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		faction.Tag,
		faction.Name,
		faction.Tier,
		faction.Attitude,
		faction.OwnerDiscordID,
		faction.Treasury,
		faction.CreatedAt,
	).Scan(&faction.CreatedAt, &faction.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create faction %s: %w", faction.Tag, err)
	}

	if _, err := r.q.Exec(ctx, `INSERT INTO faction_cooldowns (faction_tag) VALUES ($1) ON CONFLICT DO NOTHING`, faction.Tag); err != nil {
		return fmt.Errorf("failed to create cooldown state for %s: %w", faction.Tag, err)
	}
	return nil
}

// DebitTreasury never overdraws: the balance check and the write are one statement
func (r *factionRepository) DebitTreasury(ctx context.Context, tag string, amount int64) (entities.BalanceWrite, error) {
	query := `
		UPDATE factions
		SET treasury = treasury - $2, updated_at = NOW()
		WHERE tag = $1 AND treasury >= $2
		RETURNING treasury + $2, treasury
	`
	return r.balanceWrite(ctx, query, tag, amount)
}

func (r *factionRepository) CreditTreasury(ctx context.Context, tag string, amount int64) (entities.BalanceWrite, error) {
	query := `
		UPDATE factions
		SET treasury = treasury + $2, updated_at = NOW()
		WHERE tag = $1
		RETURNING treasury - $2, treasury
	`
	return r.balanceWrite(ctx, query, tag, amount)
}

func (r *factionRepository) balanceWrite(ctx context.Context, query, tag string, amount int64) (entities.BalanceWrite, error) {
	if amount <= 0 {
		return entities.BalanceWrite{}, fmt.Errorf("treasury change for %s must be positive, got %d", tag, amount)
	}

	write := entities.BalanceWrite{Result: entities.GuardApplied}
	err := r.q.QueryRow(ctx, query, tag, amount).Scan(&write.Before, &write.After)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.BalanceWrite{Result: entities.GuardFailed}, nil
	}
	if err != nil {
		return entities.BalanceWrite{}, fmt.Errorf("failed to update treasury of %s: %w", tag, err)
	}
	return write, nil
}

func (r *factionRepository) ApplyLeaderboard(ctx context.Context, tag string, delta entities.LeaderboardDelta) error {
	if delta.IsZero() {
		return nil
	}
	query := `
		UPDATE factions
		SET raids_won = raids_won + $2,
			raids_lost = raids_lost + $3,
			defenses_won = defenses_won + $4,
			defenses_lost = defenses_lost + $5,
			factions_destroyed = factions_destroyed + $6,
			total_looted = total_looted + $7,
			updated_at = NOW()
		WHERE tag = $1
	`
	_, err := r.q.Exec(ctx, query, tag,
		delta.RaidsWon,
		delta.RaidsLost,
		delta.DefensesWon,
		delta.DefensesLost,
		delta.FactionsDestroyed,
		delta.TotalLooted,
	)
	if err != nil {
		return fmt.Errorf("failed to update leaderboard for %s: %w", tag, err)
	}
	return nil
}

func (r *factionRepository) Delete(ctx context.Context, tag string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM factions WHERE tag = $1`, tag)
	if err != nil {
		return fmt.Errorf("failed to delete faction %s: %w", tag, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("faction %s not found", tag)
	}
	return nil
}

func (r *factionRepository) ListLeaderboard(ctx context.Context, limit int) ([]*entities.Faction, error) {
	query := `SELECT ` + factionColumns + `
		FROM factions
		ORDER BY raids_won DESC, total_looted DESC, tag
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	defer rows.Close()

	var factions []*entities.Faction
	for rows.Next() {
		faction, err := scanFaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faction: %w", err)
		}
		factions = append(factions, faction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating factions: %w", err)
	}
	return factions, nil
}
