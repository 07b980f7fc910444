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

type cooldownRepository struct {
	q Queryable
}

// NewCooldownRepository creates a new cooldown repository
func NewCooldownRepository(db *database.DB) interfaces.CooldownRepository {
	return &cooldownRepository{q: db.Pool}
}

// NewCooldownRepositoryScoped creates a new cooldown repository bound to a transaction
func NewCooldownRepositoryScoped(tx Queryable) interfaces.CooldownRepository {
	return &cooldownRepository{q: tx}
}

func (r *cooldownRepository) Get(ctx context.Context, tag string) (*entities.CooldownState, error) {
	query := `
		SELECT faction_tag, shield_expires_at, last_raid_at, is_under_raid, updated_at
		FROM faction_cooldowns
		WHERE faction_tag = $1
	`

	var state entities.CooldownState
	err := r.q.QueryRow(ctx, query, tag).Scan(
		&state.FactionTag,
		&state.ShieldExpiresAt,
		&state.LastRaidAt,
		&state.IsUnderRaid,
		&state.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.NewCooldownState(tag), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cooldown state for %s: %w", tag, err)
	}
	return &state, nil
}

// AcquireRaidLock is the per-target mutual exclusion: only one caller can flip the flag
func (r *cooldownRepository) AcquireRaidLock(ctx context.Context, tag string) (entities.GuardResult, error) {
	query := `
		INSERT INTO faction_cooldowns (faction_tag, is_under_raid)
		VALUES ($1, TRUE)
		ON CONFLICT (faction_tag) DO UPDATE
		SET is_under_raid = TRUE, updated_at = NOW()
		WHERE faction_cooldowns.is_under_raid = FALSE
	`
	result, err := r.q.Exec(ctx, query, tag)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to lock %s: %w", tag, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}

func (r *cooldownRepository) ReleaseRaidLock(ctx context.Context, tag string) error {
	_, err := r.q.Exec(ctx, `UPDATE faction_cooldowns SET is_under_raid = FALSE, updated_at = NOW() WHERE faction_tag = $1`, tag)
	if err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", tag, err)
	}
	return nil
}

func (r *cooldownRepository) SetLastRaid(ctx context.Context, tag string, at time.Time) error {
	return r.upsertTimestamp(ctx, "last_raid_at", tag, &at)
}

func (r *cooldownRepository) SetShield(ctx context.Context, tag string, expiresAt time.Time) error {
	return r.upsertTimestamp(ctx, "shield_expires_at", tag, &expiresAt)
}

func (r *cooldownRepository) ClearShield(ctx context.Context, tag string) error {
	return r.upsertTimestamp(ctx, "shield_expires_at", tag, nil)
}

// column is always one of the fixed names above
func (r *cooldownRepository) upsertTimestamp(ctx context.Context, column, tag string, at *time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO faction_cooldowns (faction_tag, %[1]s)
		VALUES ($1, $2)
		ON CONFLICT (faction_tag) DO UPDATE
		SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()
	`, column)
	if _, err := r.q.Exec(ctx, query, tag, at); err != nil {
		return fmt.Errorf("failed to set %s for %s: %w", column, tag, err)
	}
	return nil
}
