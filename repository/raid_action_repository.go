package repository

import (
	"context"
	"fmt"
	"time"

	"guildwar/database"
	"guildwar/domain/entities"
	"guildwar/domain/interfaces"
)

type raidActionRepository struct {
	q Queryable
}

// NewRaidActionRepository creates a new raid action repository
func NewRaidActionRepository(db *database.DB) interfaces.RaidActionRepository {
	return &raidActionRepository{q: db.Pool}
}

// NewRaidActionRepositoryScoped creates a new raid action repository bound to a transaction
func NewRaidActionRepositoryScoped(tx Queryable) interfaces.RaidActionRepository {
	return &raidActionRepository{q: tx}
}

func (r *raidActionRepository) Schedule(ctx context.Context, action *entities.ScheduledRaidAction) error {
	query := `
		INSERT INTO raid_actions (raid_id, kind, due_at, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, status, created_at
	`
	err := r.q.QueryRow(ctx, query, action.RaidID, string(action.Kind), action.DueAt).Scan(
		&action.ID,
		&action.Status,
		&action.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s for raid %d: %w", action.Kind, action.RaidID, err)
	}
	return nil
}

func (r *raidActionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.ScheduledRaidAction, error) {
	query := `
		SELECT id, raid_id, kind, due_at, status, created_at, completed_at
		FROM raid_actions
		WHERE status = 'pending' AND due_at <= $1
		ORDER BY due_at, id
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due raid actions: %w", err)
	}
	defer rows.Close()

	var actions []*entities.ScheduledRaidAction
	for rows.Next() {
		var a entities.ScheduledRaidAction
		if err := rows.Scan(&a.ID, &a.RaidID, &a.Kind, &a.DueAt, &a.Status, &a.CreatedAt, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan raid action: %w", err)
		}
		actions = append(actions, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raid actions: %w", err)
	}
	return actions, nil
}

func (r *raidActionRepository) GetNextDueTime(ctx context.Context) (*time.Time, error) {
	var next *time.Time
	if err := r.q.QueryRow(ctx, `SELECT MIN(due_at) FROM raid_actions WHERE status = 'pending'`).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to get next raid action time: %w", err)
	}
	return next, nil
}

// Complete is the claim step: only one worker can move an action out of pending
func (r *raidActionRepository) Complete(ctx context.Context, id int64, at time.Time) (entities.GuardResult, error) {
	query := `
		UPDATE raid_actions
		SET status = 'done', completed_at = $2
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to complete raid action %d: %w", id, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}

func (r *raidActionRepository) CancelForRaid(ctx context.Context, raidID int64) error {
	query := `
		UPDATE raid_actions
		SET status = 'cancelled', completed_at = NOW()
		WHERE raid_id = $1 AND status = 'pending'
	`
	if _, err := r.q.Exec(ctx, query, raidID); err != nil {
		return fmt.Errorf("failed to cancel actions of raid %d: %w", raidID, err)
	}
	return nil
}
