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

type bountyRepository struct {
	q Queryable
}

// NewBountyRepository creates a new bounty repository
func NewBountyRepository(db *database.DB) interfaces.BountyRepository {
	return &bountyRepository{q: db.Pool}
}

// NewBountyRepositoryScoped creates a new bounty repository bound to a transaction
func NewBountyRepositoryScoped(tx Queryable) interfaces.BountyRepository {
	return &bountyRepository{q: tx}
}

func (r *bountyRepository) GetActive(ctx context.Context, targetTag string) (*entities.Bounty, error) {
	query := `
		SELECT id, target_tag, placer_tag, amount, status, claimant_tag, claimed_at, created_at
		FROM bounties
		WHERE target_tag = $1 AND status = 'ACTIVE'
	`

	var b entities.Bounty
	err := r.q.QueryRow(ctx, query, targetTag).Scan(
		&b.ID,
		&b.TargetTag,
		&b.PlacerTag,
		&b.Amount,
		&b.Status,
		&b.ClaimantTag,
		&b.ClaimedAt,
		&b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active bounty on %s: %w", targetTag, err)
	}
	return &b, nil
}

// Create relies on the partial unique index over active bounties
func (r *bountyRepository) Create(ctx context.Context, bounty *entities.Bounty) (entities.GuardResult, error) {
	if bounty.CreatedAt.IsZero() {
		bounty.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO bounties (target_tag, placer_tag, amount, status, created_at)
		VALUES ($1, $2, $3, 'ACTIVE', $4)
		ON CONFLICT (target_tag) WHERE status = 'ACTIVE' DO NOTHING
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query, bounty.TargetTag, bounty.PlacerTag, bounty.Amount, bounty.CreatedAt).Scan(&bounty.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.GuardFailed, nil
	}
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to create bounty on %s: %w", bounty.TargetTag, err)
	}
	bounty.Status = entities.BountyStatusActive
	return entities.GuardApplied, nil
}

func (r *bountyRepository) Claim(ctx context.Context, id int64, claimantTag string, at time.Time) (entities.GuardResult, error) {
	query := `
		UPDATE bounties
		SET status = 'CLAIMED', claimant_tag = $2, claimed_at = $3
		WHERE id = $1 AND status = 'ACTIVE'
	`
	result, err := r.q.Exec(ctx, query, id, claimantTag, at)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to claim bounty %d: %w", id, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}

func (r *bountyRepository) DeleteActive(ctx context.Context, targetTag string) error {
	query := `DELETE FROM bounties WHERE target_tag = $1 AND status = 'ACTIVE'`
	if _, err := r.q.Exec(ctx, query, targetTag); err != nil {
		return fmt.Errorf("failed to delete active bounty on %s: %w", targetTag, err)
	}
	return nil
}
