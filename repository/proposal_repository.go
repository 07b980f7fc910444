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

type proposalRepository struct {
	q Queryable
}

// NewProposalRepository creates a new diplomacy proposal repository
func NewProposalRepository(db *database.DB) interfaces.ProposalRepository {
	return &proposalRepository{q: db.Pool}
}

// NewProposalRepositoryScoped creates a new diplomacy proposal repository bound to a transaction
func NewProposalRepositoryScoped(tx Queryable) interfaces.ProposalRepository {
	return &proposalRepository{q: tx}
}

func (r *proposalRepository) Create(ctx context.Context, proposal *entities.DiplomacyProposal) (entities.GuardResult, error) {
	query := `
		INSERT INTO diplomacy_proposals (from_tag, to_tag, kind, truce_hours, status, proposed_by)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		ON CONFLICT (from_tag, to_tag, kind) WHERE status = 'pending' DO NOTHING
		RETURNING id, status, created_at
	`
	err := r.q.QueryRow(ctx, query,
		proposal.FromTag,
		proposal.ToTag,
		string(proposal.Kind),
		proposal.TruceHours,
		proposal.ProposedBy,
	).Scan(&proposal.ID, &proposal.Status, &proposal.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.GuardFailed, nil
	}
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to create %s proposal %s -> %s: %w", proposal.Kind, proposal.FromTag, proposal.ToTag, err)
	}
	return entities.GuardApplied, nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id int64) (*entities.DiplomacyProposal, error) {
	query := `
		SELECT id, from_tag, to_tag, kind, truce_hours, status, proposed_by, created_at, resolved_at
		FROM diplomacy_proposals
		WHERE id = $1
	`

	var p entities.DiplomacyProposal
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.FromTag,
		&p.ToTag,
		&p.Kind,
		&p.TruceHours,
		&p.Status,
		&p.ProposedBy,
		&p.CreatedAt,
		&p.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal %d: %w", id, err)
	}
	return &p, nil
}

func (r *proposalRepository) Resolve(ctx context.Context, id int64, status entities.ProposalStatus, at time.Time) (entities.GuardResult, error) {
	query := `
		UPDATE diplomacy_proposals
		SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.q.Exec(ctx, query, id, string(status), at)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to resolve proposal %d: %w", id, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}
