package repository

import (
	"context"
	"errors"
	"fmt"

	"guildwar/database"
	"guildwar/domain/entities"
	"guildwar/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type relationshipRepository struct {
	q Queryable
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *database.DB) interfaces.RelationshipRepository {
	return &relationshipRepository{q: db.Pool}
}

// NewRelationshipRepositoryScoped creates a new relationship repository bound to a transaction
func NewRelationshipRepositoryScoped(tx Queryable) interfaces.RelationshipRepository {
	return &relationshipRepository{q: tx}
}

func (r *relationshipRepository) Get(ctx context.Context, pair entities.FactionPair) (*entities.Relationship, error) {
	query := `
		SELECT tag_a, tag_b, status, initiator_tag, expires_at, created_at
		FROM relationships
		WHERE tag_a = $1 AND tag_b = $2
	`

	var rel entities.Relationship
	err := r.q.QueryRow(ctx, query, pair.A, pair.B).Scan(
		&rel.TagA,
		&rel.TagB,
		&rel.Status,
		&rel.InitiatorTag,
		&rel.ExpiresAt,
		&rel.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship %s/%s: %w", pair.A, pair.B, err)
	}
	return &rel, nil
}

// Upsert canonicalizes the pair before writing so (x, y) and (y, x) share a row
func (r *relationshipRepository) Upsert(ctx context.Context, relationship *entities.Relationship) error {
	pair := entities.NewFactionPair(relationship.TagA, relationship.TagB)
	relationship.TagA, relationship.TagB = pair.A, pair.B

	query := `
		INSERT INTO relationships (tag_a, tag_b, status, initiator_tag, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tag_a, tag_b) DO UPDATE
		SET status = EXCLUDED.status,
			initiator_tag = EXCLUDED.initiator_tag,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
		RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		pair.A,
		pair.B,
		string(relationship.Status),
		relationship.InitiatorTag,
		relationship.ExpiresAt,
	).Scan(&relationship.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save relationship %s/%s: %w", pair.A, pair.B, err)
	}
	return nil
}

func (r *relationshipRepository) Delete(ctx context.Context, pair entities.FactionPair) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM relationships WHERE tag_a = $1 AND tag_b = $2`, pair.A, pair.B); err != nil {
		return fmt.Errorf("failed to delete relationship %s/%s: %w", pair.A, pair.B, err)
	}
	return nil
}

func (r *relationshipRepository) ListForFaction(ctx context.Context, tag string) ([]*entities.Relationship, error) {
	query := `
		SELECT tag_a, tag_b, status, initiator_tag, expires_at, created_at
		FROM relationships
		WHERE tag_a = $1 OR tag_b = $1
		ORDER BY created_at, tag_a, tag_b
	`

	rows, err := r.q.Query(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships of %s: %w", tag, err)
	}
	defer rows.Close()

	var relationships []*entities.Relationship
	for rows.Next() {
		var rel entities.Relationship
		if err := rows.Scan(&rel.TagA, &rel.TagB, &rel.Status, &rel.InitiatorTag, &rel.ExpiresAt, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		relationships = append(relationships, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return relationships, nil
}

func (r *relationshipRepository) GetCooldown(ctx context.Context, pair entities.FactionPair, kind entities.DiplomacyCooldownKind) (*entities.DiplomacyCooldown, error) {
	query := `
		SELECT tag_a, tag_b, kind, expires_at
		FROM diplomacy_cooldowns
		WHERE tag_a = $1 AND tag_b = $2 AND kind = $3
	`

	var cooldown entities.DiplomacyCooldown
	err := r.q.QueryRow(ctx, query, pair.A, pair.B, string(kind)).Scan(
		&cooldown.TagA,
		&cooldown.TagB,
		&cooldown.Kind,
		&cooldown.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s cooldown %s/%s: %w", kind, pair.A, pair.B, err)
	}
	return &cooldown, nil
}

// SetCooldown only ever pushes the expiry later
func (r *relationshipRepository) SetCooldown(ctx context.Context, cooldown *entities.DiplomacyCooldown) error {
	pair := entities.NewFactionPair(cooldown.TagA, cooldown.TagB)
	cooldown.TagA, cooldown.TagB = pair.A, pair.B

	query := `
		INSERT INTO diplomacy_cooldowns (tag_a, tag_b, kind, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tag_a, tag_b, kind) DO UPDATE
		SET expires_at = GREATEST(diplomacy_cooldowns.expires_at, EXCLUDED.expires_at)
	`
	if _, err := r.q.Exec(ctx, query, pair.A, pair.B, string(cooldown.Kind), cooldown.ExpiresAt); err != nil {
		return fmt.Errorf("failed to set %s cooldown %s/%s: %w", cooldown.Kind, pair.A, pair.B, err)
	}
	return nil
}
