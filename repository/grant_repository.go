package repository

import (
	"context"
	"fmt"
	"time"

	"guildwar/database"
	"guildwar/domain/entities"
	"guildwar/domain/interfaces"
)

type grantRepository struct {
	q Queryable
}

// NewGrantRepository creates a new temporary grant repository
func NewGrantRepository(db *database.DB) interfaces.GrantRepository {
	return &grantRepository{q: db.Pool}
}

// NewGrantRepositoryScoped creates a new temporary grant repository bound to a transaction
func NewGrantRepositoryScoped(tx Queryable) interfaces.GrantRepository {
	return &grantRepository{q: tx}
}

// Grant refreshes an existing grant of the same kind instead of stacking a second row
func (r *grantRepository) Grant(ctx context.Context, grant *entities.TemporaryGrant) error {
	query := `
		INSERT INTO temporary_grants (discord_id, grant_kind, faction_tag, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (discord_id, grant_kind) DO UPDATE
		SET faction_tag = EXCLUDED.faction_tag,
			expires_at = GREATEST(temporary_grants.expires_at, EXCLUDED.expires_at),
			granted_at = NOW()
		RETURNING expires_at, granted_at
	`
	err := r.q.QueryRow(ctx, query, grant.DiscordID, string(grant.Kind), grant.FactionTag, grant.ExpiresAt).Scan(
		&grant.ExpiresAt,
		&grant.GrantedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to grant %s to user %d: %w", grant.Kind, grant.DiscordID, err)
	}
	return nil
}

func (r *grantRepository) ListActive(ctx context.Context, discordID int64, now time.Time) ([]*entities.TemporaryGrant, error) {
	query := `
		SELECT discord_id, grant_kind, faction_tag, expires_at, granted_at
		FROM temporary_grants
		WHERE discord_id = $1 AND expires_at > $2
		ORDER BY expires_at
	`
	rows, err := r.q.Query(ctx, query, discordID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants of user %d: %w", discordID, err)
	}
	defer rows.Close()

	var grants []*entities.TemporaryGrant
	for rows.Next() {
		var g entities.TemporaryGrant
		if err := rows.Scan(&g.DiscordID, &g.Kind, &g.FactionTag, &g.ExpiresAt, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}
	return grants, nil
}
