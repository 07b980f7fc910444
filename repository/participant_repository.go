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

type participantRepository struct {
	q Queryable
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *database.DB) interfaces.ParticipantRepository {
	return &participantRepository{q: db.Pool}
}

// NewParticipantRepositoryScoped creates a new participant repository bound to a transaction
func NewParticipantRepositoryScoped(tx Queryable) interfaces.ParticipantRepository {
	return &participantRepository{q: tx}
}

// AddIfOpen re-checks the raid state in the insert itself, so a join racing the
// window close or a duplicate join from the same faction writes nothing
func (r *participantRepository) AddIfOpen(ctx context.Context, participant *entities.RaidParticipant, now time.Time) (entities.GuardResult, error) {
	query := `
		INSERT INTO raid_participants (raid_id, faction_tag, side, wager_amount, formal_ally, joined_by, joined_at)
		SELECT rr.id, $2, $3, $4, $5, $6, $7
		FROM raid_records rr
		WHERE rr.id = $1
		  AND rr.outcome = 'pending'
		  AND rr.phase = 'awaiting_participants'
		  AND rr.window_closes_at > $7
		ON CONFLICT (raid_id, faction_tag) DO NOTHING
		RETURNING id, joined_at
	`
	err := r.q.QueryRow(ctx, query,
		participant.RaidID,
		participant.FactionTag,
		string(participant.Side),
		participant.WagerAmount,
		participant.FormalAlly,
		participant.JoinedBy,
		now,
	).Scan(&participant.ID, &participant.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.GuardFailed, nil
	}
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to add %s to raid %d: %w", participant.FactionTag, participant.RaidID, err)
	}
	return entities.GuardApplied, nil
}

func (r *participantRepository) Get(ctx context.Context, raidID int64, tag string) (*entities.RaidParticipant, error) {
	query := `
		SELECT id, raid_id, faction_tag, side, wager_amount, formal_ally, joined_by, joined_at
		FROM raid_participants
		WHERE raid_id = $1 AND faction_tag = $2
	`

	var p entities.RaidParticipant
	err := r.q.QueryRow(ctx, query, raidID, tag).Scan(
		&p.ID,
		&p.RaidID,
		&p.FactionTag,
		&p.Side,
		&p.WagerAmount,
		&p.FormalAlly,
		&p.JoinedBy,
		&p.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %s in raid %d: %w", tag, raidID, err)
	}
	return &p, nil
}

// ListDetailsByRaid keeps participants whose faction has since been destroyed,
// reporting them at tier 1 with no stance
func (r *participantRepository) ListDetailsByRaid(ctx context.Context, raidID int64) ([]*entities.ParticipantDetail, error) {
	query := `
		SELECT
			p.id, p.raid_id, p.faction_tag, p.side, p.wager_amount, p.formal_ally, p.joined_by, p.joined_at,
			COALESCE(f.name, p.faction_tag),
			COALESCE(f.tier, 1),
			COALESCE(f.attitude, 'neutral')
		FROM raid_participants p
		LEFT JOIN factions f ON f.tag = p.faction_tag
		WHERE p.raid_id = $1
		ORDER BY p.joined_at, p.id
	`

	rows, err := r.q.Query(ctx, query, raidID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of raid %d: %w", raidID, err)
	}
	defer rows.Close()

	var details []*entities.ParticipantDetail
	for rows.Next() {
		var d entities.ParticipantDetail
		err := rows.Scan(
			&d.ID,
			&d.RaidID,
			&d.FactionTag,
			&d.Side,
			&d.WagerAmount,
			&d.FormalAlly,
			&d.JoinedBy,
			&d.JoinedAt,
			&d.FactionName,
			&d.Tier,
			&d.Attitude,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		details = append(details, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return details, nil
}

func (r *participantRepository) DeleteByRaid(ctx context.Context, raidID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM raid_participants WHERE raid_id = $1`, raidID); err != nil {
		return fmt.Errorf("failed to purge participants of raid %d: %w", raidID, err)
	}
	return nil
}
