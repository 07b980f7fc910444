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

const raidColumns = `
	id, attacker_tag, defender_tag, declared_by, attacker_tier, defender_tier, raid_cost,
	declared_at, window_closes_at, phase, next_phase_at, outcome, forfeit, stolen_amount,
	attacker_allies, defender_allies, wager_pool, resolved_at`

type raidRepository struct {
	q Queryable
}

// NewRaidRepository creates a new raid repository
func NewRaidRepository(db *database.DB) interfaces.RaidRepository {
	return &raidRepository{q: db.Pool}
}

// NewRaidRepositoryScoped creates a new raid repository bound to a transaction
func NewRaidRepositoryScoped(tx Queryable) interfaces.RaidRepository {
	return &raidRepository{q: tx}
}

func scanRaid(row pgx.Row) (*entities.RaidRecord, error) {
	var raid entities.RaidRecord
	err := row.Scan(
		&raid.ID,
		&raid.AttackerTag,
		&raid.DefenderTag,
		&raid.DeclaredBy,
		&raid.AttackerTier,
		&raid.DefenderTier,
		&raid.RaidCost,
		&raid.DeclaredAt,
		&raid.WindowClosesAt,
		&raid.Phase,
		&raid.NextPhaseAt,
		&raid.Outcome,
		&raid.Forfeit,
		&raid.StolenAmount,
		&raid.AttackerAllies,
		&raid.DefenderAllies,
		&raid.WagerPool,
		&raid.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &raid, nil
}

func collectRaids(rows pgx.Rows) ([]*entities.RaidRecord, error) {
	defer rows.Close()

	var raids []*entities.RaidRecord
	for rows.Next() {
		raid, err := scanRaid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raid: %w", err)
		}
		raids = append(raids, raid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raids: %w", err)
	}
	return raids, nil
}

func (r *raidRepository) Create(ctx context.Context, raid *entities.RaidRecord) error {
	query := `
		INSERT INTO raid_records (
			attacker_tag, defender_tag, declared_by, attacker_tier, defender_tier, raid_cost,
			declared_at, window_closes_at, phase, outcome
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		raid.AttackerTag,
		raid.DefenderTag,
		raid.DeclaredBy,
		raid.AttackerTier,
		raid.DefenderTier,
		raid.RaidCost,
		raid.DeclaredAt,
		raid.WindowClosesAt,
		raid.Phase,
		raid.Outcome,
	).Scan(&raid.ID)
	if err != nil {
		return fmt.Errorf("failed to create raid %s -> %s: %w", raid.AttackerTag, raid.DefenderTag, err)
	}
	if raid.AttackerAllies == nil {
		raid.AttackerAllies = []string{}
	}
	if raid.DefenderAllies == nil {
		raid.DefenderAllies = []string{}
	}
	return nil
}

func (r *raidRepository) GetByID(ctx context.Context, id int64) (*entities.RaidRecord, error) {
	query := `SELECT ` + raidColumns + ` FROM raid_records WHERE id = $1`

	raid, err := scanRaid(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raid %d: %w", id, err)
	}
	return raid, nil
}

// TransitionPhase is a compare-and-set on the phase column
func (r *raidRepository) TransitionPhase(ctx context.Context, id int64, from, to entities.RaidPhase, nextPhaseAt *time.Time) (entities.GuardResult, error) {
	if !from.CanTransitionTo(to) {
		return entities.GuardFailed, fmt.Errorf("raid %d cannot move from %s to %s", id, from, to)
	}
	query := `
		UPDATE raid_records
		SET phase = $3, next_phase_at = $4
		WHERE id = $1 AND phase = $2 AND outcome = 'pending'
	`
	result, err := r.q.Exec(ctx, query, id, string(from), string(to), nextPhaseAt)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to move raid %d to %s: %w", id, to, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}

func (r *raidRepository) AddToWagerPool(ctx context.Context, id int64, amount int64) (entities.GuardResult, error) {
	query := `
		UPDATE raid_records
		SET wager_pool = wager_pool + $2
		WHERE id = $1 AND outcome = 'pending' AND phase = 'awaiting_participants'
	`
	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to add to wager pool of raid %d: %w", id, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}

func (r *raidRepository) ZeroWagerPool(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `UPDATE raid_records SET wager_pool = 0 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to zero wager pool of raid %d: %w", id, err)
	}
	return nil
}

// Resolve writes the outcome once; a second settlement of the same raid matches no rows
func (r *raidRepository) Resolve(ctx context.Context, resolution *entities.RaidResolution) (entities.GuardResult, error) {
	if resolution.Outcome == entities.RaidOutcomePending {
		return entities.GuardFailed, fmt.Errorf("raid %d cannot be resolved as pending", resolution.RaidID)
	}
	query := `
		UPDATE raid_records
		SET outcome = $2,
			phase = 'resolved',
			next_phase_at = NULL,
			forfeit = $3,
			stolen_amount = $4,
			attacker_allies = $5,
			defender_allies = $6,
			resolved_at = $7
		WHERE id = $1 AND outcome = 'pending'
	`
	result, err := r.q.Exec(ctx, query,
		resolution.RaidID,
		string(resolution.Outcome),
		resolution.Forfeit,
		resolution.StolenAmount,
		nonNilTags(resolution.AttackerAllies),
		nonNilTags(resolution.DefenderAllies),
		resolution.ResolvedAt,
	)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to resolve raid %d: %w", resolution.RaidID, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}

// Abort forces failure without touching any balance
func (r *raidRepository) Abort(ctx context.Context, id int64, at time.Time) (entities.GuardResult, error) {
	query := `
		UPDATE raid_records
		SET outcome = 'failure', phase = 'aborted', next_phase_at = NULL, resolved_at = $2
		WHERE id = $1 AND outcome = 'pending'
	`
	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return entities.GuardFailed, fmt.Errorf("failed to abort raid %d: %w", id, err)
	}
	return entities.GuardResultFromRows(result.RowsAffected()), nil
}

func (r *raidRepository) ListInPhases(ctx context.Context, phases ...entities.RaidPhase) ([]*entities.RaidRecord, error) {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = string(p)
	}
	query := `SELECT ` + raidColumns + `
		FROM raid_records
		WHERE outcome = 'pending' AND phase = ANY($1)
		ORDER BY declared_at`

	rows, err := r.q.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to list raids in phases %v: %w", names, err)
	}
	return collectRaids(rows)
}

func (r *raidRepository) ListByFaction(ctx context.Context, tag string, limit int) ([]*entities.RaidRecord, error) {
	query := `SELECT ` + raidColumns + `
		FROM raid_records
		WHERE attacker_tag = $1 OR defender_tag = $1
		ORDER BY declared_at DESC, id DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list raids of %s: %w", tag, err)
	}
	return collectRaids(rows)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
