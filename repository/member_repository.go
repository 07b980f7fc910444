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

type memberRepository struct {
	q Queryable
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *database.DB) interfaces.MemberRepository {
	return &memberRepository{q: db.Pool}
}

// NewMemberRepositoryScoped creates a new member repository bound to a transaction
func NewMemberRepositoryScoped(tx Queryable) interfaces.MemberRepository {
	return &memberRepository{q: tx}
}

// EnsureUser creates the user row on first contact and refreshes the username afterwards
func (r *memberRepository) EnsureUser(ctx context.Context, discordID int64, username string) (*entities.User, error) {
	query := `
		INSERT INTO users (discord_id, username)
		VALUES ($1, $2)
		ON CONFLICT (discord_id) DO UPDATE SET username = EXCLUDED.username, updated_at = NOW()
		RETURNING discord_id, username, balance, created_at, updated_at
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, discordID, username).Scan(
		&user.DiscordID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user %d: %w", discordID, err)
	}
	return &user, nil
}

func (r *memberRepository) GetMembership(ctx context.Context, discordID int64) (*entities.Membership, error) {
	query := `
		SELECT discord_id, faction_tag, role, joined_at
		FROM faction_members
		WHERE discord_id = $1
	`

	var m entities.Membership
	err := r.q.QueryRow(ctx, query, discordID).Scan(&m.DiscordID, &m.FactionTag, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership for user %d: %w", discordID, err)
	}
	return &m, nil
}

func (r *memberRepository) AddMember(ctx context.Context, membership *entities.Membership) error {
	query := `
		INSERT INTO faction_members (discord_id, faction_tag, role)
		VALUES ($1, $2, $3)
		RETURNING joined_at
	`
	err := r.q.QueryRow(ctx, query, membership.DiscordID, membership.FactionTag, membership.Role).Scan(&membership.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to add user %d to %s: %w", membership.DiscordID, membership.FactionTag, err)
	}
	return nil
}

func (r *memberRepository) ListByFaction(ctx context.Context, tag string) ([]*entities.FactionMember, error) {
	query := `
		SELECT fm.discord_id, fm.faction_tag, fm.role, fm.joined_at, u.username, u.balance
		FROM faction_members fm
		JOIN users u ON u.discord_id = fm.discord_id
		WHERE fm.faction_tag = $1
		ORDER BY fm.discord_id
	`

	rows, err := r.q.Query(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", tag, err)
	}
	defer rows.Close()

	var members []*entities.FactionMember
	for rows.Next() {
		var m entities.FactionMember
		if err := rows.Scan(&m.DiscordID, &m.FactionTag, &m.Role, &m.JoinedAt, &m.Username, &m.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// DebitBalance never overdraws: the balance check and the write are one statement
func (r *memberRepository) DebitBalance(ctx context.Context, discordID int64, amount int64) (entities.BalanceWrite, error) {
	query := `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE discord_id = $1 AND balance >= $2
		RETURNING balance + $2, balance
	`
	return r.balanceWrite(ctx, query, discordID, amount)
}

func (r *memberRepository) CreditBalance(ctx context.Context, discordID int64, amount int64) (entities.BalanceWrite, error) {
	query := `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE discord_id = $1
		RETURNING balance - $2, balance
	`
	return r.balanceWrite(ctx, query, discordID, amount)
}

func (r *memberRepository) balanceWrite(ctx context.Context, query string, discordID int64, amount int64) (entities.BalanceWrite, error) {
	if amount <= 0 {
		return entities.BalanceWrite{}, fmt.Errorf("balance change for user %d must be positive, got %d", discordID, amount)
	}

	write := entities.BalanceWrite{Result: entities.GuardApplied}
	err := r.q.QueryRow(ctx, query, discordID, amount).Scan(&write.Before, &write.After)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.BalanceWrite{Result: entities.GuardFailed}, nil
	}
	if err != nil {
		return entities.BalanceWrite{}, fmt.Errorf("failed to update balance of user %d: %w", discordID, err)
	}
	return write, nil
}
