package repository

import (
	"context"
	"fmt"

	"guildwar/database"
	"guildwar/domain/entities"
	"guildwar/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type ledgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) interfaces.LedgerRepository {
	return &ledgerRepository{q: db.Pool}
}

// NewLedgerRepositoryScoped creates a new ledger repository bound to a transaction
func NewLedgerRepositoryScoped(tx Queryable) interfaces.LedgerRepository {
	return &ledgerRepository{q: tx}
}

func (r *ledgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry for %s %s: %w", entry.AccountKind, entry.AccountID, err)
	}
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	query := `
		INSERT INTO ledger_entries (
			account_kind, account_id, balance_before, balance_after, change_amount,
			entry_type, raid_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		string(entry.AccountKind),
		entry.AccountID,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.ChangeAmount,
		string(entry.EntryType),
		entry.RaidID,
		metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s for %s %s: %w", entry.EntryType, entry.AccountKind, entry.AccountID, err)
	}
	return nil
}

func (r *ledgerRepository) ListByAccount(ctx context.Context, kind entities.AccountKind, accountID string, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_kind, account_id, balance_before, balance_after, change_amount,
			entry_type, raid_id, metadata, created_at
		FROM ledger_entries
		WHERE account_kind = $1 AND account_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := r.q.Query(ctx, query, string(kind), accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger of %s %s: %w", kind, accountID, err)
	}
	return collectLedgerEntries(rows)
}

func (r *ledgerRepository) ListByRaid(ctx context.Context, raidID int64) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_kind, account_id, balance_before, balance_after, change_amount,
			entry_type, raid_id, metadata, created_at
		FROM ledger_entries
		WHERE raid_id = $1
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, raidID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger of raid %d: %w", raidID, err)
	}
	return collectLedgerEntries(rows)
}

func collectLedgerEntries(rows pgx.Rows) ([]*entities.LedgerEntry, error) {
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var e entities.LedgerEntry
		err := rows.Scan(
			&e.ID,
			&e.AccountKind,
			&e.AccountID,
			&e.BalanceBefore,
			&e.BalanceAfter,
			&e.ChangeAmount,
			&e.EntryType,
			&e.RaidID,
			&e.Metadata,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}
