package utils

import (
	"context"
	"fmt"

	"guildwar/domain/entities"
	"guildwar/domain/events"
	"guildwar/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordTreasuryChange records a ledger entry for an applied treasury write and emits a TreasuryChangedEvent.
// Writes whose guard failed are ignored, since nothing changed.
func RecordTreasuryChange(ctx context.Context, ledgerRepo interfaces.LedgerRepository, eventPublisher interfaces.EventPublisher, tag string, write entities.BalanceWrite, entryType entities.EntryType, raidID *int64, metadata map[string]any) error {
	if !write.Applied() {
		return nil
	}
	return RecordLedgerEntry(ctx, ledgerRepo, eventPublisher, &entities.LedgerEntry{
		AccountKind:   entities.AccountFaction,
		AccountID:     entities.FactionAccount(tag),
		BalanceBefore: write.Before,
		BalanceAfter:  write.After,
		ChangeAmount:  write.After - write.Before,
		EntryType:     entryType,
		RaidID:        raidID,
		Metadata:      metadata,
	})
}

// RecordBalanceChange records a ledger entry for an applied member balance write
func RecordBalanceChange(ctx context.Context, ledgerRepo interfaces.LedgerRepository, eventPublisher interfaces.EventPublisher, discordID int64, write entities.BalanceWrite, entryType entities.EntryType, raidID *int64, metadata map[string]any) error {
	if !write.Applied() {
		return nil
	}
	return RecordLedgerEntry(ctx, ledgerRepo, eventPublisher, &entities.LedgerEntry{
		AccountKind:   entities.AccountMember,
		AccountID:     entities.MemberAccount(discordID),
		BalanceBefore: write.Before,
		BalanceAfter:  write.After,
		ChangeAmount:  write.After - write.Before,
		EntryType:     entryType,
		RaidID:        raidID,
		Metadata:      metadata,
	})
}

// RecordLedgerEntry is the single entry point for audit ledger writes
func RecordLedgerEntry(ctx context.Context, ledgerRepo interfaces.LedgerRepository, eventPublisher interfaces.EventPublisher, entry *entities.LedgerEntry) error {
	if entry.ChangeAmount == 0 {
		return nil
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry for %s %s: %w", entry.AccountKind, entry.AccountID, err)
	}

	if err := ledgerRepo.Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	event := events.TreasuryChangedEvent{
		AccountKind:  entry.AccountKind,
		AccountID:    entry.AccountID,
		OldBalance:   entry.BalanceBefore,
		NewBalance:   entry.BalanceAfter,
		ChangeAmount: entry.ChangeAmount,
		EntryType:    entry.EntryType,
		RaidID:       entry.RaidID,
	}
	log.WithFields(log.Fields{
		"accountKind":  event.AccountKind,
		"accountID":    event.AccountID,
		"oldBalance":   event.OldBalance,
		"newBalance":   event.NewBalance,
		"entryType":    event.EntryType,
		"changeAmount": event.ChangeAmount,
	}).Debug("Publishing TreasuryChangedEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish treasury changed event")
	}

	return nil
}
