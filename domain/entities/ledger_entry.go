package entities

import (
	"errors"
	"strconv"
	"time"
)

// AccountKind distinguishes faction treasuries from personal member balances
type AccountKind string

const (
	AccountFaction AccountKind = "faction"
	AccountMember  AccountKind = "member"
)

// EntryType represents why a treasury or balance changed
type EntryType string

const (
	// Raid costs and stakes
	EntryTypeRaidDeclaration  EntryType = "raid_declaration"
	EntryTypeOpportunistStake EntryType = "opportunist_stake"
	EntryTypeShieldPurchase   EntryType = "shield_purchase"
	EntryTypeBountyPlaced     EntryType = "bounty_placed"

	// Settlement
	EntryTypeVaultLooted   EntryType = "vault_looted"
	EntryTypeMemberLooted  EntryType = "member_looted"
	EntryTypeLootCollected EntryType = "loot_collected"
	EntryTypeBountyClaimed EntryType = "bounty_claimed"
	EntryTypeWagerPayout   EntryType = "wager_payout"
	EntryTypeDefenseReward EntryType = "defense_reward"
	EntryTypeForfeitReward EntryType = "forfeit_compensation"
)

// IsSettlement reports whether the entry was written while settling a raid
func (t EntryType) IsSettlement() bool {
	switch t {
	case EntryTypeVaultLooted, EntryTypeMemberLooted, EntryTypeLootCollected,
		EntryTypeBountyClaimed, EntryTypeWagerPayout, EntryTypeDefenseReward, EntryTypeForfeitReward:
		return true
	}
	return false
}

// IsSpend reports whether the entry is a voluntary spend by the account holder
func (t EntryType) IsSpend() bool {
	return t == EntryTypeRaidDeclaration || t == EntryTypeOpportunistStake ||
		t == EntryTypeShieldPurchase || t == EntryTypeBountyPlaced
}

// LedgerEntry is the audit record of one treasury or balance mutation
type LedgerEntry struct {
	ID            int64          `db:"id"`
	AccountKind   AccountKind    `db:"account_kind"`
	AccountID     string         `db:"account_id"`
	BalanceBefore int64          `db:"balance_before"`
	BalanceAfter  int64          `db:"balance_after"`
	ChangeAmount  int64          `db:"change_amount"`
	EntryType     EntryType      `db:"entry_type"`
	RaidID        *int64         `db:"raid_id"`
	Metadata      map[string]any `db:"metadata"`
	CreatedAt     time.Time      `db:"created_at"`
}

// FactionAccount returns the ledger account id of a faction
func FactionAccount(tag string) string {
	return tag
}

// MemberAccount returns the ledger account id of a user
func MemberAccount(discordID int64) string {
	return strconv.FormatInt(discordID, 10)
}

// Validate checks the entry is internally consistent
func (e *LedgerEntry) Validate() error {
	if e.ChangeAmount == 0 {
		return errors.New("change amount cannot be zero")
	}
	if e.BalanceAfter != e.BalanceBefore+e.ChangeAmount {
		return errors.New("balance calculation is inconsistent")
	}
	if e.BalanceAfter < 0 {
		return errors.New("balance cannot go negative")
	}
	return nil
}

// Description returns a human-readable description of the entry
func (e *LedgerEntry) Description() string {
	switch e.EntryType {
	case EntryTypeRaidDeclaration:
		return "Raid declared"
	case EntryTypeOpportunistStake:
		return "Opportunist stake"
	case EntryTypeShieldPurchase:
		return "Shield purchased"
	case EntryTypeBountyPlaced:
		return "Bounty placed"
	case EntryTypeVaultLooted:
		return "Vault looted"
	case EntryTypeMemberLooted:
		return "Pockets picked"
	case EntryTypeLootCollected:
		return "Loot collected"
	case EntryTypeBountyClaimed:
		return "Bounty claimed"
	case EntryTypeWagerPayout:
		return "Wager payout"
	case EntryTypeDefenseReward:
		return "Defense reward"
	case EntryTypeForfeitReward:
		return "Forfeit compensation"
	default:
		return string(e.EntryType)
	}
}
