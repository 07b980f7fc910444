package entities

import "time"

const MinBountyAmount = 100

// BountyStatus is the lifecycle state of a bounty
type BountyStatus string

const (
	BountyStatusActive  BountyStatus = "ACTIVE"
	BountyStatusClaimed BountyStatus = "CLAIMED"
)

// Bounty is a standing reward paid to whichever faction successfully raids the target
type Bounty struct {
	ID          int64        `db:"id"`
	TargetTag   string       `db:"target_tag"`
	PlacerTag   string       `db:"placer_tag"`
	Amount      int64        `db:"amount"`
	Status      BountyStatus `db:"status"`
	ClaimantTag *string      `db:"claimant_tag"`
	ClaimedAt   *time.Time   `db:"claimed_at"`
	CreatedAt   time.Time    `db:"created_at"`
}

// IsActive reports whether the bounty can still be claimed
func (b *Bounty) IsActive() bool {
	return b.Status == BountyStatusActive
}
