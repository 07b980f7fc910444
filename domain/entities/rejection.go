package entities

import "fmt"

// RejectionReason enumerates why a request was refused without mutating state
type RejectionReason string

const (
	RejectNotInFaction   RejectionReason = "not_in_faction"
	RejectNotAuthorized  RejectionReason = "not_authorized"
	RejectTargetNotFound RejectionReason = "target_not_found"
	RejectSelfTarget     RejectionReason = "self_target"
	RejectInvalidRequest RejectionReason = "invalid_request"

	// Diplomacy
	RejectAllianceProtected       RejectionReason = "alliance_protected"
	RejectTruceActive             RejectionReason = "truce_active"
	RejectNonAggressionPact       RejectionReason = "non_aggression_pact"
	RejectNeutralExempt           RejectionReason = "neutral_exempt"
	RejectRelationshipExists      RejectionReason = "relationship_exists"
	RejectRelationshipNotFound    RejectionReason = "relationship_not_found"
	RejectNotInitiator            RejectionReason = "not_initiator"
	RejectDiplomacyCooldownActive RejectionReason = "diplomacy_cooldown_active"
	RejectProposalNotFound        RejectionReason = "proposal_not_found"
	RejectProposalPending         RejectionReason = "proposal_pending"

	// Raid declaration
	RejectTargetUnderRaid      RejectionReason = "target_under_raid"
	RejectTargetImmune         RejectionReason = "target_immune"
	RejectTargetShielded       RejectionReason = "target_shielded"
	RejectInsufficientFunds    RejectionReason = "insufficient_funds"
	RejectAttackerOnCooldown   RejectionReason = "attacker_on_cooldown"
	RejectFundsChangedAtCommit RejectionReason = "insufficient_funds_at_commit"

	// Recruitment
	RejectRaidNotFound         RejectionReason = "raid_not_found"
	RejectAlreadyParticipating RejectionReason = "already_participating"
	RejectInvalidSide          RejectionReason = "invalid_side"
	RejectRaidExpired          RejectionReason = "raid_expired"

	// Bounties
	RejectBountyExists RejectionReason = "bounty_exists"
)

// Rejection is a validation or commit-time refusal surfaced to the requester.
// Two rejections match under errors.Is when their reasons are equal.
type Rejection struct {
	Reason RejectionReason
	Detail string
}

// NewRejection creates a rejection with a formatted detail message
func NewRejection(reason RejectionReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Is matches any rejection carrying the same reason
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// IsCommitRace reports whether the rejection came from a guarded write losing a race
func (r *Rejection) IsCommitRace() bool {
	return r.Reason == RejectFundsChangedAtCommit
}

// Sentinels for errors.Is checks
var (
	ErrNotInFaction              = &Rejection{Reason: RejectNotInFaction}
	ErrNotAuthorized             = &Rejection{Reason: RejectNotAuthorized}
	ErrTargetNotFound            = &Rejection{Reason: RejectTargetNotFound}
	ErrSelfTarget                = &Rejection{Reason: RejectSelfTarget}
	ErrInvalidRequest            = &Rejection{Reason: RejectInvalidRequest}
	ErrAllianceProtected         = &Rejection{Reason: RejectAllianceProtected}
	ErrTruceActive               = &Rejection{Reason: RejectTruceActive}
	ErrNonAggressionPact         = &Rejection{Reason: RejectNonAggressionPact}
	ErrNeutralExempt             = &Rejection{Reason: RejectNeutralExempt}
	ErrRelationshipExists        = &Rejection{Reason: RejectRelationshipExists}
	ErrRelationshipNotFound      = &Rejection{Reason: RejectRelationshipNotFound}
	ErrNotInitiator              = &Rejection{Reason: RejectNotInitiator}
	ErrDiplomacyCooldownActive   = &Rejection{Reason: RejectDiplomacyCooldownActive}
	ErrProposalNotFound          = &Rejection{Reason: RejectProposalNotFound}
	ErrProposalPending           = &Rejection{Reason: RejectProposalPending}
	ErrTargetUnderRaid           = &Rejection{Reason: RejectTargetUnderRaid}
	ErrTargetImmune              = &Rejection{Reason: RejectTargetImmune}
	ErrTargetShielded            = &Rejection{Reason: RejectTargetShielded}
	ErrInsufficientFunds         = &Rejection{Reason: RejectInsufficientFunds}
	ErrAttackerOnCooldown        = &Rejection{Reason: RejectAttackerOnCooldown}
	ErrInsufficientFundsAtCommit = &Rejection{Reason: RejectFundsChangedAtCommit}
	ErrRaidNotFound              = &Rejection{Reason: RejectRaidNotFound}
	ErrAlreadyParticipating      = &Rejection{Reason: RejectAlreadyParticipating}
	ErrInvalidSide               = &Rejection{Reason: RejectInvalidSide}
	ErrRaidExpired               = &Rejection{Reason: RejectRaidExpired}
	ErrBountyExists              = &Rejection{Reason: RejectBountyExists}
)
