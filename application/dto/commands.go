package dto

// Command subjects served over NATS request/reply, relative to the command prefix
const (
	CommandRaidPreview     = "raid.preview"
	CommandRaidDeclare     = "raid.declare"
	CommandRaidJoin        = "raid.join"
	CommandRaidRoster      = "raid.roster"
	CommandRaidHistory     = "raid.history"
	CommandLeaderboard     = "leaderboard"
	CommandDeclareEnemy    = "diplomacy.enemy"
	CommandWithdrawEnemy   = "diplomacy.withdraw"
	CommandOfferProposal   = "diplomacy.offer"
	CommandAcceptProposal  = "diplomacy.accept"
	CommandDeclineProposal = "diplomacy.decline"
	CommandBreakAlliance   = "diplomacy.break"
	CommandListRelations   = "diplomacy.list"
	CommandPlaceBounty     = "bounty.place"
	CommandPurchaseShield  = "shield.purchase"
	CommandCooldownStatus  = "cooldown.status"
)

// TargetRequest names a requester acting against another faction
type TargetRequest struct {
	RequesterID int64  `json:"requester_id"`
	TargetTag   string `json:"target_tag"`
}

// JoinRaidRequest commits the requester's faction to a side of a raid
type JoinRaidRequest struct {
	RequesterID int64  `json:"requester_id"`
	RaidID      int64  `json:"raid_id"`
	Side        string `json:"side"`
}

// RaidRequest names a raid
type RaidRequest struct {
	RaidID int64 `json:"raid_id"`
}

// HistoryRequest asks for a faction's recent raids
type HistoryRequest struct {
	Tag   string `json:"tag"`
	Limit int    `json:"limit"`
}

// LeaderboardRequest asks for the top factions
type LeaderboardRequest struct {
	Limit int `json:"limit"`
}

// OfferRequest proposes an alliance or truce
type OfferRequest struct {
	RequesterID int64  `json:"requester_id"`
	TargetTag   string `json:"target_tag"`
	Kind        string `json:"kind"`
	TruceHours  int    `json:"truce_hours,omitempty"`
}

// ProposalRequest answers a pending proposal
type ProposalRequest struct {
	RequesterID int64 `json:"requester_id"`
	ProposalID  int64 `json:"proposal_id"`
}

// FactionRequest names a faction
type FactionRequest struct {
	Tag string `json:"tag"`
}

// BountyRequest places a bounty on a faction
type BountyRequest struct {
	RequesterID int64  `json:"requester_id"`
	TargetTag   string `json:"target_tag"`
	Amount      int64  `json:"amount"`
}

// ShieldRequest buys hours of raid immunity
type ShieldRequest struct {
	RequesterID int64 `json:"requester_id"`
	Hours       int   `json:"hours"`
}

// RejectionDTO is a refusal the requester can act on
type RejectionDTO struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// CommandResponse is the reply body of every command
type CommandResponse struct {
	OK        bool          `json:"ok"`
	Data      any           `json:"data,omitempty"`
	Rejection *RejectionDTO `json:"rejection,omitempty"`
	Error     string        `json:"error,omitempty"`
}
