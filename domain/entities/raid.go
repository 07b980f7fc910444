package entities

import (
	"time"
)

const (
	// RecruitmentWindow is the default time allies have to join a declared raid
	RecruitmentWindow = 10 * time.Minute
)

// RaidSide is the side of a raid a faction fights on
type RaidSide string

const (
	RaidSideAttacker RaidSide = "attacker"
	RaidSideDefender RaidSide = "defender"
)

// IsValid checks the side is attacker or defender
func (s RaidSide) IsValid() bool {
	return s == RaidSideAttacker || s == RaidSideDefender
}

// Opposite returns the other side
func (s RaidSide) Opposite() RaidSide {
	if s == RaidSideAttacker {
		return RaidSideDefender
	}
	return RaidSideAttacker
}

// RaidOutcome is tri-state; pending is distinct from failure
type RaidOutcome string

const (
	RaidOutcomePending RaidOutcome = "pending"
	RaidOutcomeSuccess RaidOutcome = "success"
	RaidOutcomeFailure RaidOutcome = "failure"
)

// RaidPhase is the battle state machine position of a raid
type RaidPhase string

const (
	RaidPhaseAwaitingParticipants RaidPhase = "awaiting_participants"
	RaidPhaseForfeitCheck         RaidPhase = "forfeit_check"
	RaidPhaseNarratingApproach    RaidPhase = "narrating_approach"
	RaidPhaseNarratingStance      RaidPhase = "narrating_stance"
	RaidPhaseNarratingAssault     RaidPhase = "narrating_assault"
	RaidPhaseResolved             RaidPhase = "resolved"
	RaidPhaseAborted              RaidPhase = "aborted"
)

var raidPhaseTransitions = map[RaidPhase][]RaidPhase{
	RaidPhaseAwaitingParticipants: {RaidPhaseForfeitCheck, RaidPhaseAborted},
	RaidPhaseForfeitCheck:         {RaidPhaseNarratingApproach, RaidPhaseResolved, RaidPhaseAborted},
	RaidPhaseNarratingApproach:    {RaidPhaseNarratingStance, RaidPhaseAborted},
	RaidPhaseNarratingStance:      {RaidPhaseNarratingAssault, RaidPhaseAborted},
	RaidPhaseNarratingAssault:     {RaidPhaseResolved, RaidPhaseAborted},
}

// CanTransitionTo reports whether the state machine allows moving from p to next
func (p RaidPhase) CanTransitionTo(next RaidPhase) bool {
	for _, allowed := range raidPhaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsNarrating reports whether the phase is one of the timed narrative phases
func (p RaidPhase) IsNarrating() bool {
	return p == RaidPhaseNarratingApproach || p == RaidPhaseNarratingStance || p == RaidPhaseNarratingAssault
}

// IsTerminal reports whether no further transitions are possible
func (p RaidPhase) IsTerminal() bool {
	return p == RaidPhaseResolved || p == RaidPhaseAborted
}

// NextNarrationPhase returns the narrative phase after p; ok is false after the assault
func (p RaidPhase) NextNarrationPhase() (RaidPhase, bool) {
	switch p {
	case RaidPhaseNarratingApproach:
		return RaidPhaseNarratingStance, true
	case RaidPhaseNarratingStance:
		return RaidPhaseNarratingAssault, true
	}
	return "", false
}

// RaidRecord is the historical record of one declared raid
type RaidRecord struct {
	ID             int64       `db:"id"`
	AttackerTag    string      `db:"attacker_tag"`
	DefenderTag    string      `db:"defender_tag"`
	DeclaredBy     int64       `db:"declared_by"`
	AttackerTier   int         `db:"attacker_tier"`
	DefenderTier   int         `db:"defender_tier"`
	RaidCost       int64       `db:"raid_cost"`
	DeclaredAt     time.Time   `db:"declared_at"`
	WindowClosesAt time.Time   `db:"window_closes_at"`
	Phase          RaidPhase   `db:"phase"`
	NextPhaseAt    *time.Time  `db:"next_phase_at"`
	Outcome        RaidOutcome `db:"outcome"`
	Forfeit        bool        `db:"forfeit"`
	StolenAmount   int64       `db:"stolen_amount"`
	AttackerAllies []string    `db:"attacker_allies"`
	DefenderAllies []string    `db:"defender_allies"`
	WagerPool      int64       `db:"wager_pool"`
	ResolvedAt     *time.Time  `db:"resolved_at"`
}

// IsPending reports whether the raid has not reached a terminal outcome
func (r *RaidRecord) IsPending() bool {
	return r.Outcome == RaidOutcomePending
}

// IsWindowOpen reports whether new participants may still join
func (r *RaidRecord) IsWindowOpen(now time.Time) bool {
	return r.IsPending() && r.Phase == RaidPhaseAwaitingParticipants && now.Before(r.WindowClosesAt)
}

// PrimaryFor returns the primary combatant tag of a side
func (r *RaidRecord) PrimaryFor(side RaidSide) string {
	if side == RaidSideAttacker {
		return r.AttackerTag
	}
	return r.DefenderTag
}

// RaidResolution carries the final values written onto a RaidRecord at settlement
type RaidResolution struct {
	RaidID         int64
	Outcome        RaidOutcome
	Forfeit        bool
	StolenAmount   int64
	AttackerAllies []string
	DefenderAllies []string
	ResolvedAt     time.Time
}

// RaidParticipant is one faction's commitment to a side of a raid
type RaidParticipant struct {
	ID          int64     `db:"id"`
	RaidID      int64     `db:"raid_id"`
	FactionTag  string    `db:"faction_tag"`
	Side        RaidSide  `db:"side"`
	WagerAmount int64     `db:"wager_amount"`
	FormalAlly  bool      `db:"formal_ally"`
	JoinedBy    int64     `db:"joined_by"`
	JoinedAt    time.Time `db:"joined_at"`
}

// ParticipantDetail joins a participant with the faction stats the battle needs
type ParticipantDetail struct {
	RaidParticipant
	FactionName string
	Tier        int
	Attitude    Attitude
}

// RaidRoster is the current attacker/defender line-up of a raid
type RaidRoster struct {
	Raid      *RaidRecord
	Attackers []*ParticipantDetail
	Defenders []*ParticipantDetail
}

// NewRaidRoster splits participants by side
func NewRaidRoster(raid *RaidRecord, participants []*ParticipantDetail) *RaidRoster {
	roster := &RaidRoster{Raid: raid}
	for _, p := range participants {
		if p.Side == RaidSideAttacker {
			roster.Attackers = append(roster.Attackers, p)
		} else {
			roster.Defenders = append(roster.Defenders, p)
		}
	}
	return roster
}

// Side returns the participants on the given side
func (r *RaidRoster) Side(side RaidSide) []*ParticipantDetail {
	if side == RaidSideAttacker {
		return r.Attackers
	}
	return r.Defenders
}

// Allies returns tags on a side other than that side's primary combatant
func (r *RaidRoster) Allies(side RaidSide) []string {
	primary := r.Raid.PrimaryFor(side)
	allies := make([]string, 0)
	for _, p := range r.Side(side) {
		if p.FactionTag != primary {
			allies = append(allies, p.FactionTag)
		}
	}
	return allies
}

// IsForfeit reports whether either side has nobody committed
func (r *RaidRoster) IsForfeit() bool {
	return len(r.Attackers) == 0 || len(r.Defenders) == 0
}

// RaidActionKind is the kind of persisted timeline action
type RaidActionKind string

const (
	RaidActionCloseRecruitment RaidActionKind = "close_recruitment"
	RaidActionAdvancePhase     RaidActionKind = "advance_phase"
)

// RaidActionStatus tracks whether a scheduled action has run
type RaidActionStatus string

const (
	RaidActionStatusPending   RaidActionStatus = "pending"
	RaidActionStatusDone      RaidActionStatus = "done"
	RaidActionStatusCancelled RaidActionStatus = "cancelled"
)

// ScheduledRaidAction is a persisted "next action due at T" record on a raid's timeline
type ScheduledRaidAction struct {
	ID          int64            `db:"id"`
	RaidID      int64            `db:"raid_id"`
	Kind        RaidActionKind   `db:"kind"`
	DueAt       time.Time        `db:"due_at"`
	Status      RaidActionStatus `db:"status"`
	CreatedAt   time.Time        `db:"created_at"`
	CompletedAt *time.Time       `db:"completed_at"`
}

// IsDue reports whether the action should run at now
func (a *ScheduledRaidAction) IsDue(now time.Time) bool {
	return a.Status == RaidActionStatusPending && !now.Before(a.DueAt)
}
