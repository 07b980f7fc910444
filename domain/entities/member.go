package entities

import "time"

// MemberRole is a user's rank inside their faction
type MemberRole string

const (
	MemberRoleOwner   MemberRole = "owner"
	MemberRoleOfficer MemberRole = "officer"
	MemberRoleMember  MemberRole = "member"
)

// HasLeadership reports whether the role may act on behalf of the faction
func (r MemberRole) HasLeadership() bool {
	return r == MemberRoleOwner || r == MemberRoleOfficer
}

// User is a Discord user with a personal balance
type User struct {
	DiscordID int64     `db:"discord_id"`
	Username  string    `db:"username"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Membership links a user to a faction
type Membership struct {
	DiscordID  int64      `db:"discord_id"`
	FactionTag string     `db:"faction_tag"`
	Role       MemberRole `db:"role"`
	JoinedAt   time.Time  `db:"joined_at"`
}

// FactionMember is a membership together with the member's personal balance
type FactionMember struct {
	Membership
	Username string
	Balance  int64
}

// TemporaryGrantKind names a time-limited status granted to a user
type TemporaryGrantKind string

const (
	GrantSuccessfulDefender TemporaryGrantKind = "successful_defender"

	SuccessfulDefenderDuration = 24 * time.Hour
)

// TemporaryGrant is a time-limited status held by a user
type TemporaryGrant struct {
	DiscordID  int64              `db:"discord_id"`
	Kind       TemporaryGrantKind `db:"grant_kind"`
	FactionTag string             `db:"faction_tag"`
	ExpiresAt  time.Time          `db:"expires_at"`
	GrantedAt  time.Time          `db:"granted_at"`
}

// IsActive reports whether the grant is still in force
func (g *TemporaryGrant) IsActive(now time.Time) bool {
	return now.Before(g.ExpiresAt)
}
