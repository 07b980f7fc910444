package entities

const (
	// VulnerabilityThreshold is the treasury below which tier mitigation is ignored
	VulnerabilityThreshold = 500

	VulnerableVaultPercent  = 30
	VulnerableMemberPercent = 10

	ProtectedMemberPercent = 2
	ProtectedMemberCap     = 500

	// MinVaultLoot keeps near-empty vaults from surviving a successful raid
	MinVaultLoot = 50

	BullyPenalty      = -4
	KingslayerBonus   = 3
	OpportunistDebuff = -1
)

// MitigatedVaultPercent is the share of a non-vulnerable vault taken at the defender's tier
func MitigatedVaultPercent(tier int) int {
	percent := 20 - tier
	if percent < 5 {
		percent = 5
	}
	return percent
}

// ModifierLine is one itemized contribution to attack power or defense resistance
type ModifierLine struct {
	Source string   `json:"source"`
	Side   RaidSide `json:"side"`
	Value  int      `json:"value"`
}

// BattleReport is the full scoring breakdown of a resolved battle
type BattleReport struct {
	Roll              int            `json:"roll"`
	AttackerPower     int            `json:"attacker_power"`
	DefenseResistance int            `json:"defense_resistance"`
	AttackModifier    int            `json:"attack_modifier"`
	DefenseModifier   int            `json:"defense_modifier"`
	Lines             []ModifierLine `json:"lines"`
	CataclysmChance   int            `json:"cataclysm_chance"`
	Cataclysm         bool           `json:"cataclysm"`
	AttackerWins      bool           `json:"attacker_wins"`
}

// LootBreakdown records how the attacker's haul was computed
type LootBreakdown struct {
	Vulnerable        bool  `json:"vulnerable"`
	VaultPercent      int   `json:"vault_percent"`
	VaultLoot         int64 `json:"vault_loot"`
	MemberLoot        int64 `json:"member_loot"`
	MembersRobbed     int   `json:"members_robbed"`
	Gross             int64 `json:"gross"`
	EscapeLossPercent int   `json:"escape_loss_percent"`
	EscapeLoss        int64 `json:"escape_loss"`
	Net               int64 `json:"net"`
}

// WagerPayout describes how a raid's wager pool was distributed
type WagerPayout struct {
	Pool        int64    `json:"pool"`
	PerWinner   int64    `json:"per_winner"`
	Paid        []string `json:"paid"`
	Failed      []string `json:"failed"`
	Forfeited   int64    `json:"forfeited"`
	LostToChaos bool     `json:"lost_to_chaos"`
}

// SettlementSummary is everything the presentation layer needs to report a finished raid
type SettlementSummary struct {
	Raid                 *RaidRecord    `json:"raid"`
	Outcome              RaidOutcome    `json:"outcome"`
	Forfeit              bool           `json:"forfeit"`
	Battle               *BattleReport  `json:"battle,omitempty"`
	Loot                 *LootBreakdown `json:"loot,omitempty"`
	BountyClaimed        int64          `json:"bounty_claimed"`
	Wager                *WagerPayout   `json:"wager,omitempty"`
	DefenderCompensation int64          `json:"defender_compensation"`
	DefenderDestroyed    bool           `json:"defender_destroyed"`
	AttackerAllies       []string       `json:"attacker_allies"`
	DefenderAllies       []string       `json:"defender_allies"`
	Notes                []string       `json:"notes"`
}

// AttackerWon reports whether the raid succeeded
func (s *SettlementSummary) AttackerWon() bool {
	return s.Outcome == RaidOutcomeSuccess
}
