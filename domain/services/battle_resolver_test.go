package services

import (
	"fmt"
	"testing"

	"guildwar/domain/entities"
	"guildwar/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBattleResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		attackerTier     int
		defenderTier     int
		attackerAttitude entities.Attitude
		defenderAttitude entities.Attitude
		extra            []*entities.ParticipantDetail
		dice             *testhelpers.ScriptedDice
		wantPower        int
		wantResistance   int
		wantCataclysm    bool
		wantWin          bool
	}{
		{
			name:             "equal tier 5 without allies cannot reach base armor class",
			attackerTier:     5,
			defenderTier:     5,
			attackerAttitude: entities.AttitudeNeutral,
			defenderAttitude: entities.AttitudeNeutral,
			dice:             &testhelpers.ScriptedDice{Rolls: []int{20}},
			wantPower:        22,
			wantResistance:   23,
			wantWin:          false,
		},
		{
			name:             "aggressive coalition beats defensive defender",
			attackerTier:     5,
			defenderTier:     5,
			attackerAttitude: entities.AttitudeAggressive,
			defenderAttitude: entities.AttitudeDefensive,
			extra: []*entities.ParticipantDetail{
				newTestParticipant(TestAllyTag, entities.RaidSideAttacker, 7, entities.AttitudeAggressive),
			},
			dice:           &testhelpers.ScriptedDice{Rolls: []int{18}, Chances: []bool{false}},
			wantPower:      18 + 2 + 3 + 2,
			wantResistance: 23 + 1,
			wantWin:        true,
		},
		{
			name:             "cataclysm overrides a winning roll",
			attackerTier:     5,
			defenderTier:     5,
			attackerAttitude: entities.AttitudeAggressive,
			defenderAttitude: entities.AttitudeDefensive,
			extra: []*entities.ParticipantDetail{
				newTestParticipant(TestAllyTag, entities.RaidSideAttacker, 7, entities.AttitudeAggressive),
			},
			dice:           &testhelpers.ScriptedDice{Rolls: []int{18}, Chances: []bool{true}},
			wantPower:      25,
			wantResistance: 24,
			wantCataclysm:  true,
			wantWin:        false,
		},
		{
			name:             "neutral defender ignores stances but not the kingslayer bonus",
			attackerTier:     4,
			defenderTier:     5,
			attackerAttitude: entities.AttitudeAggressive,
			defenderAttitude: entities.AttitudeNeutral,
			dice:             &testhelpers.ScriptedDice{Rolls: []int{20}},
			wantPower:        20 + 2 + 3,
			wantResistance:   23,
			wantWin:          true,
		},
		{
			name:             "bully penalty",
			attackerTier:     8,
			defenderTier:     5,
			attackerAttitude: entities.AttitudeNeutral,
			defenderAttitude: entities.AttitudeNeutral,
			dice:             &testhelpers.ScriptedDice{Rolls: []int{20}},
			wantPower:        20 + 3 - 4,
			wantResistance:   23,
			wantWin:          false,
		},
		{
			name:             "tie goes to the attacker",
			attackerTier:     5,
			defenderTier:     5,
			attackerAttitude: entities.AttitudeNeutral,
			defenderAttitude: entities.AttitudeNeutral,
			extra: []*entities.ParticipantDetail{
				newTestParticipant(TestAllyTag, entities.RaidSideAttacker, 1, entities.AttitudeNeutral),
			},
			dice:           &testhelpers.ScriptedDice{Rolls: []int{20}},
			wantPower:      23,
			wantResistance: 23,
			wantWin:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raid := newTestRaid(tt.attackerTier, tt.defenderTier)
			roster := newTestRoster(raid, tt.attackerAttitude, tt.defenderAttitude, tt.extra...)

			report := NewBattleResolver(tt.dice).Resolve(roster, tt.defenderAttitude)

			assert.Equal(t, tt.wantPower, report.AttackerPower)
			assert.Equal(t, tt.wantResistance, report.DefenseResistance)
			assert.Equal(t, tt.wantCataclysm, report.Cataclysm)
			assert.Equal(t, tt.wantWin, report.AttackerWins)
			assert.Empty(t, tt.dice.Rolls, "every scripted roll should be consumed")
		})
	}
}

func TestBattleResolver_OpportunistSabotage(t *testing.T) {
	t.Parallel()

	raid := newTestRaid(5, 5)
	roster := newTestRoster(raid, entities.AttitudeNeutral, entities.AttitudeDefensive,
		newTestParticipant(TestOppTag, entities.RaidSideAttacker, 1, entities.AttitudeOpportunist),
	)
	// Opportunist coin flip succeeds, cataclysm does not
	dice := &testhelpers.ScriptedDice{Rolls: []int{10}, Chances: []bool{true, false}}

	report := NewBattleResolver(dice).Resolve(roster, entities.AttitudeDefensive)

	assert.Equal(t, 0, report.DefenseModifier, "defensive +1 cancelled by sabotage -1")
	assert.Equal(t, 23+1+0, report.DefenseResistance)
	assert.Contains(t, report.Lines, entities.ModifierLine{
		Source: fmt.Sprintf("%s opportunist sabotage", TestOppTag),
		Side:   entities.RaidSideDefender,
		Value:  entities.OpportunistDebuff,
	})
}

func TestBattleResolver_AbsentPrimaryGetsNoStance(t *testing.T) {
	t.Parallel()

	raid := newTestRaid(5, 5)
	// The defender never joined; only an ally holds the walls
	roster := entities.NewRaidRoster(raid, []*entities.ParticipantDetail{
		newTestParticipant(TestAttackerTag, entities.RaidSideAttacker, 5, entities.AttitudeNeutral),
		newTestParticipant(TestAllyTag, entities.RaidSideDefender, 2, entities.AttitudeNeutral),
	})
	dice := &testhelpers.ScriptedDice{Rolls: []int{10}, Chances: []bool{false}}

	report := NewBattleResolver(dice).Resolve(roster, entities.AttitudeDefensive)

	assert.Equal(t, 0, report.DefenseModifier)
	assert.Equal(t, 23+1, report.DefenseResistance)
	assert.Equal(t, 8, report.CataclysmChance, "absent defensive primary still threatens a cataclysm")
}

func TestCataclysmChance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		defenderTier     int
		defenderAttitude entities.Attitude
		allies           []*entities.ParticipantDetail
		want             int
	}{
		{"neutral defender", 15, entities.AttitudeNeutral, nil, 0},
		{"defensive tier 1 primary", 1, entities.AttitudeDefensive, nil, 4},
		{"defensive tier 5 primary", 5, entities.AttitudeDefensive, nil, 8},
		{"defensive tier 15 primary", 15, entities.AttitudeDefensive, nil, 20},
		{
			name:             "defensive ally outranks primary",
			defenderTier:     2,
			defenderAttitude: entities.AttitudeDefensive,
			allies: []*entities.ParticipantDetail{
				newTestParticipant(TestAllyTag, entities.RaidSideDefender, 13, entities.AttitudeDefensive),
			},
			want: 10,
		},
		{
			name:             "non-defensive ally contributes nothing",
			defenderTier:     2,
			defenderAttitude: entities.AttitudeNeutral,
			allies: []*entities.ParticipantDetail{
				newTestParticipant(TestAllyTag, entities.RaidSideDefender, 13, entities.AttitudeAggressive),
			},
			want: 0,
		},
		{
			name:             "defensive ally behind neutral primary",
			defenderTier:     9,
			defenderAttitude: entities.AttitudeNeutral,
			allies: []*entities.ParticipantDetail{
				newTestParticipant(TestAllyTag, entities.RaidSideDefender, 4, entities.AttitudeDefensive),
			},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raid := newTestRaid(5, tt.defenderTier)
			roster := newTestRoster(raid, entities.AttitudeNeutral, tt.defenderAttitude, tt.allies...)
			assert.Equal(t, tt.want, CataclysmChance(roster, tt.defenderAttitude))
		})
	}
}

// A tier-15 Defensive defender forces failure about one raid in five even against an overwhelming coalition
func TestBattleResolver_CataclysmFrequency(t *testing.T) {
	t.Parallel()

	raid := newTestRaid(15, 15)
	var allies []*entities.ParticipantDetail
	for i := 0; i < 6; i++ {
		allies = append(allies, newTestParticipant(fmt.Sprintf("A%02d", i), entities.RaidSideAttacker, 15, entities.AttitudeNeutral))
	}
	roster := newTestRoster(raid, entities.AttitudeNeutral, entities.AttitudeDefensive, allies...)
	resolver := NewBattleResolver(NewCryptoDice())

	const trials = 5000
	failures := 0
	for i := 0; i < trials; i++ {
		report := resolver.Resolve(roster, entities.AttitudeDefensive)
		require.GreaterOrEqual(t, report.AttackerPower, report.DefenseResistance)
		if !report.AttackerWins {
			require.True(t, report.Cataclysm)
			failures++
		}
	}

	rate := float64(failures) / trials
	assert.InDelta(t, 0.20, rate, 0.04, "cataclysm rate %.3f", rate)
}
