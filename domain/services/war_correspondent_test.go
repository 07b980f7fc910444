package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"guildwar/domain/entities"
	"guildwar/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWarCorrespondent_Dispatch(t *testing.T) {
	t.Parallel()

	lapsed := testNow.Add(-time.Hour)
	mocks := NewTestMocks()
	mocks.RelationshipRepo.On("ListForFaction", mock.Anything, TestAttackerTag).Return([]*entities.Relationship{
		{TagA: TestAllyTag, TagB: TestAttackerTag, Status: entities.RelationshipAlliance},
		{TagA: TestAttackerTag, TagB: TestOppTag, Status: entities.RelationshipTruce},
		// The combatants' own standing is not news to either of them
		{TagA: TestAttackerTag, TagB: TestDefenderTag, Status: entities.RelationshipEnemy},
	}, nil)
	mocks.RelationshipRepo.On("ListForFaction", mock.Anything, TestDefenderTag).Return([]*entities.Relationship{
		{TagA: TestDefenderTag, TagB: TestThirdTag, Status: entities.RelationshipEnemy},
		{TagA: TestAllyTag, TagB: TestDefenderTag, Status: entities.RelationshipTruce, ExpiresAt: &lapsed},
	}, nil)
	published := capturePublished(mocks)

	correspondent := NewWarCorrespondent(mocks.RelationshipRepo, mocks.EventPublisher).withClock(fixedClock)
	sent, err := correspondent.Dispatch(context.Background(), newTestRaid(5, 5), events.DispatchStageSettled, entities.RaidOutcomeSuccess)

	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, *published, 2)

	first := (*published)[0].(events.WarDispatchEvent)
	assert.Equal(t, TestAllyTag, first.RecipientTag)
	assert.Equal(t, TestAttackerTag, first.SubjectTag)
	assert.Equal(t, entities.RelationshipAlliance, first.Relation)
	assert.Equal(t, entities.RaidSideAttacker, first.SubjectSide)
	assert.Equal(t, entities.RaidOutcomeSuccess, first.Outcome)

	second := (*published)[1].(events.WarDispatchEvent)
	assert.Equal(t, TestThirdTag, second.RecipientTag)
	assert.Equal(t, entities.RelationshipEnemy, second.Relation)
	assert.Equal(t, entities.RaidSideDefender, second.SubjectSide)
}

func TestWarCorrespondent_ListFailure(t *testing.T) {
	t.Parallel()

	mocks := NewTestMocks()
	mocks.RelationshipRepo.On("ListForFaction", mock.Anything, TestAttackerTag).Return(nil, errors.New("connection reset"))

	correspondent := NewWarCorrespondent(mocks.RelationshipRepo, mocks.EventPublisher)
	_, err := correspondent.Dispatch(context.Background(), newTestRaid(5, 5), events.DispatchStageDeclared, entities.RaidOutcomePending)

	assert.Error(t, err)
	mocks.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
}
