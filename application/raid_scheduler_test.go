package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"guildwar/application"
	"guildwar/application/dto"
	"guildwar/domain/entities"
	"guildwar/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	mu      sync.Mutex
	handled []int64
}

func (c *countingHandler) HandleAction(ctx context.Context, action *entities.ScheduledRaidAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handled = append(c.handled, action.ID)
	return nil
}

func TestRaidScheduler_ProcessDueSkipsFutureActions(t *testing.T) {
	t.Parallel()
	h := newRaidHarness(t)
	ctx := context.Background()

	// The harness declares with a one minute window, so nothing is due yet
	h.declare(1, "DEF")

	handler := &countingHandler{}
	scheduler := application.NewRaidScheduler(h.uowFactory, handler, 2, time.Minute)

	count, err := scheduler.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, handler.handled)
}

func TestRaidScheduler_DrivesRaidToSettlement(t *testing.T) {
	t.Parallel()
	h := newRaidHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dice := fixedDice{face: 20}
	orchestrator := application.NewRaidOrchestrator(h.uowFactory, dice, h.metrics, 50*time.Millisecond, 100*time.Millisecond)
	scheduler := application.NewRaidScheduler(h.uowFactory, orchestrator, 4, 50*time.Millisecond)
	commands := application.NewCommandHandler(h.uowFactory, dice, h.metrics, 100*time.Millisecond, scheduler)

	stop := scheduler.Start(ctx)
	defer stop()

	h.commands = commands
	raid := h.declare(1, "DEF")

	assert.Eventually(t, func() bool {
		return h.raid(raid.ID).Phase == entities.RaidPhaseResolved
	}, 10*time.Second, 50*time.Millisecond)

	// Nobody joined, so the attacker side forfeits
	settled := h.raid(raid.ID)
	assert.True(t, settled.Forfeit)
	assert.Equal(t, entities.RaidOutcomeFailure, settled.Outcome)
	assert.Equal(t, int64(3300), testutil.Treasury(t, h.testDB.DB, "DEF"))
	assert.Empty(t, h.pendingActions())
}

func TestRaidScheduler_RunsEachRaidOnce(t *testing.T) {
	t.Parallel()
	h := newRaidHarness(t)
	ctx := context.Background()

	dice := fixedDice{face: 20}
	commands := application.NewCommandHandler(h.uowFactory, dice, h.metrics, time.Millisecond, nil)
	h.commands = commands

	first := h.declare(1, "DEF")
	second := h.send(dto.CommandRaidDeclare, dto.TargetRequest{RequesterID: 3, TargetTag: "ATK"})
	require.True(t, second.OK, "declare failed: %+v", second.Rejection)
	time.Sleep(10 * time.Millisecond)

	orchestrator := application.NewRaidOrchestrator(h.uowFactory, dice, h.metrics, time.Hour, time.Millisecond)
	scheduler := application.NewRaidScheduler(h.uowFactory, orchestrator, 1, time.Minute)

	count, err := scheduler.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = scheduler.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.Equal(t, entities.RaidPhaseResolved, h.raid(first.ID).Phase)
	assert.Len(t, h.metrics.settled, 2)
}
