package application

import (
	"context"
	"fmt"
	"time"

	"guildwar/domain/entities"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultPollInterval bounds how long the scheduler sleeps when nothing is due
	DefaultPollInterval = time.Minute

	dueBatchSize = 50
	minWait      = 200 * time.Millisecond
)

// ActionHandler runs one persisted raid action
type ActionHandler interface {
	HandleAction(ctx context.Context, action *entities.ScheduledRaidAction) error
}

// RaidScheduler polls persisted raid actions and runs the due ones. Actions of
// different raids run concurrently, bounded by a weighted semaphore.
type RaidScheduler struct {
	uowFactory   UnitOfWorkFactory
	handler      ActionHandler
	sem          *semaphore.Weighted
	pollInterval time.Duration
	wake         chan struct{}
	now          func() time.Time
}

// NewRaidScheduler creates a new raid scheduler
func NewRaidScheduler(uowFactory UnitOfWorkFactory, handler ActionHandler, concurrency int64, pollInterval time.Duration) *RaidScheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &RaidScheduler{
		uowFactory:   uowFactory,
		handler:      handler,
		sem:          semaphore.NewWeighted(concurrency),
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Wake makes a sleeping scheduler re-read the timeline, e.g. after a declaration
func (s *RaidScheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start begins the scheduler loop and returns a function that stops it
func (s *RaidScheduler) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Raid scheduler started")

		for {
			if _, err := s.ProcessDue(ctx); err != nil {
				log.Errorf("Error processing due raid actions: %v", err)
			}

			wait := s.nextWait(ctx)

			select {
			case <-ctx.Done():
				log.Info("Raid scheduler shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Raid scheduler shutting down (stop requested)...")
				return
			case <-s.wake:
			case <-time.After(wait):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// ProcessDue runs every action due now and returns how many were attempted
func (s *RaidScheduler) ProcessDue(ctx context.Context) (int, error) {
	actions, err := s.listDue(ctx)
	if err != nil {
		return 0, err
	}
	if len(actions) == 0 {
		return 0, nil
	}

	log.WithField("count", len(actions)).Debug("Processing due raid actions")

	g, gctx := errgroup.WithContext(ctx)
	for _, action := range actions {
		if err := s.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer s.sem.Release(1)
			if err := s.handler.HandleAction(gctx, action); err != nil {
				log.WithFields(log.Fields{
					"actionID": action.ID,
					"raidID":   action.RaidID,
					"kind":     action.Kind,
				}).WithError(err).Error("Raid action failed")
			}
			// One raid failing must not cancel the others
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return len(actions), err
	}
	return len(actions), ctx.Err()
}

func (s *RaidScheduler) listDue(ctx context.Context) ([]*entities.ScheduledRaidAction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actions, err := uow.RaidActionRepository().ListDue(ctx, s.now(), dueBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due raid actions: %w", err)
	}
	return actions, nil
}

// nextWait sleeps until the earliest pending action, never longer than the poll interval
func (s *RaidScheduler) nextWait(ctx context.Context) time.Duration {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.Errorf("Failed to begin transaction for next due time: %v", err)
		return s.pollInterval
	}
	defer uow.Rollback()

	next, err := uow.RaidActionRepository().GetNextDueTime(ctx)
	if err != nil {
		log.Errorf("Failed to get next due time: %v", err)
		return s.pollInterval
	}
	if next == nil {
		return s.pollInterval
	}

	wait := next.Sub(s.now())
	if wait < minWait {
		return minWait
	}
	if wait > s.pollInterval {
		return s.pollInterval
	}
	return wait
}
