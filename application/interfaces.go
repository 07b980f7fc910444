package application

import (
	"context"
	"time"

	"guildwar/domain/events"
)

// RaidMetrics records raid pipeline metrics. The observability provider implements it.
type RaidMetrics interface {
	RecordRaidDeclared()
	RecordRaidSettled(outcome string, forfeit bool, duration time.Duration)
	RecordRaidAborted(reason string)
	RecordRejection(reason string)
	RecordActionProcessed(kind string, status string)
}

// Status labels for processed raid actions
const (
	ActionDone    = "done"
	ActionSkipped = "skipped"
	ActionFailed  = "failed"
)

// EventSubscriber delivers events taken off the bus to application handlers
type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordRaidDeclared() {}
func (NoopMetrics) RecordRaidSettled(string, bool, time.Duration) {}
func (NoopMetrics) RecordRaidAborted(string) {}
func (NoopMetrics) RecordRejection(string) {}
func (NoopMetrics) RecordActionProcessed(string, string) {}
