package observability

// Metric name prefixes
const (
	MetricPrefix = "guildwar"
)

// Metric names
const (
	// Raid metrics
	RaidsDeclaredTotal = MetricPrefix + ".raids.declared_total"
	RaidsResolvedTotal = MetricPrefix + ".raids.resolved_total"
	RaidsAbortedTotal  = MetricPrefix + ".raids.aborted_total"
	RaidsActive        = MetricPrefix + ".raids.active"

	// Settlement metrics
	SettlementDuration = MetricPrefix + ".settlement.duration"

	// Rejection metrics
	RejectionsTotal = MetricPrefix + ".requests.rejections_total"

	// Scheduler metrics
	RaidActionsProcessedTotal = MetricPrefix + ".scheduler.actions_processed_total"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelForfeit   = "forfeit"
	LabelReason    = "reason"
	LabelKind      = "kind"
	LabelStatus    = "status"
)

// Scheduler action statuses
const (
	ActionStatusDone    = "done"
	ActionStatusSkipped = "skipped"
	ActionStatusFailed  = "failed"
)
