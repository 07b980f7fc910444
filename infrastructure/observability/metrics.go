package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"guildwar/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the raid engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	raidsDeclaredCounter         metric.Int64Counter
	raidsResolvedCounter         metric.Int64Counter
	raidsAbortedCounter          metric.Int64Counter
	raidsActiveGauge             metric.Int64UpDownCounter
	settlementDurationHist       metric.Float64Histogram
	rejectionsCounter            metric.Int64Counter
	actionsProcessedCounter      metric.Int64Counter
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.useMeter(mp.meterProvider.Meter("guildwar")); err != nil {
		return err
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// useMeter creates the instruments on meter and turns recording on
func (mp *MetricsProvider) useMeter(meter metric.Meter) error {
	mp.meter = meter
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.raidsDeclaredCounter, err = mp.meter.Int64Counter(
		RaidsDeclaredTotal,
		metric.WithDescription("Total number of raids declared"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create raids declared counter: %w", err)
	}

	mp.raidsResolvedCounter, err = mp.meter.Int64Counter(
		RaidsResolvedTotal,
		metric.WithDescription("Total number of raids settled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create raids resolved counter: %w", err)
	}

	mp.raidsAbortedCounter, err = mp.meter.Int64Counter(
		RaidsAbortedTotal,
		metric.WithDescription("Total number of raids forced to failure after a fatal error"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create raids aborted counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior
	mp.raidsActiveGauge, err = mp.meter.Int64UpDownCounter(
		RaidsActive,
		metric.WithDescription("Current number of raids that have not reached a terminal phase"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create raids active gauge: %w", err)
	}

	mp.settlementDurationHist, err = mp.meter.Float64Histogram(
		SettlementDuration,
		metric.WithDescription("Duration of raid settlement transactions in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement duration histogram: %w", err)
	}

	mp.rejectionsCounter, err = mp.meter.Int64Counter(
		RejectionsTotal,
		metric.WithDescription("Total number of requests refused with a rejection reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rejections counter: %w", err)
	}

	mp.actionsProcessedCounter, err = mp.meter.Int64Counter(
		RaidActionsProcessedTotal,
		metric.WithDescription("Total number of scheduled raid actions processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create actions processed counter: %w", err)
	}

	mp.natsMessagesReceivedCounter, err = mp.meter.Int64Counter(
		NATSMessagesReceivedTotal,
		metric.WithDescription("Total number of NATS messages received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages received counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordRaidDeclared records a committed raid declaration
func (mp *MetricsProvider) RecordRaidDeclared() {
	if !mp.isEnabled() {
		return
	}
	mp.raidsDeclaredCounter.Add(context.Background(), 1)
	mp.raidsActiveGauge.Add(context.Background(), 1)
}

// RecordRaidSettled records a settled raid and how long its settlement transaction took
func (mp *MetricsProvider) RecordRaidSettled(outcome string, forfeit bool, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelOutcome, outcome),
		attribute.String(LabelForfeit, strconv.FormatBool(forfeit)),
	)
	mp.raidsResolvedCounter.Add(context.Background(), 1, attrs)
	mp.settlementDurationHist.Record(context.Background(), duration.Seconds(), attrs)
	mp.raidsActiveGauge.Add(context.Background(), -1)
}

// RecordRaidAborted records a raid forced to failure
func (mp *MetricsProvider) RecordRaidAborted(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.raidsAbortedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
	mp.raidsActiveGauge.Add(context.Background(), -1)
}

// RecordRejection records a refused request by reason
func (mp *MetricsProvider) RecordRejection(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.rejectionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordActionProcessed records the result of running a scheduled raid action
func (mp *MetricsProvider) RecordActionProcessed(kind string, status string) {
	if !mp.isEnabled() {
		return
	}
	mp.actionsProcessedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelKind, kind),
			attribute.String(LabelStatus, status),
		),
	)
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled checks if metrics are initialized with a live meter
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
