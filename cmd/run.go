package cmd

import (
	"context"
	"fmt"
	"time"

	"guildwar/application"
	"guildwar/bot"
	"guildwar/config"
	"guildwar/database"
	"guildwar/domain/services"
	"guildwar/infrastructure"
	"guildwar/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const commandQueueGroup = "guildwar-commands"

// Run initializes and starts the raid engine and the war room bot
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting guild war engine...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return err
	}
	defer natsClient.Close()

	subjectMapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureDomainEventStream(natsClient, subjectMapper); err != nil {
		return fmt.Errorf("failed to ensure event stream: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(natsClient, subjectMapper, metrics)
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)
	dice := services.NewCryptoDice()

	orchestrator := application.NewRaidOrchestrator(uowFactory, dice, metrics, cfg.NarrationPhaseDelay, cfg.RecruitmentWindow)
	recovered, err := orchestrator.RecoverInterruptedRaids(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover interrupted raids: %w", err)
	}
	if recovered > 0 {
		log.WithField("count", recovered).Warn("Aborted raids interrupted by the last shutdown")
	}

	scheduler := application.NewRaidScheduler(uowFactory, orchestrator, cfg.SchedulerConcurrency, cfg.SchedulerPollInterval)
	commands := application.NewCommandHandler(uowFactory, dice, metrics, cfg.RecruitmentWindow, scheduler)

	// Commands are answered over core NATS so other front ends can drive the engine
	if err := natsClient.Reply(application.CommandSubjectPrefix+">", commandQueueGroup, func(subject string, data []byte) []byte {
		return commands.Handle(ctx, subject, data)
	}); err != nil {
		return err
	}

	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:            cfg.DiscordToken,
		GuildID:          cfg.GuildID,
		WarChannelID:     cfg.WarChannelID,
		FactionCacheSize: cfg.FactionCacheSize,
		BattleReports:    cfg.BattleReports,
	}, uowFactory, commands)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	defer func() {
		if err := discordBot.Close(); err != nil {
			log.WithError(err).Error("Error closing Discord bot")
		}
	}()

	subscriber := infrastructure.NewNATSEventSubscriber(natsClient, subjectMapper, metrics)
	if err := bot.RegisterBotSubscriptions(subscriber, discordBot.Announcer()); err != nil {
		return err
	}

	healthServer, err := infrastructure.NewHealthServer(cfg.AdminGRPCAddr, 10*time.Second)
	if err != nil {
		return err
	}
	healthServer.AddProbe("database", infrastructure.HealthProbe(db.Ping))
	healthServer.AddProbe("nats", infrastructure.NATSProbe(natsClient))

	stopScheduler := scheduler.Start(ctx)
	defer stopScheduler()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthServer.Serve(gctx)
	})

	log.Info("Guild war engine is running")
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Shutting down guild war engine...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush metrics")
	}
	return nil
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
