package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/delivery"
	"standup_bot/internal/domain/messenger"
	"standup_bot/internal/infra/config"
	idb "standup_bot/internal/infra/database"
	"standup_bot/internal/infra/discord"
	"standup_bot/internal/infra/logger"
	"standup_bot/internal/infra/publish"
	"standup_bot/internal/infra/scheduler"
	"standup_bot/internal/infra/sessioncache"
	"standup_bot/internal/infra/telegram"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Standup Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.WithField("platform", cfg.Platform).Info("Configuration loaded")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize Repositories
	rosterRepo := idb.NewPostgresRosterRepository(db)
	workspaceRepo := idb.NewPostgresWorkspaceRepository(db)
	standupRepo := idb.NewPostgresStandupRepository(db)
	deliveryRepo := idb.NewPostgresDeliveryRepository(db)
	log.Info("Repositories initialized")

	// Session cache: Redis when configured, in-process otherwise.
	var cache app.SessionCache
	if cfg.RedisURL != "" {
		redisCache, err := sessioncache.NewRedis(cfg.RedisURL, log)
		if err != nil {
			log.WithError(err).Fatal("Could not connect to Redis")
		}
		defer redisCache.Close()
		cache = redisCache
		log.Info("Redis session cache initialized")
	} else {
		cache = sessioncache.NewMemory()
		log.Info("In-memory session cache initialized")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Platform adapter
	var client messenger.Client
	var startBot func()
	var stopBot func()

	var telegramBot *telebot.Bot
	var discordSession *discordgo.Session

	switch cfg.Platform {
	case config.PlatformTelegram:
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := log.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
				}
				entry.Error("Telegram handler error")
			},
		}
		telegramBot, err = telebot.NewBot(pref)
		if err != nil {
			log.WithError(err).Fatal("Could not create Telegram bot")
		}
		client = telegram.NewTelebotAdapter(telegramBot)
	case config.PlatformDiscord:
		dg, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			log.WithError(err).Fatal("Could not create Discord session")
		}
		discordSession = dg
		client = discord.NewDiscordAdapter(dg)
	}

	// Application services
	flowService := app.NewFlowService(standupRepo, rosterRepo, workspaceRepo, cache, log)
	rosterService := app.NewRosterService(rosterRepo)
	workspaceService := app.NewWorkspaceService(workspaceRepo)

	csvPublisher := publish.NewCSVPublisher(cfg.ExportDir, standupRepo)
	publishers := map[delivery.Destination]delivery.Publisher{
		delivery.DestinationDiscord: publish.NewChatPublisher(client, workspaceRepo),
		delivery.DestinationCSV:     csvPublisher,
	}
	if cfg.SheetsToken != "" {
		publishers[delivery.DestinationSheets] = publish.NewSheetsPublisher(cfg.SheetsToken, workspaceRepo)
	}
	if cfg.NotionToken != "" {
		publishers[delivery.DestinationNotion] = publish.NewNotionPublisher(cfg.NotionToken, workspaceRepo)
	}

	deliveryService := app.NewDeliveryService(workspaceRepo, standupRepo, deliveryRepo, publishers, log)
	runService := app.NewRunService(workspaceRepo, rosterRepo, standupRepo, client, deliveryService, log)
	cleanupService := app.NewCleanupService(workspaceRepo, standupRepo, deliveryRepo, rosterRepo, log)
	log.Info("Application services initialized")

	// Register platform handlers
	switch cfg.Platform {
	case config.PlatformTelegram:
		baseLogger := log.WithField("component", "telegram")
		telegram.RegisterBotCommands(ctx, telegramBot, flowService, baseLogger)
		telegram.RegisterFlowHandlers(ctx, telegramBot, flowService, baseLogger)
		telegram.RegisterAdminHandlers(ctx, telegramBot, telegram.AdminServices{
			Roster:    rosterService,
			Workspace: workspaceService,
			Runs:      runService,
			Delivery:  deliveryService,
			Exporter:  csvPublisher,
		}, baseLogger)
		startBot = func() { go telegramBot.Start() }
		stopBot = telegramBot.Stop
	case config.PlatformDiscord:
		baseLogger := log.WithField("component", "discord")
		handler := discord.NewBotHandler(ctx, flowService, rosterService, workspaceService,
			runService, deliveryService, csvPublisher, baseLogger)
		handler.Register(discordSession)
		startBot = func() {
			if err := discordSession.Open(); err != nil {
				log.WithError(err).Fatal("Could not open Discord gateway connection")
			}
			discord.RegisterCommands(discordSession, log)
		}
		stopBot = func() {
			if err := discordSession.Close(); err != nil {
				log.WithError(err).Warn("Error closing Discord session")
			}
		}
	}

	// Scheduler
	standupScheduler := scheduler.NewStandupScheduler(
		workspaceRepo,
		runService,
		deliveryService,
		cleanupService,
		log,
		cfg.CronSpecStandupTick,
		cfg.CronSpecDeliveryTick,
		cfg.CronSpecCleanup,
	)
	if err := standupScheduler.Start(); err != nil {
		log.WithError(err).Fatal("Could not start scheduler")
	}

	startBot()
	log.Info("Application setup complete. Bot and scheduler are running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	cancel()
	standupScheduler.Stop()
	if stopBot != nil {
		stopBot()
	}
	log.Info("Application shut down gracefully")
}
