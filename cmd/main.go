package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/flatwatch/realty-bot/internal/bot"
	"github.com/flatwatch/realty-bot/internal/clients/realty"
	"github.com/flatwatch/realty-bot/internal/config"
	"github.com/flatwatch/realty-bot/internal/logger"
	"github.com/flatwatch/realty-bot/internal/metrics"
	"github.com/flatwatch/realty-bot/internal/repositories"
	"github.com/flatwatch/realty-bot/internal/resilience"
	"github.com/flatwatch/realty-bot/internal/services"
	log "github.com/sirupsen/logrus"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	breaker := resilience.NewBreaker(cfg.Fetcher.BreakerThreshold,
		cfg.Fetcher.BreakerWindow, cfg.Fetcher.BreakerCooldown)

	client := realty.NewClient(cfg.Fetcher.BaseURL)
	client.SetRateLimit(cfg.Fetcher.MaxRequestsPerSecond)
	client.SetBreaker(breaker)

	searches := repositories.NewSearchRepository(dbContext.DB)
	listings := repositories.NewListingsRepository(dbContext.DB)
	notifications := repositories.NewNotificationsRepository(dbContext.DB)
	users := repositories.NewUsersRepository(dbContext.DB)
	watermarks := repositories.NewWatermarksRepository(dbContext.DB)

	citiesRepo := repositories.NewCitiesRepository(dbContext.DB)
	if err = citiesRepo.PopulateFrom(client); err != nil {
		log.Fatalf("can't populate cities: %v", err)
	}
	cities := repositories.NewCachedCities(citiesRepo)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("can't load timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	policy := services.SchedulePolicy{
		Location:     location,
		NightStart:   cfg.Scheduler.NightStart,
		NightEnd:     cfg.Scheduler.NightEnd,
		PeakStart:    cfg.Scheduler.PeakStart,
		PeakEnd:      cfg.Scheduler.PeakEnd,
		BaseInterval: cfg.Scheduler.BaseInterval,
		PeakInterval: cfg.Scheduler.PeakInterval,
	}

	bus := EventBus.New()

	tgbot, err := bot.NewBot(cfg.Notifier.Token, cfg.Notifier.AdminChatID, bus, users)
	if err != nil {
		log.Fatalf("can't create bot: %v", err)
	}

	fetcher := services.NewFetcher(client, cities, listings, watermarks, services.FetcherOptions{
		DetailBatchSize:  cfg.Fetcher.DetailBatchSize,
		DetailBatchDelay: cfg.Fetcher.DetailBatchDelay,
		MinPhotos:        cfg.Fetcher.MinPhotos,
	})

	notifier := services.NewNotifier(tgbot, users, listings, notifications,
		cfg.Notifier.MessagesPerSecond)

	coordinator := services.NewCoordinator(searches, fetcher, notifier, bus, policy,
		cfg.Scheduler.Workers, cfg.Scheduler.CycleTTL)

	status := services.NewStatusService(coordinator, breaker, watermarks)
	tgbot.SetCoordinator(coordinator)
	tgbot.SetStatus(status)

	metrics.StartMetricsServer(8080, status.Handler())

	cleaner, err := services.NewCleaner(listings, notifications,
		cfg.Cleaner.ListingExpirationDays, cfg.Cleaner.MarkerRetentionDays)
	if err != nil {
		log.Fatalf("can't create cleaner: %v", err)
	}
	defer cleaner.Stop()

	go tgbot.Run()
	go coordinator.Run(ctx)

	<-ctx.Done()

	log.Info("Shutting down services...")
	tgbot.Stop()
	log.Info("Services stopped.")
}
