// Package main is the entry point for the Telegram economy bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-economy-bot/internal/adminapi"
	"telegram-economy-bot/internal/bot"
	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/config"
	"telegram-economy-bot/internal/pkg/db"
	"telegram-economy-bot/internal/pkg/lock"
	"telegram-economy-bot/internal/pkg/snapshot"
	"telegram-economy-bot/internal/repository"
	"telegram-economy-bot/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.Log)
	log.Info().Str("backend", cfg.Storage.Backend).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalog")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	var backups *snapshot.Manager
	if cfg.Backup.Enabled {
		backups = snapshot.NewManager(store, cat, cfg.Backup.Dir, cfg.Backup.Keep)
		if err := restoreSnapshot(ctx, cfg.Backup, store, backups); err != nil {
			log.Fatal().Err(err).Msg("Failed to restore snapshot")
		}
	}

	engine := service.NewEngine(store, cat, lock.NewAccountLock(),
		service.WithRNG(service.NewRNG(cfg.Engine.Seed)),
		service.WithMaxRetries(cfg.Engine.MaxRetries),
		service.WithLockTimeout(cfg.Engine.LockTimeout),
	)

	deps := &bot.Dependencies{
		Config:           cfg,
		Engine:           engine,
		AccountService:   service.NewAccountService(engine, service.DailyConfig{Reward: cfg.Daily.Reward, Cooldown: cfg.Daily.Cooldown()}),
		ActionService:    service.NewActionService(engine),
		FarmService:      service.NewFarmService(engine),
		KitchenService:   service.NewKitchenService(engine),
		MarketService:    service.NewMarketService(engine),
		ChallengeService: service.NewChallengeService(engine),
		PetService:       service.NewPetService(engine),
		PropertyService:  service.NewPropertyService(engine),
		ShopService:      service.NewShopService(engine),
		TransferService:  service.NewTransferService(engine),
		RankingService:   service.NewRankingService(engine),
		Backups:          backups,
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	var scheduler *cron.Cron
	if backups != nil {
		scheduler, err = scheduleBackups(ctx, cfg.Backup.Schedule, backups)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backups")
		}
	}

	var api *adminapi.Server
	if cfg.AdminAPI.Enabled {
		api = adminapi.NewServer(cfg.AdminAPI.Addr, adminapi.Handler{
			Store:    store,
			Accounts: deps.AccountService,
			Market:   deps.MarketService,
			Ranking:  deps.RankingService,
			Backups:  backups,
			Token:    cfg.AdminAPI.Token,
		})
		api.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go telegramBot.Start()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if api != nil {
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Admin API shutdown failed")
		}
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if backups != nil {
		if _, err := backups.Backup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Final snapshot failed")
		}
	}
	log.Info().Msg("Bot stopped gracefully")
}

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.JSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// openStore opens the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory store; state lives only in snapshots")
		return repository.NewMemoryStore(), func() {}, nil

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, nil, err
		}
		s, err := repository.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		s := repository.NewPostgresStore(pool.Pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return s, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// restoreSnapshot imports backup.restore when set, otherwise the newest
// snapshot when the store is still empty.
func restoreSnapshot(ctx context.Context, cfg config.BackupConfig, store repository.Store, backups *snapshot.Manager) error {
	if cfg.Restore != "" {
		return backups.Restore(ctx, cfg.Restore)
	}
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) > 0 {
		return nil
	}
	latest, err := backups.Latest()
	if err != nil || latest == "" {
		return err
	}
	return backups.Restore(ctx, latest)
}

func scheduleBackups(ctx context.Context, schedule string, backups *snapshot.Manager) (*cron.Cron, error) {
	c := cron.New(cron.WithLogger(cronLogger{}))
	_, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := backups.Backup(runCtx); err != nil {
			log.Error().Err(err).Msg("Scheduled snapshot failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	c.Start()
	log.Info().Str("schedule", schedule).Msg("Backup schedule started")
	return c, nil
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
