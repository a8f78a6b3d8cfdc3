package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/booking_engine/internal/app"
	"github.com/Freeeeeet/booking_engine/internal/config"
	"github.com/Freeeeeet/booking_engine/internal/controller"
	"github.com/Freeeeeet/booking_engine/internal/controller/api"
	"github.com/Freeeeeet/booking_engine/internal/notify"
	"github.com/Freeeeeet/booking_engine/internal/repository"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/Freeeeeet/booking_engine/migrations"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Booking engine stopped with error", zap.Error(err))
	}
	logger.Info("Booking engine exited")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting booking engine",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("telegram", cfg.TelegramEnabled()),
	)

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator, err := app.NewMigrator(pool, migrations.FS, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	// Репозитории
	configRepo := repository.NewScheduleConfigRepository(pool)
	blockedRepo := repository.NewBlockedRangeRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	lockRepo := repository.NewSlotLockRepository(pool)
	txManager := repository.NewTxManager(pool, cfg.TxMaxRetries, logger)

	// Сервисы
	availabilityService := service.NewAvailabilityService(configRepo, blockedRepo, bookingRepo, logger)
	adminService := service.NewAdminService(availabilityService, configRepo, blockedRepo, logger)

	var (
		notifier  notify.Notifier = notify.Nop{}
		botClient *bot.Bot
	)
	if cfg.TelegramEnabled() {
		botClient, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		notifier = notify.NewTelegramNotifier(botClient, cfg.OwnerChatID, ownerLocation(availabilityService, logger), logger)
	}

	bookingService := service.NewBookingService(availabilityService, txManager, bookingRepo, notifier, logger)

	router := api.NewRouter(api.RouterConfig{
		AdminAPIKey:        cfg.AdminAPIKey,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Health:             pool.Ping,
	}, api.NewHandler(availabilityService, bookingService, adminService, logger), logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	scheduler := app.NewScheduler(lockRepo, cfg.LockPruneInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Waiting for pending requests to finish...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if botClient != nil {
		botController := controller.NewBotController(botClient, bookingService, adminService, availabilityService, cfg.OwnerChatID, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			// Меню команд не критично: бот продолжает принимать команды
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
		g.Go(func() error {
			return botController.Start(gctx)
		})

		if cfg.DigestEnabled() {
			digest, err := app.NewDigest(botController, cfg.DigestSchedule, ownerLocation(availabilityService, logger)(), logger)
			if err != nil {
				return err
			}
			digest.Start()
			defer digest.Stop()
		}
	}

	return g.Wait()
}

// ownerLocation зона владельца для уведомлений; читается из настроек при каждой отправке
func ownerLocation(availability *service.AvailabilityService, logger *zap.Logger) func() *time.Location {
	return func() *time.Location {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		cfg, err := availability.LoadConfig(ctx)
		if err != nil {
			logger.Warn("Failed to load owner timezone", zap.Error(err))
			return time.UTC
		}
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return time.UTC
		}
		return loc
	}
}
