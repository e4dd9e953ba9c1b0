package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sportifyhq/roster/internal/config"
	"github.com/sportifyhq/roster/internal/infrastructure/account"
	"github.com/sportifyhq/roster/internal/infrastructure/push"
	"github.com/sportifyhq/roster/internal/infrastructure/repository/memory"
	"github.com/sportifyhq/roster/internal/infrastructure/repository/postgres"
	"github.com/sportifyhq/roster/internal/interfaces/httpapi"
	"github.com/sportifyhq/roster/internal/platform/cache"
	"github.com/sportifyhq/roster/internal/platform/fanout"
	idgen "github.com/sportifyhq/roster/internal/platform/id"
	"github.com/sportifyhq/roster/internal/platform/logging"
	"github.com/sportifyhq/roster/internal/platform/resilience"
	"github.com/sportifyhq/roster/internal/usecase"
)

const notificationTapID = "notification-projector"

// App owns the wired service graph and its background machinery: the fanout
// bus, the reminder sweeper and the optional snapshot database.
type App struct {
	Server *http.Server

	cfg           config.Config
	logger        *slog.Logger
	bus           *fanout.Bus
	db            *sqlx.DB
	snapshots     *postgres.SnapshotStore
	notifications *memory.NotificationRepository
	reminders     *usecase.ReminderService
	stopReminders context.CancelFunc
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	zlog := logging.NewJSON(cfg.LogLevel)

	notifRepo := memory.NewNotificationRepository(cfg.NotificationCap)

	var (
		db        *sqlx.DB
		snapshots *postgres.SnapshotStore
		restored  bool
	)
	gameRepo := memory.NewGameRepository(nil)
	if cfg.SnapshotEnabled {
		var err error
		db, err = postgres.Connect(ctx, cfg.DBURL)
		if err != nil {
			// Snapshots are durability, not availability: come up empty.
			logger.Warn("snapshot db unavailable, starting with empty collections", "error", err)
		} else {
			snapshots = postgres.NewSnapshotStore(db)
			games, loadErr := snapshots.LoadGames(ctx)
			if loadErr != nil {
				logger.Warn("game snapshot restore failed", "error", loadErr)
			} else if len(games) > 0 {
				if err := gameRepo.ReplaceAll(ctx, games); err != nil {
					logger.Warn("game snapshot rejected", "error", err)
				} else {
					restored = true
					logger.Info("game snapshot restored", "games", len(games))
				}
			}
			records, loadErr := snapshots.LoadNotifications(ctx)
			if loadErr != nil {
				logger.Warn("notification snapshot restore failed", "error", loadErr)
			} else if len(records) > 0 {
				if err := notifRepo.ReplaceAll(ctx, records); err != nil {
					logger.Warn("notification snapshot rejected", "error", err)
				} else {
					logger.Info("notification snapshot restored", "records", len(records))
				}
			}
		}
	}

	if !restored && cfg.SeedDemoData {
		seeded := memory.SeedGames(time.Now())
		if err := gameRepo.ReplaceAll(ctx, seeded); err != nil {
			return nil, fmt.Errorf("seed demo games: %w", err)
		}
		logger.Info("demo games seeded", "games", len(seeded))
	}

	messageRepo := memory.NewMessageRepository()

	bus, err := fanout.New(cfg.FanoutWorkers, zlog)
	if err != nil {
		return nil, fmt.Errorf("create fanout bus: %w", err)
	}

	var searchCache *cache.Store
	if cfg.CacheEnabled {
		searchCache = cache.NewStore(cfg.CacheTTL)
	}

	var snapshotWriter usecase.GameSnapshotWriter
	if snapshots != nil {
		snapshotWriter = snapshots
	}

	ids := idgen.NewRandomGenerator()
	rosterSvc := usecase.NewRosterService(gameRepo, messageRepo, bus, searchCache, snapshotWriter, ids, logger)
	chatSvc := usecase.NewChatService(gameRepo, messageRepo, bus, ids, logger)

	var pushSender usecase.PushSender
	if cfg.PushEnabled {
		pushSender = push.NewWebhookPublisher(push.WebhookConfig{
			URL:       cfg.PushWebhookURL,
			AuthToken: cfg.PushWebhookToken,
			Timeout:   cfg.PushTimeout,
			CircuitBreaker: resilienceConfig(
				cfg.PushCircuitEnabled,
				cfg.PushCircuitFailures,
				cfg.PushCircuitOpenTimeout,
				cfg.PushCircuitHalfOpenMax,
			),
		}, logger)
	}

	notifSvc := usecase.NewNotificationService(notifRepo, bus, pushSender, ids, logger)
	bus.Tap(notificationTapID, notifSvc.HandleEvent)

	if err := rosterSvc.SeedRooms(ctx); err != nil {
		return nil, fmt.Errorf("seed game rooms: %w", err)
	}

	var (
		reminders     *usecase.ReminderService
		stopReminders context.CancelFunc
	)
	if cfg.ReminderEnabled {
		reminders, err = usecase.NewReminderService(
			gameRepo,
			notifSvc,
			cfg.ReminderWorkers,
			cfg.ReminderInterval,
			cfg.ReminderLead,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("create reminder service: %w", err)
		}
		var reminderCtx context.Context
		reminderCtx, stopReminders = context.WithCancel(context.Background())
		go reminders.Run(reminderCtx)
		logger.Info("reminder sweeper started", "interval", cfg.ReminderInterval.String(), "lead", cfg.ReminderLead.String())
	}

	var verifier httpapi.TokenVerifier
	switch cfg.AuthMode {
	case "insecure":
		logger.Warn("auth running in insecure mode, tokens are taken as user ids")
		verifier = account.NewInsecureVerifier()
	default:
		verifier = account.NewIntrospectionVerifier(account.IntrospectionConfig{
			BaseURL:  cfg.AccountBaseURL,
			APIKey:   cfg.AccountAPIKey,
			Timeout:  cfg.AccountTimeout,
			CacheTTL: cfg.AccountCacheTTL,
			CacheMax: cfg.AccountCacheMax,
			CircuitBreaker: resilienceConfig(
				cfg.AccountCircuitEnabled,
				cfg.AccountCircuitFailures,
				cfg.AccountCircuitOpenTimeout,
				cfg.AccountCircuitHalfOpenMax,
			),
		}, logger)
	}

	handler := httpapi.NewHandler(rosterSvc, chatSvc, notifSvc, bus, logger)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Server:        server,
		cfg:           cfg,
		logger:        logger,
		bus:           bus,
		db:            db,
		snapshots:     snapshots,
		notifications: notifRepo,
		reminders:     reminders,
		stopReminders: stopReminders,
	}, nil
}

// Shutdown drains the HTTP server, stops the background machinery and takes
// a final notification snapshot when a database is attached.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)

	if a.stopReminders != nil {
		a.stopReminders()
	}
	a.bus.Close()

	if a.snapshots != nil {
		records, listErr := a.notifications.ListAll(ctx)
		if listErr != nil {
			a.logger.Warn("final notification snapshot list", "error", listErr)
		} else if saveErr := a.snapshots.SaveNotifications(ctx, records); saveErr != nil {
			a.logger.Warn("final notification snapshot save", "error", saveErr)
		}
	}
	if a.db != nil {
		if closeErr := a.db.Close(); closeErr != nil {
			a.logger.Warn("close snapshot db", "error", closeErr)
		}
	}

	return err
}

func resilienceConfig(enabled bool, failures int, openTimeout time.Duration, halfOpenMax int) resilience.CircuitBreakerConfig {
	return resilience.NormalizeCircuitBreakerConfig(resilience.CircuitBreakerConfig{
		Enabled:          enabled,
		FailureThreshold: failures,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMax,
	})
}
