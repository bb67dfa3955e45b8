package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"snsu-notification/internal/hub"
	gormpersistence "snsu-notification/internal/infra/persistence/gorm"
	"snsu-notification/internal/infra/setup"
	redisstate "snsu-notification/internal/infra/state/redis"
	"snsu-notification/internal/service"
	"snsu-notification/internal/tasks"
	"snsu-notification/internal/worker"
)

// App holds every long-lived component of the server.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Scheduler   *asynq.Scheduler
	Hub         *hub.Hub
	Presence    *service.PresenceService
	HttpServer  *http.Server
}

// services groups what the route table needs.
type services struct {
	auth          *service.AuthService
	users         *service.UserService
	notifications *service.NotificationService
	calendar      *service.CalendarService
	media         *service.MediaService
	chat          *service.ChatService
	presence      *redisstate.RedisPresenceRepository
}

// NewApp loads configuration and wires the application.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := newLogger(cfg)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())
	log.Info("Configuration loaded successfully")

	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	seeded, err := setup.SeedDefaultAdmin(db, cfg.DefaultAdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to seed default admin: %w", err)
	}
	if seeded {
		log.Warn("Default admin account created; change its password")
	}
	log.WithField("db_type", cfg.DB.Type).Info("Database initialized")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	purger := tasks.NewAsynqMediaPurger(asynqClient)

	userRepo := gormpersistence.NewGormUserRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	notificationRepo := gormpersistence.NewGormNotificationRepository(db)
	mediaRepo := gormpersistence.NewGormMediaRepository(db)
	presenceRepo := redisstate.NewRedisPresenceRepository(redisClient, cfg.KeyPrefix)

	router := hub.NewRouter(cfg.AdminsObserveDirectMessages)

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	mediaService := service.NewMediaService(mediaRepo, cfg.MaxFileSize)
	svc := services{
		auth:          authService,
		users:         service.NewUserService(userRepo, messageRepo, mediaService, purger),
		notifications: service.NewNotificationService(notificationRepo, mediaService, purger),
		calendar:      service.NewCalendarService(notificationRepo, time.Local),
		media:         mediaService,
		chat:          service.NewChatService(messageRepo, userRepo, router),
		presence:      presenceRepo,
	}
	log.Info("Services initialized")

	presenceService := service.NewPresenceService(userRepo, presenceRepo)
	hubInstance := hub.NewHub(router, presenceService, svc.chat)
	workerServer := worker.NewWorkerServer(redisClientOpt, hubInstance, mediaService, log)
	scheduler := asynq.NewScheduler(redisClientOpt, &asynq.SchedulerOpts{
		Logger:   newSchedulerLogger(log),
		LogLevel: asynq.WarnLevel,
	})

	engine, err := newEngine(cfg, log, svc, hubInstance)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		AsynqServer: workerServer,
		Scheduler:   scheduler,
		Hub:         hubInstance,
		Presence:    presenceService,
		HttpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	log.Info("Application assembled successfully")
	return app, nil
}

func newLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	return log
}

// Start restores presence, then launches the hub, the worker, the scheduler
// and the HTTP server.
func (a *App) Start() error {
	if err := a.restorePresence(); err != nil {
		return err
	}

	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()

	if err := a.registerPeriodicTasks(); err != nil {
		return err
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
	return nil
}

// restorePresence drops connection counts left by a previous process. No
// socket is accepted before it returns.
func (a *App) restorePresence() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	offlined, err := a.Presence.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore presence: %w", err)
	}
	a.Log.WithField("offlined", len(offlined)).Info("Presence restored")
	return nil
}

func (a *App) registerPeriodicTasks() error {
	schedule := a.Config.PresenceSweepSchedule
	entryID, err := a.Scheduler.Register(schedule, tasks.NewPresenceReconcileTask())
	if err != nil {
		return fmt.Errorf("could not register presence reconcile task: %w", err)
	}
	a.Log.Infof("Presence reconcile task registered with schedule '%s' (EntryID: %s)", schedule, entryID)

	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then releases live connections and
// background workers.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// Blocks until every socket has released its presence, so Redis and
	// the DB must still be open here.
	if a.Hub != nil {
		a.Hub.Shutdown()
	}
	if a.Scheduler != nil {
		a.Scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}
	a.Log.Info("Application shutdown complete.")
}

// schedulerLogger routes asynq scheduler output through logrus.
type schedulerLogger struct {
	entry *logrus.Entry
}

func newSchedulerLogger(log *logrus.Logger) *schedulerLogger {
	return &schedulerLogger{entry: log.WithField("component", "scheduler")}
}

func (l *schedulerLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *schedulerLogger) Info(args ...interface{}) { l.entry.Info(args...) }
func (l *schedulerLogger) Warn(args ...interface{}) { l.entry.Warn(args...) }
func (l *schedulerLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *schedulerLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
