package main

import (
	"context"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/internal/handlers"
	"github.com/huangang/adsentry/internal/media"
	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/internal/services"
	"github.com/huangang/adsentry/internal/utils"
	"github.com/huangang/adsentry/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg           *config.Config
	intakeService *services.IntakeService
	reviewService *services.ReviewService
	watchService  *services.WatchService
	digestService *services.DailyDigestService
	taskQueue     services.TaskQueue
	worker        *services.Worker
	authHandler   *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, media tooling,
// AI provider, services and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatalf("Failed to create data directories: %v", err)
	}

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// ffmpeg and ffprobe are required for everything downstream of intake
	exec, err := media.NewExecutor()
	if err != nil {
		logger.Fatalf("Media tooling unavailable: %v", err)
	}

	provider, err := services.NewProvider(&cfg.AI)
	if err != nil {
		logger.Fatalf("Failed to initialize AI provider: %v", err)
	}

	intakeService := services.NewIntakeService(models.GetDB(), cfg, exec)
	reviewService := services.NewReviewService(models.GetDB(), cfg, provider, exec)

	notificationService := services.NewNotificationService(models.GetDB(), cfg)
	reviewService.SetNotifier(notificationService)

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	processTask := func(ctx context.Context, task *services.ReviewTask) error {
		return reviewService.Execute(ctx, task.RunID)
	}
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processTask)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processTask)
			worker.Start()
		}
	}

	// Start retry scheduler for failed reviews
	services.StartRetryScheduler(models.GetDB(), reviewService)

	// Start retention sweeps for logs, reports and screenshots
	services.StartRetentionScheduler(models.GetDB(), cfg)

	// Watch the downloads directory for files dropped by the email collaborator
	watchService := services.NewWatchService(models.GetDB(), cfg, intakeService, reviewService, taskQueue)
	watchService.StartScheduler()

	// Daily digest scheduler (time and holiday handling come from system config)
	digestService := services.NewDailyDigestService(models.GetDB(), notificationService)
	digestService.StartScheduler()

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:           cfg,
		intakeService: intakeService,
		reviewService: reviewService,
		watchService:  watchService,
		digestService: digestService,
		taskQueue:     taskQueue,
		worker:        worker,
		authHandler:   authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.digestService.StopScheduler()
	s.watchService.StopScheduler()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
