package main

import (
	"github.com/raterly/backend/internal/config"
	"github.com/raterly/backend/internal/handlers"
	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/internal/services"
	"github.com/raterly/backend/internal/utils"
	"github.com/raterly/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	businessService *services.BusinessService
	intakeService   *services.IntakeService
	digestService   *services.DigestService
	taskQueue       services.TaskQueue
	worker          *services.Worker
	authHandler     *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()
	businessService := services.NewBusinessService(db)

	// Digest scheduler
	digestService := services.NewDigestService(db, &cfg.Digest, businessService)
	digestService.StartScheduler()

	// Transcription pipeline: queue (Redis when enabled, in-process otherwise)
	// plus the worker that drains it.
	enricher := services.NewAIEnricher(&cfg.Enrichment)
	transcription := services.NewTranscriptionService(db, enricher)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(transcription.Process)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(transcription.Process)
			worker.Start()
		}
	}

	intakeService := services.NewIntakeService(db, businessService, services.NewSafeEnricher(enricher), taskQueue)

	authHandler := handlers.NewAuthHandler(db, cfg)
	if err := authHandler.EnsureSuperadmin(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create superadmin user")
	}

	return &appServices{
		businessService: businessService,
		intakeService:   intakeService,
		digestService:   digestService,
		taskQueue:       taskQueue,
		worker:          worker,
		authHandler:     authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.digestService.StopScheduler()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	logger.Info().Msg("All background services stopped")
}
