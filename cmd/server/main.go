package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"trippey_quests/internal/api"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/app/verification"
	"trippey_quests/internal/app/worker"
	"trippey_quests/internal/common/security"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/config"
	"trippey_quests/internal/platform/database"
	"trippey_quests/internal/platform/logging"
	"trippey_quests/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.WithComponent("server")

	// 2. Initialize JWT
	security.InitJWT(cfg.JWTKey)
	if cfg.InternalAPISecret == "" {
		log.Warn("INTERNAL_API_SECRET is empty; internal endpoints are disabled")
	}

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	if cfg.MigrationsEnabled {
		if err := database.Migrate(database.DB); err != nil {
			log.Fatalf("Migrations failed: %v", err)
		}
	}

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 5. Initialize Repositories
	questRepo := repository.NewPgQuestRepository(database.DB)
	attemptRepo := repository.NewPgUserQuestRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	jobRepo := repository.NewPgVerificationJobRepository(database.DB)
	ledgerRepo := repository.NewPgLedgerRepository(database.DB)
	leaderboardRepo := repository.NewPgLeaderboardRepository(database.DB)
	storeRepo := repository.NewPgStoreRepository(database.DB)
	tripRepo := repository.NewPgTripRepository(database.DB)

	// 6. Initialize Services
	questService := service.NewQuestService(questRepo, attemptRepo, cfg.QuestCacheSize)
	jobService := service.NewVerificationJobService(jobRepo, queue.RDB, cfg.VerificationQueueName)
	submissionService := service.NewSubmissionService(submissionRepo, attemptRepo, jobService, database.DB)
	rewardService := service.NewRewardService(ledgerRepo, leaderboardRepo, attemptRepo, database.DB, cfg.DefaultRewardCoins)

	vision := verification.NewVisionClient(verification.VisionClientConfig{
		URL:           cfg.VisionAPIURL,
		APIKey:        cfg.VisionAPIKey,
		Model:         cfg.VisionModel,
		RatePerSecond: cfg.VisionRatePerSecond,
		Burst:         cfg.VisionBurst,
	})
	extractor := verification.NewExtractor(vision, cfg.VisionTimeout)
	verificationService := service.NewVerificationService(submissionRepo, questService, extractor, rewardService)

	storeService := service.NewStoreService(storeRepo, ledgerRepo, database.DB)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo)
	tripService := service.NewTripService(tripRepo, database.DB)

	// 7. Background work: queue consumer and the periodic reconciler
	lockTTL := time.Duration(cfg.VerificationLockTTLSeconds) * time.Second
	locker := queue.NewLocker(queue.RDB, cfg.VerificationLockPrefix, lockTTL)
	verificationWorker := worker.NewVerificationWorker(queue.RDB, locker, jobRepo, verificationService,
		cfg.VerificationQueueName, cfg.VerificationMaxAttempts)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	var wg sync.WaitGroup
	reconciler := worker.NewReconciler(submissionRepo, attemptRepo, questService, rewardService, jobService, 2*lockTTL)
	if cfg.EmbeddedWorker {
		for i := 0; i < max(cfg.VerificationConcurrency, 1); i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				verificationWorker.Start(workerCtx)
			}()
		}
		if err := reconciler.Start(cfg.ReconcileSchedule); err != nil {
			log.Fatalf("Invalid RECONCILE_SCHEDULE %q: %v", cfg.ReconcileSchedule, err)
		}
	} else {
		log.Info("EMBEDDED_WORKER=false; run cmd/worker to drain the verification queue")
	}

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(api.Services{
		Quests:       questService,
		Submissions:  submissionService,
		Verification: verificationService,
		Rewards:      rewardService,
		Leaderboard:  leaderboardService,
		Store:        storeService,
		Trips:        tripService,
	}, api.RouterConfig{
		InternalSecret: cfg.InternalAPISecret,
		RatePerSecond:  cfg.APIRatePerSecond,
		RateBurst:      cfg.APIRateBurst,
		RequestTimeout: 60 * time.Second,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // internal /verify waits on the vision model
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", cfg.APIPort, err)
		}
	}()

	<-stop

	log.Info("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	reconciler.Stop(shutdownCtx)
	wg.Wait()

	log.Info("Server and workers stopped gracefully.")
}
