// Command worker drains the verification queue and runs the reconciler
// without serving HTTP. Pair it with EMBEDDED_WORKER=false on the API.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/app/verification"
	"trippey_quests/internal/app/worker"
	"trippey_quests/internal/domain/repository"
	"trippey_quests/internal/platform/config"
	"trippey_quests/internal/platform/database"
	"trippey_quests/internal/platform/logging"
	"trippey_quests/internal/platform/queue"
)

func main() {
	config.Load()
	cfg := config.AppConfig
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.WithComponent("worker_main")

	database.Connect()
	defer database.Close()
	queue.ConnectRedis()
	defer queue.CloseRedis()

	questRepo := repository.NewPgQuestRepository(database.DB)
	attemptRepo := repository.NewPgUserQuestRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	jobRepo := repository.NewPgVerificationJobRepository(database.DB)
	ledgerRepo := repository.NewPgLedgerRepository(database.DB)
	leaderboardRepo := repository.NewPgLeaderboardRepository(database.DB)

	questService := service.NewQuestService(questRepo, attemptRepo, cfg.QuestCacheSize)
	jobService := service.NewVerificationJobService(jobRepo, queue.RDB, cfg.VerificationQueueName)
	rewardService := service.NewRewardService(ledgerRepo, leaderboardRepo, attemptRepo, database.DB, cfg.DefaultRewardCoins)
	vision := verification.NewVisionClient(verification.VisionClientConfig{
		URL:           cfg.VisionAPIURL,
		APIKey:        cfg.VisionAPIKey,
		Model:         cfg.VisionModel,
		RatePerSecond: cfg.VisionRatePerSecond,
		Burst:         cfg.VisionBurst,
	})
	verificationService := service.NewVerificationService(submissionRepo, questService,
		verification.NewExtractor(vision, cfg.VisionTimeout), rewardService)

	lockTTL := time.Duration(cfg.VerificationLockTTLSeconds) * time.Second
	locker := queue.NewLocker(queue.RDB, cfg.VerificationLockPrefix, lockTTL)
	verificationWorker := worker.NewVerificationWorker(queue.RDB, locker, jobRepo, verificationService,
		cfg.VerificationQueueName, cfg.VerificationMaxAttempts)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	concurrency := cfg.VerificationConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			verificationWorker.Start(ctx)
		}()
	}

	reconciler := worker.NewReconciler(submissionRepo, attemptRepo, questService, rewardService, jobService, 2*lockTTL)
	if err := reconciler.Start(cfg.ReconcileSchedule); err != nil {
		log.Fatalf("Invalid RECONCILE_SCHEDULE %q: %v", cfg.ReconcileSchedule, err)
	}
	log.WithField("concurrency", concurrency).Info("worker service started")

	<-sigs
	log.Info("shutdown signal received")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	reconciler.Stop(stopCtx)
	wg.Wait()
	log.Info("worker exited cleanly")
}
