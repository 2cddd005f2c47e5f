package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/trialscreen-ai/platform/pkg/common/config"
	"github.com/trialscreen-ai/platform/pkg/common/database"
	"github.com/trialscreen-ai/platform/pkg/common/kafka"
	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
	"github.com/trialscreen-ai/platform/pkg/eligibility"
	"github.com/trialscreen-ai/platform/pkg/explain"
	"github.com/trialscreen-ai/platform/pkg/screening"
	"github.com/trialscreen-ai/platform/pkg/trials"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	trialRepo := trials.NewRepository(db)
	auditRepo := screening.NewRepository(db)
	if err := auditRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate screening tables")
	}

	trialService := trials.NewService(trialRepo, nil)
	trialCache := screening.NewTrialCache(database.GetRedis(), trialService, cfg.TrialCacheTTL)
	trialService.SetCache(trialCache)

	producer := kafka.NewProducer(cfg.ScreeningEventsTopic)
	defer producer.Close()

	explainer := explain.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.ExplanationTimeout)
	engine := eligibility.NewEngine(eligibility.Options{
		Strict:             cfg.StrictCriteria,
		EmptyListIsMissing: cfg.EmptyListIsMissing,
	})
	service := screening.NewService(engine, trialCache, explainer, auditRepo, producer, screening.ServiceOptions{
		ExplanationTimeout: cfg.ExplanationTimeout,
		BatchWorkers:       cfg.BatchWorkers,
	})

	consumer := kafka.NewConsumer(cfg.BatchJobsTopic, "batch-worker")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down batch worker...")
		cancel()
	}()

	logger.Log.WithField("topic", cfg.BatchJobsTopic).Info("Batch worker consuming")
	err = consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		return handleJob(ctx, service, event)
	})
	if err != nil && ctx.Err() == nil {
		logger.Log.WithError(err).Fatal("batch worker consumer failed")
	}

	database.ClosePostgres()
	database.CloseRedis()
	logger.Log.Info("Batch worker stopped")
}

func handleJob(ctx context.Context, service *screening.Service, event models.Event) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	var job models.BatchScreeningJob
	if err := json.Unmarshal(raw, &job); err != nil {
		// A malformed job can never succeed, drop it instead of retrying.
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("Dropping malformed batch job")
		return nil
	}

	log := logger.Log.WithFields(map[string]interface{}{
		"job_id":   job.JobID,
		"trial_id": job.TrialID,
		"patients": len(job.Patients),
	})
	log.Info("Processing batch screening job")

	response, err := service.RunBatchJob(ctx, job)
	if err != nil {
		if screening.IsValidationError(err) {
			log.WithError(err).Error("Dropping invalid batch job")
			return nil
		}
		return err
	}

	log.WithFields(map[string]interface{}{
		"eligible":   response.EligibleCount,
		"ineligible": response.IneligibleCount,
		"uncertain":  response.UncertainCount,
	}).Info("Batch screening job completed")
	return nil
}
