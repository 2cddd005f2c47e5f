package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/trialscreen-ai/platform/pkg/common/config"
	"github.com/trialscreen-ai/platform/pkg/common/database"
	"github.com/trialscreen-ai/platform/pkg/common/kafka"
	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/middleware"
	"github.com/trialscreen-ai/platform/pkg/eligibility"
	"github.com/trialscreen-ai/platform/pkg/explain"
	"github.com/trialscreen-ai/platform/pkg/observability/metrics"
	"github.com/trialscreen-ai/platform/pkg/patients"
	"github.com/trialscreen-ai/platform/pkg/screening"
	"github.com/trialscreen-ai/platform/pkg/trials"
)

// topicRouter sends screening events and batch job requests to their
// respective Kafka topics.
type topicRouter struct {
	screeningEvents *kafka.Producer
	batchJobs       *kafka.Producer
}

func (r *topicRouter) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	if eventType == "screening.batch-requested" {
		return r.batchJobs.PublishEvent(ctx, eventType, source, data)
	}
	return r.screeningEvents.PublishEvent(ctx, eventType, source, data)
}

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	trialRepo := trials.NewRepository(db)
	patientRepo := patients.NewRepository(db)
	auditRepo := screening.NewRepository(db)
	for name, migrate := range map[string]func() error{
		"trials":    trialRepo.AutoMigrate,
		"patients":  patientRepo.AutoMigrate,
		"screening": auditRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).Fatalf("failed to migrate %s tables", name)
		}
	}

	redisClient := database.GetRedis()

	events := &topicRouter{
		screeningEvents: kafka.NewProducer(cfg.ScreeningEventsTopic),
		batchJobs:       kafka.NewProducer(cfg.BatchJobsTopic),
	}
	defer events.screeningEvents.Close()
	defer events.batchJobs.Close()

	trialService := trials.NewService(trialRepo, nil)
	trialCache := screening.NewTrialCache(redisClient, trialService, cfg.TrialCacheTTL)
	trialService.SetCache(trialCache)

	patientService := patients.NewService(patientRepo)

	explainer := explain.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.ExplanationTimeout)
	if !explainer.Available() {
		logger.Log.Warn("Explanation service not configured, using deterministic fallback only")
	}

	engine := eligibility.NewEngine(eligibility.Options{
		Strict:             cfg.StrictCriteria,
		EmptyListIsMissing: cfg.EmptyListIsMissing,
	})
	screeningService := screening.NewService(engine, trialCache, explainer, auditRepo, events, screening.ServiceOptions{
		ExplanationTimeout: cfg.ExplanationTimeout,
		BatchWorkers:       cfg.BatchWorkers,
	})

	seedDatabase(trialService, patientService, cfg.SeedFilePath)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	trials.NewHandler(trialService).Register(api)
	patients.NewHandler(patientService).Register(api)
	screening.NewHandler(screeningService).Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Screening service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start screening service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down screening service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Screening service forced to shutdown")
	}
	database.ClosePostgres()
	database.CloseRedis()
	logger.Log.Info("Screening service stopped")
}

func seedDatabase(trialService *trials.Service, patientService *patients.Service, seedPath string) {
	catalog, err := trials.LoadSeed(seedPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Seed file unreadable, using built-in catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := trialService.SeedIfEmpty(ctx, catalog)
	if err != nil {
		logger.Log.WithError(err).Error("failed to seed trials")
		return
	}
	if err := patientService.SeedIfEmpty(ctx, records); err != nil {
		logger.Log.WithError(err).Error("failed to seed patients")
	}
}
