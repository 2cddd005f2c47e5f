package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
	"github.com/trialscreen-ai/platform/pkg/eligibility"
	"github.com/trialscreen-ai/platform/pkg/observability/metrics"
)

var ErrTrialInactive = errors.New("trial is not active")

// TrialSource resolves trial definitions for screening, normally the trial
// service behind a Redis cache.
type TrialSource interface {
	GetTrial(ctx context.Context, trialID string) (models.Trial, error)
}

// Explainer produces a natural-language explanation and recommendation for a
// finished evaluation.
type Explainer interface {
	Available() bool
	Explain(ctx context.Context, patient models.PatientRecord, result models.EligibilityResult, trialName string) (string, string, error)
}

// EventPublisher emits domain events to the event bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	engine    eligibility.Engine
	trials    TrialSource
	explainer Explainer
	audit     *Repository
	events    EventPublisher
	validator *Validator

	explanationTimeout time.Duration
	batchWorkers       int
}

type ServiceOptions struct {
	ExplanationTimeout time.Duration
	BatchWorkers       int
	MaxBatchSize       int
}

func NewService(engine eligibility.Engine, trials TrialSource, explainer Explainer, audit *Repository, events EventPublisher, opts ServiceOptions) *Service {
	if opts.ExplanationTimeout <= 0 {
		opts.ExplanationTimeout = 15 * time.Second
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 8
	}
	return &Service{
		engine:             engine,
		trials:             trials,
		explainer:          explainer,
		audit:              audit,
		events:             events,
		validator:          NewValidator(opts.MaxBatchSize),
		explanationTimeout: opts.ExplanationTimeout,
		batchWorkers:       opts.BatchWorkers,
	}
}

// Screen evaluates one patient against one trial, fills in the explanation,
// writes the audit record and emits a completion event.
func (s *Service) Screen(ctx context.Context, req models.ScreeningRequest) (models.ScreeningResponse, error) {
	if err := s.validator.ValidateRequest(req); err != nil {
		return models.ScreeningResponse{}, err
	}

	trial, err := s.trials.GetTrial(ctx, req.TrialID)
	if err != nil {
		return models.ScreeningResponse{}, err
	}
	if !trial.IsActive {
		return models.ScreeningResponse{}, ErrTrialInactive
	}

	withExplanation := req.GenerateAIExplanation == nil || *req.GenerateAIExplanation
	result := s.Evaluate(ctx, trial, req.Patient, withExplanation)

	s.persist(ctx, trial.ID, req.Patient.PatientID, result)
	s.publishCompleted(ctx, trial.ID, req.Patient.PatientID, result.Decision)

	return models.ScreeningResponse{
		TrialID:    trial.ID,
		TrialName:  trial.Name,
		PatientID:  req.Patient.PatientID,
		Result:     result,
		ScreenedAt: time.Now().UTC(),
	}, nil
}

// Evaluate runs the eligibility engine and attaches an explanation. The AI
// explainer is consulted when requested and available; any failure falls back
// to the deterministic template.
func (s *Service) Evaluate(ctx context.Context, trial models.Trial, patient models.PatientRecord, withExplanation bool) models.EligibilityResult {
	result := s.engine.Evaluate(patient, trial.InclusionCriteria, trial.ExclusionCriteria)
	metrics.ObserveDecision(result.Decision)

	if withExplanation && s.explainer != nil && s.explainer.Available() {
		explainCtx, cancel := context.WithTimeout(ctx, s.explanationTimeout)
		defer cancel()

		explanation, recommendation, err := s.explainer.Explain(explainCtx, patient, result, trial.Name)
		if err == nil {
			result.AIExplanation = explanation
			result.Recommendation = recommendation
			return result
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"trial_id":   trial.ID,
			"patient_id": patient.PatientID,
		}).Warn("Explanation service failed, using fallback")
		// Counts failed AI attempts only, not requests with AI disabled.
		metrics.ObserveExplanationFallback()
	}

	result.AIExplanation, result.Recommendation = eligibility.FallbackExplain(result)
	return result
}

// ScreenBatch evaluates every patient in the request concurrently, preserving
// input order in the response.
func (s *Service) ScreenBatch(ctx context.Context, req models.BatchScreeningRequest) (models.BatchScreeningResponse, error) {
	if err := s.validator.ValidateBatch(req); err != nil {
		return models.BatchScreeningResponse{}, err
	}

	trial, err := s.trials.GetTrial(ctx, req.TrialID)
	if err != nil {
		return models.BatchScreeningResponse{}, err
	}
	if !trial.IsActive {
		return models.BatchScreeningResponse{}, ErrTrialInactive
	}

	results := make([]models.BatchScreeningResult, len(req.Patients))
	sem := make(chan struct{}, s.batchWorkers)
	var wg sync.WaitGroup
	for i, patient := range req.Patients {
		wg.Add(1)
		go func(idx int, p models.PatientRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := s.Evaluate(ctx, trial, p, req.GenerateAIExplanation)
			s.persist(ctx, trial.ID, p.PatientID, result)
			results[idx] = models.BatchScreeningResult{
				PatientID: p.PatientID,
				Decision:  result.Decision,
				Summary:   batchSummary(result),
			}
		}(i, patient)
	}
	wg.Wait()

	response := models.BatchScreeningResponse{
		TrialID:       trial.ID,
		TotalPatients: len(results),
		Results:       results,
	}
	for _, r := range results {
		switch r.Decision {
		case models.DecisionEligible:
			response.EligibleCount++
		case models.DecisionIneligible:
			response.IneligibleCount++
		case models.DecisionUncertain:
			response.UncertainCount++
		}
	}

	s.publishBatchCompleted(ctx, response)
	return response, nil
}

// EnqueueBatch publishes a batch job to the event bus for asynchronous
// processing by the batch worker.
func (s *Service) EnqueueBatch(ctx context.Context, req models.BatchScreeningRequest, requestedBy string) (string, error) {
	if err := s.validator.ValidateBatch(req); err != nil {
		return "", err
	}
	if _, err := s.trials.GetTrial(ctx, req.TrialID); err != nil {
		return "", err
	}
	if s.events == nil {
		return "", errors.New("event bus not configured")
	}

	job := models.BatchScreeningJob{
		JobID:       uuid.New().String(),
		TrialID:     req.TrialID,
		Patients:    req.Patients,
		RequestedBy: requestedBy,
	}
	patients := make([]interface{}, 0, len(job.Patients))
	for _, p := range job.Patients {
		patients = append(patients, p)
	}
	err := s.events.PublishEvent(ctx, "screening.batch-requested", "screening-service", map[string]interface{}{
		"job_id":       job.JobID,
		"trial_id":     job.TrialID,
		"patients":     patients,
		"requested_by": job.RequestedBy,
	})
	if err != nil {
		return "", err
	}
	return job.JobID, nil
}

// RunBatchJob is the worker-side counterpart of EnqueueBatch.
func (s *Service) RunBatchJob(ctx context.Context, job models.BatchScreeningJob) (models.BatchScreeningResponse, error) {
	response, err := s.ScreenBatch(ctx, models.BatchScreeningRequest{
		TrialID:  job.TrialID,
		Patients: job.Patients,
	})
	if err == nil {
		metrics.ObserveBatchJob()
	}
	return response, err
}

func (s *Service) History(ctx context.Context, trialID, patientID string, limit int) ([]models.ScreeningRecord, error) {
	if s.audit == nil {
		return nil, errors.New("audit store not configured")
	}
	return s.audit.List(ctx, trialID, patientID, limit)
}

func (s *Service) GetRecord(ctx context.Context, id int64) (models.ScreeningRecord, error) {
	if s.audit == nil {
		return models.ScreeningRecord{}, ErrRecordNotFound
	}
	return s.audit.Get(ctx, id)
}

// persist writes the audit record. Audit failures are logged, never surfaced:
// the screening result itself is still valid.
func (s *Service) persist(ctx context.Context, trialID, patientID string, result models.EligibilityResult) {
	if s.audit == nil {
		return
	}
	_, err := s.audit.Create(ctx, models.ScreeningRecord{
		TrialID:          trialID,
		PatientID:        patientID,
		Decision:         result.Decision,
		InclusionResults: result.InclusionResults,
		ExclusionResults: result.ExclusionResults,
		MissingData:      result.MissingData,
		AIExplanation:    result.AIExplanation,
		Recommendation:   result.Recommendation,
	})
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"trial_id":   trialID,
			"patient_id": patientID,
		}).Error("Failed to persist screening record")
	}
}

func (s *Service) publishCompleted(ctx context.Context, trialID, patientID string, decision models.Decision) {
	if s.events == nil {
		return
	}
	err := s.events.PublishEvent(ctx, "screening.completed", "screening-service", map[string]interface{}{
		"trial_id":   trialID,
		"patient_id": patientID,
		"decision":   string(decision),
	})
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to publish screening event")
	}
}

func (s *Service) publishBatchCompleted(ctx context.Context, response models.BatchScreeningResponse) {
	if s.events == nil {
		return
	}
	err := s.events.PublishEvent(ctx, "screening.completed", "screening-service", map[string]interface{}{
		"trial_id":         response.TrialID,
		"total_patients":   response.TotalPatients,
		"eligible_count":   response.EligibleCount,
		"ineligible_count": response.IneligibleCount,
		"uncertain_count":  response.UncertainCount,
		"batch":            true,
	})
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to publish batch screening event")
	}
}

// batchSummary condenses a full evaluation into one line for batch listings.
func batchSummary(result models.EligibilityResult) string {
	switch result.Decision {
	case models.DecisionEligible:
		return "meets all criteria"
	case models.DecisionIneligible:
		failed := collectIDs(result.InclusionResults, models.StatusNotMet)
		excluded := collectIDs(result.ExclusionResults, models.StatusExcludes)
		parts := make([]string, 0, 2)
		if len(failed) > 0 {
			parts = append(parts, fmt.Sprintf("failed: %s", strings.Join(failed, ", ")))
		}
		if len(excluded) > 0 {
			parts = append(parts, fmt.Sprintf("excluded by: %s", strings.Join(excluded, ", ")))
		}
		return strings.Join(parts, "; ")
	case models.DecisionUncertain:
		return fmt.Sprintf("missing data for %d field(s)", len(result.MissingData))
	default:
		return ""
	}
}

func collectIDs(results []models.CriterionResult, status models.CriterionStatus) []string {
	ids := make([]string, 0)
	for _, r := range results {
		if r.Status == status {
			ids = append(ids, r.CriterionID)
		}
	}
	return ids
}
