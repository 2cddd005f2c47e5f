package screening

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
	"github.com/trialscreen-ai/platform/pkg/trials"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/screening", h.handleScreen).Methods(http.MethodPost)
	r.HandleFunc("/screening/batch", h.handleBatch).Methods(http.MethodPost)
	r.HandleFunc("/screening/batch/jobs", h.handleEnqueueBatch).Methods(http.MethodPost)
	r.HandleFunc("/screening/history", h.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/screening/history/{id}", h.handleGetRecord).Methods(http.MethodGet)
}

func (h *Handler) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req models.ScreeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	response, err := h.service.Screen(r.Context(), req)
	if err != nil {
		h.writeScreeningError(w, err, "screening failed")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchScreeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	response, err := h.service.ScreenBatch(r.Context(), req)
	if err != nil {
		h.writeScreeningError(w, err, "batch screening failed")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleEnqueueBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchScreeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	jobID, err := h.service.EnqueueBatch(r.Context(), req, r.Header.Get("X-Requested-By"))
	if err != nil {
		h.writeScreeningError(w, err, "failed to enqueue batch")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": jobID,
		"status": "queued",
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	records, err := h.service.History(r.Context(),
		r.URL.Query().Get("trial_id"),
		r.URL.Query().Get("patient_id"),
		limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list screening history")
		http.Error(w, "failed to list screening history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}
	record, err := h.service.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			http.Error(w, "screening record not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get screening record")
		http.Error(w, "failed to get screening record", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"record": record})
}

func (h *Handler) writeScreeningError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, trials.ErrNotFound):
		http.Error(w, "trial not found", http.StatusNotFound)
	case errors.Is(err, ErrTrialInactive):
		http.Error(w, "trial is not active", http.StatusConflict)
	default:
		logger.Log.WithError(err).Error(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
