package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients", h.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/patients", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}", h.handleDelete).Methods(http.MethodDelete)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var record models.PatientRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	saved, err := h.service.Save(r.Context(), record)
	if err != nil {
		if IsInvalid(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to save patient")
		http.Error(w, "failed to save patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"patient": saved})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	records, err := h.service.List(r.Context(), offset, parsePageSize(r, 50))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list patients")
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patients": records})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get patient")
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": record})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to delete patient")
		http.Error(w, "failed to delete patient", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parsePageSize(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
