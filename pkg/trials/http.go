package trials

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
	r.HandleFunc("/trials", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/trials", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/trials/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/trials/{id}", h.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/trials/{id}", h.handleDeactivate).Methods(http.MethodDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	trial, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case IsInvalid(err):
			http.Error(w, "id and name are required", http.StatusBadRequest)
		case errors.Is(err, ErrAlreadyExists):
			http.Error(w, "trial with this id already exists", http.StatusConflict)
		default:
			logger.Log.WithError(err).Error("failed to create trial")
			http.Error(w, "failed to create trial", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"trial": trial})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if raw := r.URL.Query().Get("active_only"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			activeOnly = v
		}
	}
	items, err := h.service.List(r.Context(), activeOnly, parseLimit(r, 50))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list trials")
		http.Error(w, "failed to list trials", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	trial, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "trial not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get trial")
		http.Error(w, "failed to get trial", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trial": trial})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	trialID := mux.Vars(r)["id"]
	if req.ID == "" {
		req.ID = trialID
	}
	trial, err := h.service.Update(r.Context(), trialID, req)
	if err != nil {
		switch {
		case IsInvalid(err):
			http.Error(w, "id and name are required", http.StatusBadRequest)
		case errors.Is(err, ErrNotFound):
			http.Error(w, "trial not found", http.StatusNotFound)
		default:
			logger.Log.WithError(err).Error("failed to update trial")
			http.Error(w, "failed to update trial", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trial": trial})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "trial not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to deactivate trial")
		http.Error(w, "failed to deactivate trial", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
