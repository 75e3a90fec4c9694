package capture

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SinesysTech/captura/capture/internal/store"
	"github.com/SinesysTech/captura/tribunal"
)

// RegisterHTTP mounts the capture API on a chi router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Post("/api/captures", s.handleStartCapture)
	r.Get("/api/captures/{runID}", s.handleGetRun)
	r.Get("/api/captures/{runID}/raw", s.handleGetRawLogs)

	r.Get("/api/schedules", s.handleListSchedules)
	r.Post("/api/schedules", s.handleCreateSchedule)
	r.Put("/api/schedules/{id}", s.handleUpdateSchedule)
	r.Delete("/api/schedules/{id}", s.handleDeleteSchedule)
	r.Post("/api/schedules/{id}/toggle", s.handleToggleSchedule)
	r.Post("/api/schedules/{id}/trigger", s.handleTriggerSchedule)

	r.Get("/api/credentials", s.handleListCredentials)
	r.Post("/api/credentials", s.handleAddCredential)
	r.Delete("/api/credentials/{id}", s.handleDeleteCredential)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// StartCaptureRequest is the body of POST /api/captures.
type StartCaptureRequest struct {
	OperatorID    string                    `json:"operator_id"`
	CredentialIDs []string                  `json:"credential_ids"`
	Filters       []tribunal.CaptureRequest `json:"filters,omitempty"`
}

func (s *Service) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	var req StartCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	runID, err := s.StartRun(r.Context(), req.OperatorID, req.CredentialIDs, req.Filters)
	if err != nil {
		if errors.Is(err, tribunal.ErrCredentialOwnership) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Service) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Run(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Service) handleGetRawLogs(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.Run(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	logs, err := s.RawLogs(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []*store.RawLogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Service) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.Schedules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if schedules == nil {
		schedules = []*store.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Service) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var sc store.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.CreateSchedule(r.Context(), &sc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Service) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var sc store.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sc.ID = chi.URLParam(r, "id")
	if err := s.UpdateSchedule(r.Context(), &sc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Service) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ToggleSchedule(r.Context(), chi.URLParam(r, "id"), req.Active); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

func (s *Service) handleTriggerSchedule(w http.ResponseWriter, r *http.Request) {
	runID, err := s.TriggerSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Service) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	operatorID := r.URL.Query().Get("operator_id")
	if operatorID == "" {
		writeError(w, http.StatusBadRequest, "operator_id query parameter required")
		return
	}
	creds, err := s.Credentials(r.Context(), operatorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if creds == nil {
		creds = []*tribunal.Credential{}
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Service) handleAddCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		tribunal.Credential
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cred := req.Credential
	cred.Secret = req.Secret
	if err := s.AddCredential(r.Context(), &cred); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The secret never travels back out.
	writeJSON(w, http.StatusCreated, cred)
}

func (s *Service) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteCredential(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
