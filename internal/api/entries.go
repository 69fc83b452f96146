package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"vitalog.app/health-tracker/internal/core"
	"vitalog.app/health-tracker/internal/store"
)

const defaultTrendDays = 7

// createMoodRequest is a mood entry plus the chat session whose history the
// analysis should see.
type createMoodRequest struct {
	store.MoodEntry
	SessionID string `json:"sessionId"`
}

type createSymptomRequest struct {
	store.SymptomEntry
	SessionID string `json:"sessionId"`
}

type diagnoseRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Symptoms  string `json:"symptoms"`
}

type diagnoseMessage struct {
	Message string `json:"message"`
}

type diagnoseResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"sessionId"`
	Response  diagnoseMessage `json:"response"`
	Mode      string          `json:"mode"`
}

func (h *APIHandler) CreateMoodHandler(w http.ResponseWriter, r *http.Request) error {
	var req createMoodRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	userID, err := resolveUser(r, req.UserID)
	if err != nil {
		return err
	}
	entry, err := h.services.Moods.Create(r.Context(), userID, &req.MoodEntry, req.SessionID)
	if err != nil {
		return err
	}
	writeData(w, http.StatusCreated, entry)
	return nil
}

func (h *APIHandler) ListMoodsHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	days, err := queryInt(r, "days", 0)
	if err != nil {
		return err
	}
	entries, err := h.services.Moods.List(r.Context(), userID, days)
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, entries)
	return nil
}

// MoodTrendHandler answers with data:null when the window holds no entries.
func (h *APIHandler) MoodTrendHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	days, err := queryInt(r, "days", defaultTrendDays)
	if err != nil {
		return err
	}
	trend, err := h.services.Moods.Trend(r.Context(), userID, days)
	if err != nil {
		return err
	}
	if trend == nil {
		writeData(w, http.StatusOK, nil)
		return nil
	}
	writeData(w, http.StatusOK, trend)
	return nil
}

func (h *APIHandler) GetMoodHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	entry, err := h.services.Moods.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, entry)
	return nil
}

func (h *APIHandler) DeleteMoodHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	if err := h.services.Moods.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "mood entry deleted")
	return nil
}

func (h *APIHandler) CreateSymptomHandler(w http.ResponseWriter, r *http.Request) error {
	var req createSymptomRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	userID, err := resolveUser(r, req.UserID)
	if err != nil {
		return err
	}
	entry, err := h.services.Symptoms.Create(r.Context(), userID, &req.SymptomEntry, req.SessionID)
	if err != nil {
		return err
	}
	writeData(w, http.StatusCreated, entry)
	return nil
}

func (h *APIHandler) ListSymptomsHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	days, err := queryInt(r, "days", 0)
	if err != nil {
		return err
	}
	entries, err := h.services.Symptoms.List(r.Context(), userID, days)
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, entries)
	return nil
}

func (h *APIHandler) GetSymptomHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	entry, err := h.services.Symptoms.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, entry)
	return nil
}

func (h *APIHandler) DeleteSymptomHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	if err := h.services.Symptoms.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "symptom entry deleted")
	return nil
}

// DiagnoseHandler runs one triage turn. A model failure still answers 200
// with a clarifying question and mode FALLBACK.
func (h *APIHandler) DiagnoseHandler(w http.ResponseWriter, r *http.Request) error {
	var req diagnoseRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	userID, err := resolveUser(r, req.UserID)
	if err != nil {
		return err
	}
	res, err := h.services.Triage.Diagnose(r.Context(), core.DiagnoseRequest{
		UserID:    userID,
		SessionID: req.SessionID,
		Symptoms:  req.Symptoms,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, diagnoseResponse{
		Success:   true,
		SessionID: res.SessionID,
		Response:  diagnoseMessage{Message: res.Message},
		Mode:      res.Mode,
	})
	return nil
}
