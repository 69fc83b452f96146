package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"vitalog.app/health-tracker/internal/auth"
	"vitalog.app/health-tracker/internal/core"
)

func (h *APIHandler) LogChatHandler(w http.ResponseWriter, r *http.Request) error {
	var req core.ChatLogRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	userID, err := resolveUser(r, req.UserID)
	if err != nil {
		return err
	}
	req.UserID = userID

	session, err := h.services.Chat.LogExchange(r.Context(), req)
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, session)
	return nil
}

func (h *APIHandler) GetChatSessionHandler(w http.ResponseWriter, r *http.Request) error {
	session, err := h.services.Chat.GetSession(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, session)
	return nil
}

func (h *APIHandler) ListChatSessionsHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := resolveUser(r, chi.URLParam(r, "userId"))
	if err != nil {
		return err
	}
	sessions, err := h.services.Chat.ListSessions(r.Context(), userID)
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, sessions)
	return nil
}

func (h *APIHandler) EndChatSessionHandler(w http.ResponseWriter, r *http.Request) error {
	if err := h.services.Chat.EndSession(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "sessionId")); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "chat session ended")
	return nil
}
