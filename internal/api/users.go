package api

import (
	"net/http"

	"vitalog.app/health-tracker/internal/auth"
	"vitalog.app/health-tracker/internal/core"
)

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) error {
	var req core.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	res, err := h.services.Users.Register(r.Context(), req)
	if err != nil {
		return err
	}
	writeData(w, http.StatusCreated, res)
	return nil
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) error {
	var req core.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	res, err := h.services.Users.Login(r.Context(), req)
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, res)
	return nil
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) error {
	user, err := h.services.Users.Me(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, user)
	return nil
}

func (h *APIHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) error {
	var req core.SettingsInput
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, err := h.services.Users.UpdateSettings(r.Context(), auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		return err
	}
	writeData(w, http.StatusOK, user)
	return nil
}
