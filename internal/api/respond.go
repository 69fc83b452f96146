package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/auth"
)

const maxBodyBytes = 1 << 20

type dataEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type messageEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, dataEnvelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageEnvelope{Success: true, Message: message})
}

// writeError is the single place where service errors become HTTP responses.
// Errors without a kind are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		log.Printf("Error handling %s %s [%s]: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, messageEnvelope{Message: "Internal server error"})
		return
	}
	writeJSON(w, appErr.Kind.HTTPStatus(), messageEnvelope{Message: appErr.Message, Errors: appErr.Fields})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}

// resolveUser returns the user a request acts on. An explicit id must match
// the authenticated user; an empty one defaults to it.
func resolveUser(r *http.Request, requested string) (string, error) {
	caller := auth.UserIDFromContext(r.Context())
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == "me" {
		return caller, nil
	}
	if requested != caller {
		return "", apperr.Forbidden("cannot access another user's data")
	}
	return requested, nil
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid query parameter", apperr.FieldError{Field: name, Message: "must be a non-negative integer"})
	}
	return n, nil
}
