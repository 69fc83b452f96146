package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"vitalog.app/health-tracker/internal/core"
	"vitalog.app/health-tracker/internal/store"
)

// mountRecords registers the CRUD routes shared by workouts, nutrition,
// health metrics and routines.
func mountRecords[T any, PT interface {
	*T
	store.Record
}](h *APIHandler, router chi.Router, svc *core.RecordService[T, PT]) {
	kind := svc.Kind()

	router.Post("/", h.handle(func(w http.ResponseWriter, r *http.Request) error {
		rec := PT(new(T))
		if err := decodeJSON(r, rec); err != nil {
			return err
		}
		userID, err := resolveUser(r, rec.Meta().UserID)
		if err != nil {
			return err
		}
		created, err := svc.Create(r.Context(), userID, rec)
		if err != nil {
			return err
		}
		writeData(w, http.StatusCreated, created)
		return nil
	}))

	router.Get("/{userId}", h.handle(func(w http.ResponseWriter, r *http.Request) error {
		userID, err := resolveUser(r, chi.URLParam(r, "userId"))
		if err != nil {
			return err
		}
		days, err := queryInt(r, "days", 0)
		if err != nil {
			return err
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			return err
		}
		recs, err := svc.List(r.Context(), userID, days, limit)
		if err != nil {
			return err
		}
		writeData(w, http.StatusOK, recs)
		return nil
	}))

	router.Get("/{userId}/{id}", h.handle(func(w http.ResponseWriter, r *http.Request) error {
		userID, err := resolveUser(r, chi.URLParam(r, "userId"))
		if err != nil {
			return err
		}
		rec, err := svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
		if err != nil {
			return err
		}
		writeData(w, http.StatusOK, rec)
		return nil
	}))

	router.Put("/{userId}/{id}", h.handle(func(w http.ResponseWriter, r *http.Request) error {
		userID, err := resolveUser(r, chi.URLParam(r, "userId"))
		if err != nil {
			return err
		}
		rec := PT(new(T))
		if err := decodeJSON(r, rec); err != nil {
			return err
		}
		updated, err := svc.Update(r.Context(), userID, chi.URLParam(r, "id"), rec)
		if err != nil {
			return err
		}
		writeData(w, http.StatusOK, updated)
		return nil
	}))

	router.Delete("/{userId}/{id}", h.handle(func(w http.ResponseWriter, r *http.Request) error {
		userID, err := resolveUser(r, chi.URLParam(r, "userId"))
		if err != nil {
			return err
		}
		if err := svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
			return err
		}
		writeMessage(w, http.StatusOK, fmt.Sprintf("%s entry deleted", kind))
		return nil
	}))
}
