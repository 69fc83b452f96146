package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/store"
)

// RecordService is the CRUD service shared by every entry kind. T is the
// record type and PT its pointer, which carries the entry metadata.
type RecordService[T any, PT interface {
	*T
	store.Record
}] struct {
	store     store.Store
	kind      store.Kind
	validator *Validator
	rules     func(PT) Violations
	normalize func(PT)
	now       func() time.Time
}

func NewRecordService[T any, PT interface {
	*T
	store.Record
}](s store.Store, kind store.Kind, v *Validator, rules func(PT) Violations) *RecordService[T, PT] {
	return &RecordService[T, PT]{
		store:     s,
		kind:      kind,
		validator: v,
		rules:     rules,
		now:       func() time.Time { return store.NormalizeTime(time.Now()) },
	}
}

// WithNormalize registers a hook run on every record before validation.
func (s *RecordService[T, PT]) WithNormalize(fn func(PT)) *RecordService[T, PT] {
	s.normalize = fn
	return s
}

func (s *RecordService[T, PT]) Kind() store.Kind { return s.kind }

func (s *RecordService[T, PT]) prepare(userID string, rec PT) {
	meta := rec.Meta()
	now := s.now()
	meta.ID = uuid.NewString()
	meta.UserID = userID
	meta.CreatedAt = now
	if meta.Date.IsZero() {
		meta.Date = now
	} else {
		meta.Date = store.NormalizeTime(meta.Date)
	}
	if s.normalize != nil {
		s.normalize(rec)
	}
}

func (s *RecordService[T, PT]) validate(rec PT) error {
	if s.rules == nil {
		return nil
	}
	return s.validator.Apply(s.kind, s.rules(rec))
}

func (s *RecordService[T, PT]) insert(ctx context.Context, rec PT) error {
	entry, err := store.EncodeEntry(s.kind, rec)
	if err != nil {
		return err
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to save %s entry: %w", s.kind, err)
	}
	return nil
}

func (s *RecordService[T, PT]) decode(e store.Entry) (PT, error) {
	rec := PT(new(T))
	if err := store.DecodeEntry(e, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecordService[T, PT]) Create(ctx context.Context, userID string, rec PT) (PT, error) {
	s.prepare(userID, rec)
	if err := s.validate(rec); err != nil {
		return nil, err
	}
	if err := s.insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the user's records newest first. days > 0 restricts the
// result to that many days back; limit > 0 caps it.
func (s *RecordService[T, PT]) List(ctx context.Context, userID string, days, limit int) ([]PT, error) {
	q := store.EntryQuery{Kind: s.kind, OwnerID: userID, Limit: limit}
	if days > 0 {
		q.Since = s.now().Add(-time.Duration(days) * 24 * time.Hour)
	}
	entries, err := s.store.ListEntries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", s.kind, err)
	}

	out := make([]PT, 0, len(entries))
	for _, e := range entries {
		rec, err := s.decode(e)
		if err != nil {
			log.Printf("Skipping unreadable %s entry %s: %v", s.kind, e.ID, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RecordService[T, PT]) Get(ctx context.Context, userID, id string) (PT, error) {
	e, err := s.store.GetEntry(ctx, s.kind, userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("%s entry not found", s.kind))
		}
		return nil, fmt.Errorf("failed to get %s entry: %w", s.kind, err)
	}
	return s.decode(*e)
}

// Update replaces the record's fields. Identity and creation time are kept.
func (s *RecordService[T, PT]) Update(ctx context.Context, userID, id string, rec PT) (PT, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	meta := rec.Meta()
	old := existing.Meta()
	meta.ID = id
	meta.UserID = userID
	meta.CreatedAt = old.CreatedAt
	if meta.Date.IsZero() {
		meta.Date = old.Date
	} else {
		meta.Date = store.NormalizeTime(meta.Date)
	}
	if s.normalize != nil {
		s.normalize(rec)
	}
	if err := s.validate(rec); err != nil {
		return nil, err
	}

	entry, err := store.EncodeEntry(s.kind, rec)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateEntryPayload(ctx, s.kind, userID, id, meta.Date, entry.Payload); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("%s entry not found", s.kind))
		}
		return nil, fmt.Errorf("failed to update %s entry: %w", s.kind, err)
	}
	return rec, nil
}

func (s *RecordService[T, PT]) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteEntry(ctx, s.kind, userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(fmt.Sprintf("%s entry not found", s.kind))
		}
		return fmt.Errorf("failed to delete %s entry: %w", s.kind, err)
	}
	return nil
}

// MealTotals fills TotalCalories from the foods when the client left it empty.
func MealTotals(m *store.Meal) {
	if m.TotalCalories != 0 {
		return
	}
	for _, f := range m.Foods {
		m.TotalCalories += f.Calories
	}
}
