package core

import (
	"context"

	"vitalog.app/health-tracker/internal/store"
)

// SymptomService stores symptom entries with an urgency annotation.
type SymptomService struct {
	records      *RecordService[store.SymptomEntry, *store.SymptomEntry]
	annotator    *Annotator
	history      *HistoryLoader
	historyTurns int
}

func NewSymptomService(s store.Store, v *Validator, a *Annotator, h *HistoryLoader, historyTurns int) *SymptomService {
	return &SymptomService{
		records:      NewRecordService[store.SymptomEntry](s, store.KindSymptom, v, ValidateSymptoms),
		annotator:    a,
		history:      h,
		historyTurns: historyTurns,
	}
}

func (s *SymptomService) Create(ctx context.Context, userID string, e *store.SymptomEntry, sessionID string) (*store.SymptomEntry, error) {
	s.records.prepare(userID, e)
	e.AIAnalysis = nil
	if err := s.records.validate(e); err != nil {
		return nil, err
	}

	history, err := s.history.Load(ctx, sessionID, userID, s.historyTurns)
	if err != nil {
		return nil, err
	}
	annotation := s.annotator.AnnotateSymptoms(ctx, e, history, s.historyTurns)
	e.AIAnalysis = &annotation

	if err := s.records.insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *SymptomService) List(ctx context.Context, userID string, days int) ([]*store.SymptomEntry, error) {
	return s.records.List(ctx, userID, days, 0)
}

func (s *SymptomService) Get(ctx context.Context, userID, id string) (*store.SymptomEntry, error) {
	return s.records.Get(ctx, userID, id)
}

func (s *SymptomService) Delete(ctx context.Context, userID, id string) error {
	return s.records.Delete(ctx, userID, id)
}
