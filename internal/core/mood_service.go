package core

import (
	"context"

	"vitalog.app/health-tracker/internal/store"
)

// MoodService stores mood entries together with their analysis. Entries have
// no update path, so an annotation never changes once written.
type MoodService struct {
	records      *RecordService[store.MoodEntry, *store.MoodEntry]
	annotator    *Annotator
	history      *HistoryLoader
	historyTurns int
}

func NewMoodService(s store.Store, v *Validator, a *Annotator, h *HistoryLoader, historyTurns int) *MoodService {
	return &MoodService{
		records:      NewRecordService[store.MoodEntry](s, store.KindMood, v, ValidateMood),
		annotator:    a,
		history:      h,
		historyTurns: historyTurns,
	}
}

// Create validates e, annotates it and stores both as one document. When
// sessionID names one of the user's chat sessions its recent turns are
// added to the prompt; another user's session is rejected.
func (s *MoodService) Create(ctx context.Context, userID string, e *store.MoodEntry, sessionID string) (*store.MoodEntry, error) {
	s.records.prepare(userID, e)
	e.AIAnalysis = nil
	if err := s.records.validate(e); err != nil {
		return nil, err
	}

	history, err := s.history.Load(ctx, sessionID, userID, s.historyTurns)
	if err != nil {
		return nil, err
	}
	annotation := s.annotator.AnnotateMood(ctx, e, history, s.historyTurns)
	e.AIAnalysis = &annotation

	if err := s.records.insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *MoodService) List(ctx context.Context, userID string, days int) ([]*store.MoodEntry, error) {
	return s.records.List(ctx, userID, days, 0)
}

func (s *MoodService) Get(ctx context.Context, userID, id string) (*store.MoodEntry, error) {
	return s.records.Get(ctx, userID, id)
}

func (s *MoodService) Delete(ctx context.Context, userID, id string) error {
	return s.records.Delete(ctx, userID, id)
}

// Trend summarizes the last days of entries, defaulting to a week. It
// returns nil when there is nothing in range.
func (s *MoodService) Trend(ctx context.Context, userID string, days int) (*MoodTrend, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	entries, err := s.records.List(ctx, userID, days, 0)
	if err != nil {
		return nil, err
	}
	return ComputeMoodTrend(entries), nil
}
