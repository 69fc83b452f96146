package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/store"
)

type DiagnoseRequest struct {
	UserID    string
	SessionID string
	Symptoms  string
}

type DiagnoseResult struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Mode      string `json:"mode"`
}

// TriageService holds the conversational symptom check. Each turn sees the
// session's recent history and is appended to the session afterwards.
type TriageService struct {
	store        store.Store
	history      *HistoryLoader
	generator    TextGenerator
	observer     FallbackObserver
	timeout      time.Duration
	historyTurns int
	intn         func(n int) int
	now          func() time.Time
}

func NewTriageService(s store.Store, h *HistoryLoader, gen TextGenerator, obs FallbackObserver, timeout time.Duration, historyTurns int) *TriageService {
	return &TriageService{
		store:        s,
		history:      h,
		generator:    gen,
		observer:     obs,
		timeout:      timeout,
		historyTurns: historyTurns,
		intn:         rand.Intn,
		now:          func() time.Time { return store.NormalizeTime(time.Now()) },
	}
}

func (s *TriageService) Diagnose(ctx context.Context, req DiagnoseRequest) (*DiagnoseResult, error) {
	symptoms := strings.TrimSpace(req.Symptoms)
	if symptoms == "" {
		return nil, apperr.Validation("symptoms are required", apperr.FieldError{Field: "symptoms", Message: "is required"})
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := s.history.Load(ctx, sessionID, req.UserID, s.historyTurns)
	if err != nil {
		return nil, err
	}
	prompt := NewTriagePrompt(symptoms, history, s.historyTurns)

	mode := s.generator.Mode()
	reply, err := generateWithTimeout(ctx, s.generator, s.timeout, prompt)
	reply = strings.TrimSpace(reply)
	if err == nil && reply == "" {
		err = fmt.Errorf("%w: empty triage reply", ErrModelError)
	}
	if err != nil {
		s.observer.RecordFallback("triage", TierStatic, s.generator.Name(), err.Error())
		reply = triageFallbackQuestions[s.intn(len(triageFallbackQuestions))]
		mode = ModeFallback
	}

	now := s.now()
	_, err = s.store.AppendChatMessages(ctx, sessionID, req.UserID,
		store.ChatMessage{Role: store.RoleUser, Content: symptoms, Timestamp: now},
		store.ChatMessage{Role: store.RoleAssistant, Content: reply, Timestamp: now},
	)
	if err != nil {
		if errors.Is(err, store.ErrOwnerMismatch) {
			return nil, errForeignSession
		}
		return nil, fmt.Errorf("failed to store triage turn: %w", err)
	}

	return &DiagnoseResult{SessionID: sessionID, Message: reply, Mode: mode}, nil
}
