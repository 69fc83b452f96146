package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/store"
)

type ChatLogRequest struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	UserMessage string `json:"userMessage"`
	AIResponse  string `json:"aiResponse"`
}

// ChatService records chat exchanges that happen outside the triage flow.
type ChatService struct {
	store store.Store
	now   func() time.Time
}

func NewChatService(s store.Store) *ChatService {
	return &ChatService{
		store: s,
		now:   func() time.Time { return store.NormalizeTime(time.Now()) },
	}
}

// LogExchange appends the user message and, when present, the assistant reply.
// The session is created on first use.
func (s *ChatService) LogExchange(ctx context.Context, req ChatLogRequest) (*store.ChatSession, error) {
	var fields []apperr.FieldError
	if strings.TrimSpace(req.SessionID) == "" {
		fields = append(fields, apperr.FieldError{Field: "sessionId", Message: "is required"})
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		fields = append(fields, apperr.FieldError{Field: "userMessage", Message: "is required"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid chat log request", fields...)
	}

	now := s.now()
	msgs := []store.ChatMessage{{Role: store.RoleUser, Content: req.UserMessage, Timestamp: now}}
	if strings.TrimSpace(req.AIResponse) != "" {
		msgs = append(msgs, store.ChatMessage{Role: store.RoleAssistant, Content: req.AIResponse, Timestamp: now})
	}

	session, err := s.store.AppendChatMessages(ctx, req.SessionID, req.UserID, msgs...)
	if err != nil {
		if errors.Is(err, store.ErrOwnerMismatch) {
			return nil, apperr.Forbidden("chat session belongs to another user")
		}
		return nil, fmt.Errorf("failed to log chat exchange: %w", err)
	}
	return session, nil
}

func (s *ChatService) GetSession(ctx context.Context, userID, sessionID string) (*store.ChatSession, error) {
	session, err := s.store.GetChatSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("chat session not found")
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	if session.UserID != userID {
		return nil, apperr.Forbidden("chat session belongs to another user")
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]store.ChatSession, error) {
	sessions, err := s.store.ListChatSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	return sessions, nil
}

func (s *ChatService) EndSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.store.SetChatSessionActive(ctx, sessionID, userID, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("chat session not found")
		}
		return fmt.Errorf("failed to end chat session: %w", err)
	}
	return nil
}
