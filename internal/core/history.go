package core

import (
	"context"
	"errors"
	"log"

	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/store"
)

var errForeignSession = apperr.Forbidden("chat session belongs to another user")

// HistoryLoader fetches the recent turns of a chat session for prompt building.
type HistoryLoader struct {
	store store.Store
}

func NewHistoryLoader(s store.Store) *HistoryLoader {
	return &HistoryLoader{store: s}
}

// Load returns the last k messages of the session, oldest first. A session
// owned by someone other than ownerID is rejected with a Forbidden error.
// Missing sessions and store failures yield an empty history.
func (h *HistoryLoader) Load(ctx context.Context, sessionID, ownerID string, k int) ([]store.ChatMessage, error) {
	if sessionID == "" {
		return []store.ChatMessage{}, nil
	}

	session, err := h.store.GetChatSession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Error getting chat session %s: %v. Proceeding without history.", sessionID, err)
		}
		return []store.ChatMessage{}, nil
	}
	if session.UserID != ownerID {
		return nil, errForeignSession
	}
	if k <= 0 {
		return []store.ChatMessage{}, nil
	}

	msgs, err := h.store.GetLastNChatMessages(ctx, sessionID, k)
	if err != nil {
		log.Printf("Error getting chat history for session %s: %v. Proceeding without history.", sessionID, err)
		return []store.ChatMessage{}, nil
	}
	if len(msgs) > k {
		msgs = msgs[len(msgs)-k:]
	}
	return msgs, nil
}
