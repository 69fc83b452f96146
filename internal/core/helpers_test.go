package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"vitalog.app/health-tracker/internal/store"
)

var errModelDown = errors.New("connection refused")

type fakeGenerator struct {
	GenerateFunc func(ctx context.Context, p Prompt) (string, error)

	mu      sync.Mutex
	prompts []Prompt
}

func (f *fakeGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	return f.GenerateFunc(ctx, p)
}

func (f *fakeGenerator) Name() string { return "fake" }
func (f *fakeGenerator) Mode() string { return ModeGemini }
func (f *fakeGenerator) Close() error { return nil }

func (f *fakeGenerator) lastPrompt() Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

func replying(text string) *fakeGenerator {
	return &fakeGenerator{GenerateFunc: func(context.Context, Prompt) (string, error) { return text, nil }}
}

func failing() *fakeGenerator {
	return &fakeGenerator{GenerateFunc: func(context.Context, Prompt) (string, error) {
		return "", classifyModelError("fake", errModelDown)
	}}
}

type fallbackEvent struct {
	flow, tier, provider, reason string
}

type recordingObserver struct {
	mu     sync.Mutex
	events []fallbackEvent
}

func (o *recordingObserver) RecordFallback(flow, tier, provider, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, fallbackEvent{flow, tier, provider, reason})
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "core.db") + "?_busy_timeout=5000&_txlock=immediate"
	s, err := store.NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func chatTurns(n int) []store.ChatMessage {
	msgs := make([]store.ChatMessage, 0, n)
	for i := 1; i <= n; i++ {
		role := store.RoleUser
		if i%2 == 0 {
			role = store.RoleAssistant
		}
		msgs = append(msgs, store.ChatMessage{Role: role, Content: "turn " + string(rune('A'+i-1)), Timestamp: fixedNow})
	}
	return msgs
}
