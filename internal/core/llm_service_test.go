package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestClassifyModelError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, ErrModelUnavailable},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), ErrModelUnavailable},
		{"quota", &googleapi.Error{Code: http.StatusTooManyRequests}, ErrModelUnavailable},
		{"server", &googleapi.Error{Code: http.StatusServiceUnavailable}, ErrModelUnavailable},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, ErrModelError},
		{"unknown", errors.New("dial tcp: connection refused"), ErrModelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyModelError("test", tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestGeminiResponseText(t *testing.T) {
	_, err := geminiResponseText(nil)
	assert.ErrorIs(t, err, ErrModelError)

	_, err = geminiResponseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}})
	assert.ErrorIs(t, err, ErrModelError)

	text, err := geminiResponseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"sentiment":`), genai.Text(`"ok"}`)}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, `{"sentiment":"ok"}`, text)

	_, err = geminiResponseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}},
	}}})
	assert.ErrorIs(t, err, ErrModelError)
}

const openAIResponseBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1741000000,
  "model": "gpt-4o-mini",
  "status": "completed",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "role": "assistant",
    "status": "completed",
    "content": [{"type": "output_text", "text": "{\"sentiment\":\"fine\"}", "annotations": []}]
  }]
}`

func TestOpenAIGenerator(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("X-Test-Case") {
		case "quota":
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
		case "bad":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"bad schema","type":"invalid_request_error"}}`))
		default:
			w.Write([]byte(openAIResponseBody))
		}
	}))
	defer srv.Close()

	newGen := func(testCase string) *OpenAIGenerator {
		return NewOpenAIGenerator("test-key", "gpt-4o-mini",
			option.WithBaseURL(srv.URL+"/"),
			option.WithHeader("X-Test-Case", testCase))
	}
	prompt := NewMoodPrompt(moods("calm", 3)[0], nil, 8)

	text, err := newGen("ok").Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, `{"sentiment":"fine"}`, text)

	calls = 0
	_, err = newGen("quota").Generate(context.Background(), prompt)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, 1, calls, "requests must not be retried")

	_, err = newGen("bad").Generate(context.Background(), prompt)
	assert.ErrorIs(t, err, ErrModelError)
}
