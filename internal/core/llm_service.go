package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Diagnose modes reported to clients.
const (
	ModeGemini   = "GEMINI_AI"
	ModeOpenAI   = "OPENAI_AI"
	ModeLocal    = "LOCAL_AI"
	ModeFallback = "FALLBACK"
)

const systemInstruction = "You are a supportive health and wellness assistant inside a personal health tracker. " +
	"You are not a doctor and never give a diagnosis. Keep answers short, kind and practical."

var (
	// ErrModelUnavailable covers network failures, quota or rate limiting,
	// provider 5xx responses and deadlines.
	ErrModelUnavailable = errors.New("language model unavailable")
	// ErrModelError covers rejected requests and unusable responses.
	ErrModelError = errors.New("language model error")
)

// TextGenerator sends one prompt to a language model and returns its raw text.
// A single failed call is final; callers fall back instead of retrying.
type TextGenerator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	Name() string
	Mode() string
	Close() error
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiGenerator, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }
func (g *GeminiGenerator) Mode() string { return ModeGemini }

func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("error closing GenAI client: %w", err)
	}
	log.Println("GenAI client closed.")
	return nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	temp := float32(0.4)
	maxTokens := int32(1024)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}
	if p.Schema != nil {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(p.Text))
	if err != nil {
		return "", classifyModelError(g.Name(), err)
	}
	return geminiResponseText(resp)
}

func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrModelError)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	if strings.TrimSpace(responseText.String()) == "" {
		return "", fmt.Errorf("%w: gemini returned an empty or non-text response", ErrModelError)
	}
	return responseText.String(), nil
}

// classifyModelError maps a provider failure onto ErrModelUnavailable or ErrModelError.
func classifyModelError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", ErrModelUnavailable, provider, err)
	}

	status := statusCodeOf(err)
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: %s returned %d: %w", ErrModelUnavailable, provider, status, err)
	case status >= 400:
		return fmt.Errorf("%w: %s returned %d: %w", ErrModelError, provider, status, err)
	}

	// Network and unknown transport failures count as an outage.
	return fmt.Errorf("%w: %s: %w", ErrModelUnavailable, provider, err)
}

func statusCodeOf(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var oErr *openai.Error
	if errors.As(err, &oErr) {
		return oErr.StatusCode
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return coded.HTTPCode()
	}
	return 0
}
