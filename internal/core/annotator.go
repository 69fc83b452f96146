package core

import (
	"context"
	"time"

	"vitalog.app/health-tracker/internal/store"
)

// Annotator runs the analysis flow for one entry: prompt, model call, parse,
// and fallback. It never returns an error; the annotation's Source records
// which tier produced it.
type Annotator struct {
	generator TextGenerator
	observer  FallbackObserver
	timeout   time.Duration
	now       func() time.Time
}

func NewAnnotator(gen TextGenerator, obs FallbackObserver, timeout time.Duration) *Annotator {
	return &Annotator{
		generator: gen,
		observer:  obs,
		timeout:   timeout,
		now:       func() time.Time { return store.NormalizeTime(time.Now()) },
	}
}

// generateWithTimeout calls gen under the configured deadline. A zero
// timeout leaves ctx untouched.
func generateWithTimeout(ctx context.Context, gen TextGenerator, timeout time.Duration, p Prompt) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return gen.Generate(ctx, p)
}

func (a *Annotator) generate(ctx context.Context, p Prompt) (string, error) {
	return generateWithTimeout(ctx, a.generator, a.timeout, p)
}

func (a *Annotator) AnnotateMood(ctx context.Context, e *store.MoodEntry, history []store.ChatMessage, k int) store.AIAnnotation {
	raw, err := a.generate(ctx, NewMoodPrompt(e, history, k))
	if err != nil {
		a.observer.RecordFallback("mood", TierStatic, a.generator.Name(), err.Error())
		return FallbackMoodAnnotation(e.Mood, a.now())
	}

	ann := ParseMoodResponse(raw, e.Intensity, a.now())
	if ann.Source == store.SourceModelUnstructured {
		a.observer.RecordFallback("mood", TierUnstructured, a.generator.Name(), "no JSON object in model response")
	}
	return ann
}

func (a *Annotator) AnnotateSymptoms(ctx context.Context, e *store.SymptomEntry, history []store.ChatMessage, k int) store.AIAnnotation {
	raw, err := a.generate(ctx, NewSymptomPrompt(e, history, k))
	if err != nil {
		a.observer.RecordFallback("symptom", TierStatic, a.generator.Name(), err.Error())
		return FallbackSymptomAnnotation(e.Symptoms, e.Notes, a.now())
	}

	ann := ParseSymptomResponse(raw, e.Symptoms, e.Notes, a.now())
	if ann.Source == store.SourceModelUnstructured {
		a.observer.RecordFallback("symptom", TierUnstructured, a.generator.Name(), "no JSON object in model response")
	}
	return ann
}
