package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vitalog.app/health-tracker/internal/store"
	"vitalog.app/health-tracker/internal/utils"
)

const maxUnstructuredRunes = 500

var errNoJSONObject = errors.New("no JSON object found in model output")

var genericInsights = []string{
	"Keep a regular sleep schedule.",
	"Stay hydrated and eat regular meals.",
	"Take short breaks to move or stretch.",
	"Reach out to someone you trust if things feel heavy.",
}

// decodeModelJSON decodes the whole text, or failing that the span between the
// first '{' and the last '}'.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return errNoJSONObject
	}
	if s[0] == '{' {
		if err := json.Unmarshal([]byte(s), v); err == nil {
			return nil
		}
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return errNoJSONObject
	}
	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}

// ParseMoodResponse turns raw model text into a complete annotation. The
// result's Source tells whether structured JSON was found.
func ParseMoodResponse(raw string, intensity int, now time.Time) store.AIAnnotation {
	var parsed moodAnalysis
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return unstructuredMoodAnnotation(raw, intensity, now)
	}

	a := store.AIAnnotation{
		Sentiment:   strings.TrimSpace(parsed.Sentiment),
		Advice:      strings.TrimSpace(parsed.Advice),
		Insights:    cleanInsights(parsed.Insights),
		RiskLevel:   store.RiskLevel(strings.ToLower(strings.TrimSpace(parsed.RiskLevel))),
		Source:      store.SourceModel,
		GeneratedAt: now,
	}
	fillMoodDefaults(&a, intensity)
	return a
}

// ParseSymptomResponse is the symptom counterpart of ParseMoodResponse.
func ParseSymptomResponse(raw string, symptoms []store.Symptom, notes string, now time.Time) store.AIAnnotation {
	var parsed symptomAnalysis
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return unstructuredSymptomAnnotation(raw, symptoms, notes, now)
	}

	a := store.AIAnnotation{
		Sentiment:   strings.TrimSpace(parsed.Sentiment),
		Advice:      strings.TrimSpace(parsed.Advice),
		Insights:    cleanInsights(parsed.Insights),
		Urgency:     store.Urgency(strings.ToLower(strings.TrimSpace(parsed.Urgency))),
		Source:      store.SourceModel,
		GeneratedAt: now,
	}
	if a.Sentiment == "" {
		a.Sentiment = "Symptoms recorded."
	}
	if a.Advice == "" {
		a.Advice = "Monitor your symptoms and consult a healthcare professional if they persist or worsen."
	}
	if len(a.Insights) == 0 {
		a.Insights = append([]string(nil), genericInsights...)
	}
	if !validUrgency(a.Urgency) {
		a.Urgency = SymptomUrgency(symptoms, notes)
	}
	return a
}

func unstructuredMoodAnnotation(raw string, intensity int, now time.Time) store.AIAnnotation {
	text := utils.TruncateRunes(strings.TrimSpace(raw), maxUnstructuredRunes)
	a := store.AIAnnotation{
		Sentiment:   text,
		Advice:      text,
		Source:      store.SourceModelUnstructured,
		GeneratedAt: now,
	}
	fillMoodDefaults(&a, intensity)
	return a
}

func unstructuredSymptomAnnotation(raw string, symptoms []store.Symptom, notes string, now time.Time) store.AIAnnotation {
	text := utils.TruncateRunes(strings.TrimSpace(raw), maxUnstructuredRunes)
	if text == "" {
		text = "Symptoms recorded."
	}
	return store.AIAnnotation{
		Sentiment:   text,
		Advice:      text,
		Insights:    append([]string(nil), genericInsights...),
		Urgency:     SymptomUrgency(symptoms, notes),
		Source:      store.SourceModelUnstructured,
		GeneratedAt: now,
	}
}

func fillMoodDefaults(a *store.AIAnnotation, intensity int) {
	if a.Sentiment == "" {
		a.Sentiment = "Thanks for logging how you feel."
	}
	if a.Advice == "" {
		a.Advice = "Take a moment for yourself and keep tracking your mood."
	}
	if len(a.Insights) == 0 {
		a.Insights = append([]string(nil), genericInsights...)
	}
	if !validRiskLevel(a.RiskLevel) {
		a.RiskLevel = riskFromIntensity(intensity)
	}
}

func riskFromIntensity(intensity int) store.RiskLevel {
	if intensity >= 8 {
		return store.RiskMedium
	}
	return store.RiskLow
}

func cleanInsights(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validRiskLevel(r store.RiskLevel) bool {
	switch r {
	case store.RiskLow, store.RiskMedium, store.RiskHigh:
		return true
	}
	return false
}

func validUrgency(u store.Urgency) bool {
	switch u {
	case store.UrgencyLow, store.UrgencyMedium, store.UrgencyHigh, store.UrgencyEmergency:
		return true
	}
	return false
}
