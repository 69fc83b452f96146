package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"vitalog.app/health-tracker/internal/store"
)

type Task string

const (
	TaskMood    Task = "mood"
	TaskSymptom Task = "symptom"
	TaskTriage  Task = "triage"
)

// Prompt is what a TextGenerator receives. Text is the full rendered prompt;
// Entry is the raw entry block so local generators need not re-parse Text.
type Prompt struct {
	Task   Task
	Text   string
	Entry  string
	Schema map[string]interface{}
}

const (
	entryStartMarker = "--- ENTRY START ---"
	entryEndMarker   = "--- ENTRY END ---"
)

const moodTemplate = `You are a compassionate wellness companion reviewing a user's mood journal entry.
Describe the emotional tone, give one practical suggestion and a few short observations.
Assess risk: "high" only when the entry suggests the user may be in danger, "medium" for sustained or intense distress, otherwise "low".
If the entry mentions self-harm, always recommend contacting local emergency services or a crisis line.
Do not diagnose. Respond ONLY with a JSON object matching this schema, with no surrounding text:
%s`

const symptomTemplate = `You are a careful health assistant reviewing symptoms a user logged.
Summarize what they reported, suggest sensible self-care or whether to seek care, and list a few short observations.
Classify urgency as "low", "medium", "high" or "emergency". Use "emergency" for chest pain, trouble breathing, stroke signs, heavy bleeding or loss of consciousness, and tell the user to call emergency services.
You are not a doctor and must not give a diagnosis. Respond ONLY with a JSON object matching this schema, with no surrounding text:
%s`

const triageTemplate = `You are a friendly symptom triage assistant holding a short conversation with a user.
Ask one focused follow-up question at a time about onset, duration, severity, or what makes it better or worse.
Never diagnose or prescribe. If anything sounds like an emergency, tell the user to contact emergency services now.
Reply in plain text, at most three sentences.`

// BuildPrompt renders template, the most recent k history turns and the entry.
// Older turns are dropped; the entry text is never truncated.
func BuildPrompt(template string, history []store.ChatMessage, entryText string, k int) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(template))
	b.WriteString("\n\n")

	if k > 0 && len(history) > 0 {
		if len(history) > k {
			history = history[len(history)-k:]
		}
		b.WriteString("Conversation so far:\n")
		for _, msg := range history {
			speaker := "User"
			if msg.Role == store.RoleAssistant {
				speaker = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString(entryStartMarker)
	b.WriteString("\n")
	b.WriteString(entryText)
	b.WriteString("\n")
	b.WriteString(entryEndMarker)
	return b.String()
}

func withSchema(template string, schema map[string]interface{}) string {
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		// Schemas are generated from static types at init.
		panic(err)
	}
	return fmt.Sprintf(template, b)
}

func moodEntryText(e *store.MoodEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mood: %s\n", e.Mood)
	fmt.Fprintf(&b, "Intensity: %d/10\n", e.Intensity)
	if len(e.Triggers) > 0 {
		fmt.Fprintf(&b, "Triggers: %s\n", strings.Join(e.Triggers, ", "))
	}
	if e.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", e.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func symptomEntryText(e *store.SymptomEntry) string {
	var b strings.Builder
	b.WriteString("Symptoms:\n")
	for _, s := range e.Symptoms {
		fmt.Fprintf(&b, "- %s (severity %d/10)\n", s.Name, s.Severity)
	}
	if e.Duration != "" {
		fmt.Fprintf(&b, "Duration: %s\n", e.Duration)
	}
	if e.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", e.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func NewMoodPrompt(e *store.MoodEntry, history []store.ChatMessage, k int) Prompt {
	entry := moodEntryText(e)
	return Prompt{
		Task:   TaskMood,
		Text:   BuildPrompt(withSchema(moodTemplate, moodAnalysisSchema), history, entry, k),
		Entry:  entry,
		Schema: moodAnalysisSchema,
	}
}

func NewSymptomPrompt(e *store.SymptomEntry, history []store.ChatMessage, k int) Prompt {
	entry := symptomEntryText(e)
	return Prompt{
		Task:   TaskSymptom,
		Text:   BuildPrompt(withSchema(symptomTemplate, symptomAnalysisSchema), history, entry, k),
		Entry:  entry,
		Schema: symptomAnalysisSchema,
	}
}

func NewTriagePrompt(symptoms string, history []store.ChatMessage, k int) Prompt {
	return Prompt{
		Task:  TaskTriage,
		Text:  BuildPrompt(triageTemplate, history, symptoms, k),
		Entry: symptoms,
	}
}
