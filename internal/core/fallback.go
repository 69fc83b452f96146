package core

import (
	"strings"
	"time"

	"vitalog.app/health-tracker/internal/store"
	"vitalog.app/health-tracker/internal/utils"
)

const neutralMood = "neutral"

type cannedAnnotation struct {
	sentiment string
	advice    string
	insights  []string
	risk      store.RiskLevel
}

var moodFallbacks = map[string]cannedAnnotation{
	"happy": {
		sentiment: "You're feeling positive and upbeat.",
		advice:    "Notice what contributed to this mood so you can come back to it.",
		insights:  []string{"Positive moods are a good moment to build habits.", "Consider sharing the good news with someone."},
		risk:      store.RiskLow,
	},
	"sad": {
		sentiment: "You're going through a low moment.",
		advice:    "Be gentle with yourself and reach out to someone you trust.",
		insights:  []string{"Sadness often eases with connection.", "A short walk outside can help lift your mood."},
		risk:      store.RiskMedium,
	},
	"anxious": {
		sentiment: "You're feeling worried or on edge.",
		advice:    "Try a few minutes of slow breathing: in for four, hold for four, out for six.",
		insights:  []string{"Naming what worries you can make it feel smaller.", "Limiting caffeine may reduce physical anxiety."},
		risk:      store.RiskMedium,
	},
	"angry": {
		sentiment: "You're feeling frustrated or angry.",
		advice:    "Step away for a moment before responding to what upset you.",
		insights:  []string{"Physical activity is a healthy outlet for anger.", "Writing down what happened can bring clarity."},
		risk:      store.RiskMedium,
	},
	"stressed": {
		sentiment: "You're under pressure right now.",
		advice:    "Break your tasks into small steps and take one at a time.",
		insights:  []string{"Short breaks improve focus under stress.", "Sleep has a big effect on how stress feels."},
		risk:      store.RiskMedium,
	},
	"calm": {
		sentiment: "You're feeling calm and settled.",
		advice:    "Keep doing what helps you feel balanced.",
		insights:  []string{"Calm moments are a good time for reflection.", "Regular routines support steady moods."},
		risk:      store.RiskLow,
	},
	"excited": {
		sentiment: "You're feeling energized and excited.",
		advice:    "Channel this energy into something you care about.",
		insights:  []string{"Excitement pairs well with planning.", "Remember to rest so the energy lasts."},
		risk:      store.RiskLow,
	},
	"tired": {
		sentiment: "You're feeling low on energy.",
		advice:    "Prioritize rest tonight and keep your bedtime consistent.",
		insights:  []string{"Hydration and daylight can improve energy.", "Persistent tiredness is worth mentioning to a doctor."},
		risk:      store.RiskLow,
	},
	neutralMood: {
		sentiment: "Thanks for checking in with how you feel.",
		advice:    "Keep tracking your mood to spot patterns over time.",
		insights:  []string{"Regular check-ins make trends easier to see.", "Small routines like walks and regular sleep support wellbeing."},
		risk:      store.RiskLow,
	},
}

// FallbackMoodAnnotation returns the canned annotation for mood, or the
// neutral one when the label is unknown.
func FallbackMoodAnnotation(mood string, now time.Time) store.AIAnnotation {
	c, ok := moodFallbacks[strings.ToLower(strings.TrimSpace(mood))]
	if !ok {
		c = moodFallbacks[neutralMood]
	}
	return store.AIAnnotation{
		Sentiment:   c.sentiment,
		Advice:      c.advice,
		Insights:    append([]string(nil), c.insights...),
		RiskLevel:   c.risk,
		Source:      store.SourceFallback,
		GeneratedAt: now,
	}
}

var emergencyKeywords = []string{
	"chest pain", "can't breathe", "cannot breathe", "difficulty breathing", "shortness of breath",
	"unconscious", "fainted", "severe bleeding", "suicidal", "stroke", "seizure", "slurred speech",
}

// SymptomUrgency grades symptoms by keywords first, then by the highest severity.
func SymptomUrgency(symptoms []store.Symptom, notes string) store.Urgency {
	var text strings.Builder
	text.WriteString(notes)
	maxSeverity := 0
	for _, s := range symptoms {
		text.WriteString(" ")
		text.WriteString(s.Name)
		if s.Severity > maxSeverity {
			maxSeverity = s.Severity
		}
	}
	if utils.ContainsAny(text.String(), emergencyKeywords) {
		return store.UrgencyEmergency
	}
	switch {
	case maxSeverity >= 9:
		return store.UrgencyHigh
	case maxSeverity >= 6:
		return store.UrgencyMedium
	default:
		return store.UrgencyLow
	}
}

var symptomFallbacks = map[store.Urgency]cannedAnnotation{
	store.UrgencyLow: {
		sentiment: "Your symptoms look mild.",
		advice:    "Rest, stay hydrated and keep an eye on how you feel.",
		insights:  []string{"Log symptoms daily to see whether they improve.", "Consult a healthcare professional if they persist."},
	},
	store.UrgencyMedium: {
		sentiment: "Your symptoms are moderate.",
		advice:    "Consider contacting your doctor if they do not improve within a day or two.",
		insights:  []string{"Note anything that makes symptoms better or worse.", "Over-the-counter relief may help; follow the label."},
	},
	store.UrgencyHigh: {
		sentiment: "Your symptoms are severe.",
		advice:    "Please contact a healthcare professional soon.",
		insights:  []string{"Severe symptoms deserve prompt medical attention.", "Do not drive yourself if you feel unwell."},
	},
	store.UrgencyEmergency: {
		sentiment: "Some of what you describe may be a medical emergency.",
		advice:    "Call your local emergency number or go to the nearest emergency room now.",
		insights:  []string{"Do not wait to see if these symptoms pass."},
	},
}

func FallbackSymptomAnnotation(symptoms []store.Symptom, notes string, now time.Time) store.AIAnnotation {
	urgency := SymptomUrgency(symptoms, notes)
	c := symptomFallbacks[urgency]
	return store.AIAnnotation{
		Sentiment:   c.sentiment,
		Advice:      c.advice,
		Insights:    append([]string(nil), c.insights...),
		Urgency:     urgency,
		Source:      store.SourceFallback,
		GeneratedAt: now,
	}
}

var triageFallbackQuestions = []string{
	"Can you tell me more about when these symptoms started?",
	"On a scale of 1 to 10, how severe would you say your symptoms are right now?",
	"Have you noticed anything that makes the symptoms better or worse?",
	"Are you experiencing any other symptoms alongside these?",
	"Have you taken any medication or tried any treatment so far?",
}

// TriageFallbackQuestions returns the clarifying questions used when the model is down.
func TriageFallbackQuestions() []string {
	return append([]string(nil), triageFallbackQuestions...)
}
