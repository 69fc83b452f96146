package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vitalog.app/health-tracker/internal/store"
	"vitalog.app/health-tracker/internal/utils"
)

var (
	positiveWords = []string{"happy", "good", "great", "calm", "relaxed", "grateful", "excited", "proud", "love", "fun", "rested", "better", "energized", "peaceful", "joy"}
	negativeWords = []string{"sad", "bad", "angry", "anxious", "worried", "stressed", "tired", "exhausted", "lonely", "upset", "awful", "hate", "scared", "overwhelmed", "hopeless", "cry"}
	crisisWords   = []string{"suicide", "suicidal", "kill myself", "self-harm", "hurt myself", "end it all", "hopeless"}
	durationWords = []string{"hour", "hours", "day", "days", "week", "weeks", "month", "months", "since", "yesterday", "today", "morning", "night"}
)

// moodLexicon maps each canned mood to the words that point at it.
var moodLexicon = map[string][]string{
	"happy":    {"happy", "good", "great", "joy", "glad", "fun", "love"},
	"sad":      {"sad", "down", "cry", "lonely", "miss", "lost"},
	"anxious":  {"anxious", "worried", "nervous", "panic", "scared", "fear"},
	"angry":    {"angry", "mad", "furious", "annoyed", "hate", "frustrated"},
	"stressed": {"stressed", "deadline", "pressure", "overwhelmed", "busy", "work"},
	"calm":     {"calm", "relaxed", "peaceful", "quiet", "meditation", "rested"},
	"excited":  {"excited", "thrilled", "energized", "eager", "pumped", "party"},
	"tired":    {"tired", "exhausted", "sleepy", "drained", "sleep", "fatigue"},
}

// LocalGenerator answers without any network call by counting keywords in the entry.
type LocalGenerator struct {
	vocabulary []string
	profiles   map[string][]float32
}

func NewLocalGenerator() *LocalGenerator {
	seen := make(map[string]bool)
	var vocabulary []string
	for _, words := range moodLexicon {
		for _, w := range words {
			if !seen[w] {
				seen[w] = true
				vocabulary = append(vocabulary, w)
			}
		}
	}
	sort.Strings(vocabulary)

	profiles := make(map[string][]float32, len(moodLexicon))
	for mood, words := range moodLexicon {
		profiles[mood] = utils.TermVector(words, vocabulary)
	}
	return &LocalGenerator{vocabulary: vocabulary, profiles: profiles}
}

func (g *LocalGenerator) Name() string { return "local" }
func (g *LocalGenerator) Mode() string { return ModeLocal }
func (g *LocalGenerator) Close() error { return nil }

func (g *LocalGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classifyModelError(g.Name(), err)
	}
	switch p.Task {
	case TaskMood:
		return g.moodAnalysis(p.Entry)
	case TaskSymptom:
		return localSymptomAnalysis(p.Entry)
	case TaskTriage:
		return localTriageReply(p.Entry), nil
	default:
		return "", fmt.Errorf("%w: local generator cannot handle task %q", ErrModelError, p.Task)
	}
}

func (g *LocalGenerator) moodAnalysis(entry string) (string, error) {
	label := entryField(entry, "Mood")
	intensity, _ := strconv.Atoi(strings.TrimSuffix(entryField(entry, "Intensity"), "/10"))

	pos := utils.CountKeywords(entry, positiveWords)
	neg := utils.CountKeywords(entry, negativeWords)

	// A known label wins; the notes only pick the advice for unknown ones.
	canned, known := moodFallbacks[strings.ToLower(label)]
	if !known {
		canned = moodFallbacks[neutralMood]
		if closest := g.closestMood(entry); closest != "" {
			canned = moodFallbacks[closest]
		}
	}

	var sentiment string
	switch {
	case pos > neg:
		sentiment = fmt.Sprintf("Your entry reads mostly positive (%d positive and %d negative cues).", pos, neg)
	case neg > pos:
		sentiment = fmt.Sprintf("Your entry reads mostly negative (%d negative and %d positive cues).", neg, pos)
	default:
		sentiment = "Your entry reads fairly balanced."
	}

	risk := riskFromIntensity(intensity)
	if neg > pos && intensity >= 8 {
		risk = store.RiskMedium
	}
	if utils.ContainsAny(entry, crisisWords) {
		risk = store.RiskHigh
	}

	advice := canned.advice
	if risk == store.RiskHigh {
		advice = "Please reach out to a crisis line or your local emergency number right away. You don't have to face this alone."
	}

	out, err := json.Marshal(moodAnalysis{
		Sentiment: sentiment,
		Advice:    advice,
		Insights:  canned.insights,
		RiskLevel: string(risk),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelError, err)
	}
	return string(out), nil
}

// closestMood scores the entry against each mood profile and returns the best
// match, or "" when no lexicon word occurs. Ties go to the smaller label.
func (g *LocalGenerator) closestMood(entry string) string {
	vec := utils.TermVector(utils.Tokenize(entry), g.vocabulary)
	best, bestScore := "", float32(0)
	moods := make([]string, 0, len(g.profiles))
	for mood := range g.profiles {
		moods = append(moods, mood)
	}
	sort.Strings(moods)
	for _, mood := range moods {
		score, err := utils.CosineSimilarity(vec, g.profiles[mood])
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = mood, score
		}
	}
	return best
}

func localSymptomAnalysis(entry string) (string, error) {
	var symptoms []store.Symptom
	for _, line := range strings.Split(entry, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		name, rest, _ := strings.Cut(strings.TrimPrefix(line, "- "), " (severity ")
		severity, _ := strconv.Atoi(strings.TrimSuffix(rest, "/10)"))
		symptoms = append(symptoms, store.Symptom{Name: name, Severity: severity})
	}

	urgency := SymptomUrgency(symptoms, entryField(entry, "Notes"))
	canned := symptomFallbacks[urgency]
	names := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		names = append(names, s.Name)
	}
	sentiment := canned.sentiment
	if len(names) > 0 {
		sentiment = fmt.Sprintf("You reported %s. %s", strings.Join(names, ", "), canned.sentiment)
	}

	out, err := json.Marshal(symptomAnalysis{
		Sentiment: sentiment,
		Advice:    canned.advice,
		Insights:  canned.insights,
		Urgency:   string(urgency),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelError, err)
	}
	return string(out), nil
}

func localTriageReply(symptoms string) string {
	switch {
	case utils.ContainsAny(symptoms, emergencyKeywords):
		return "Some of what you describe could be serious. Please call your local emergency number or go to the nearest emergency room now."
	case utils.CountKeywords(symptoms, durationWords) == 0:
		return "Thanks for sharing. When did these symptoms start, and have they been constant or coming and going?"
	case !strings.ContainsAny(symptoms, "0123456789"):
		return "On a scale of 1 to 10, how severe would you say it is right now?"
	default:
		return "Have you noticed anything that makes it better or worse, such as rest, food or medication?"
	}
}

// entryField returns the value of a "Key: value" line in an entry block.
func entryField(entry, key string) string {
	prefix := key + ":"
	for _, line := range strings.Split(entry, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}
