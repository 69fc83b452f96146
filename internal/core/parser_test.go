package core

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vitalog.app/health-tracker/internal/store"
)

func TestDecodeModelJSON(t *testing.T) {
	var out moodAnalysis
	require.NoError(t, decodeModelJSON("here you go:\n\n{\"sentiment\": \"ok\"}\nhope this helps", &out))
	assert.Equal(t, "ok", out.Sentiment)

	assert.ErrorIs(t, decodeModelJSON("   ", &out), errNoJSONObject)
	assert.ErrorIs(t, decodeModelJSON("no braces here", &out), errNoJSONObject)
	assert.Error(t, decodeModelJSON("prefix {\"sentiment\": } suffix", &out))
}

func TestParseMoodResponse_ExtractsEmbeddedJSON(t *testing.T) {
	raw := "Sure! Here is my analysis:\n```json\n" +
		`{"sentiment":"Upbeat","advice":"Keep walking","insights":["Exercise helps"," "],"riskLevel":"LOW"}` +
		"\n```\nTake care."
	a := ParseMoodResponse(raw, 5, fixedNow)

	assert.Equal(t, store.SourceModel, a.Source)
	assert.Equal(t, "Upbeat", a.Sentiment)
	assert.Equal(t, "Keep walking", a.Advice)
	assert.Equal(t, []string{"Exercise helps"}, a.Insights)
	assert.Equal(t, store.RiskLow, a.RiskLevel)
	assert.Equal(t, fixedNow, a.GeneratedAt)
}

func TestParseMoodResponse_FillsMissingFields(t *testing.T) {
	a := ParseMoodResponse(`{"sentiment":"Tense","riskLevel":"extreme"}`, 9, fixedNow)

	assert.Equal(t, store.SourceModel, a.Source)
	assert.Equal(t, "Tense", a.Sentiment)
	assert.NotEmpty(t, a.Advice)
	assert.NotEmpty(t, a.Insights)
	assert.Equal(t, store.RiskMedium, a.RiskLevel)
}

func TestParseMoodResponse_NoJSONGivesCompleteAnnotation(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		intensity int
		wantRisk  store.RiskLevel
	}{
		{"prose", "You seem to be doing fine today.", 3, store.RiskLow},
		{"high intensity", "That sounds like a rough day.", 8, store.RiskMedium},
		{"empty", "", 10, store.RiskMedium},
		{"broken json", `{"sentiment": "cut off`, 2, store.RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ParseMoodResponse(tt.raw, tt.intensity, fixedNow)
			assert.Equal(t, store.SourceModelUnstructured, a.Source)
			assert.NotEmpty(t, a.Sentiment)
			assert.NotEmpty(t, a.Advice)
			assert.Equal(t, genericInsights, a.Insights)
			assert.Equal(t, tt.wantRisk, a.RiskLevel)
			assert.Equal(t, fixedNow, a.GeneratedAt)
		})
	}
}

func TestParseMoodResponse_TruncatesUnstructuredText(t *testing.T) {
	raw := strings.Repeat("é", 800)
	a := ParseMoodResponse(raw, 4, fixedNow)
	assert.Equal(t, 500, utf8.RuneCountInString(a.Sentiment))
	assert.Equal(t, a.Sentiment, a.Advice)
}

func TestParseSymptomResponse(t *testing.T) {
	symptoms := []store.Symptom{{Name: "headache", Severity: 6}}

	a := ParseSymptomResponse(`{"sentiment":"Headache","advice":"Rest","insights":["Hydrate"],"urgency":"medium"}`, symptoms, "", fixedNow)
	assert.Equal(t, store.SourceModel, a.Source)
	assert.Equal(t, store.UrgencyMedium, a.Urgency)
	assert.Empty(t, a.RiskLevel)

	a = ParseSymptomResponse(`{"sentiment":"Headache","urgency":"whenever"}`, symptoms, "", fixedNow)
	assert.Equal(t, store.UrgencyMedium, a.Urgency)
	assert.NotEmpty(t, a.Advice)

	a = ParseSymptomResponse("Please rest.", []store.Symptom{{Name: "chest pain", Severity: 4}}, "", fixedNow)
	assert.Equal(t, store.SourceModelUnstructured, a.Source)
	assert.Equal(t, store.UrgencyEmergency, a.Urgency)
	assert.Equal(t, "Please rest.", a.Sentiment)
}
