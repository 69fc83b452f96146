package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vitalog.app/health-tracker/internal/core"
	"vitalog.app/health-tracker/internal/store"
)

const testSecret = "test-secret"

// downGenerator simulates a provider that cannot be reached.
type downGenerator struct{}

func (downGenerator) Generate(ctx context.Context, p core.Prompt) (string, error) {
	return "", fmt.Errorf("%w: connection refused", core.ErrModelUnavailable)
}
func (downGenerator) Name() string { return "down" }
func (downGenerator) Mode() string { return core.ModeGemini }
func (downGenerator) Close() error { return nil }

type brokenPinger struct{}

func (brokenPinger) Ping(ctx context.Context) error { return errors.New("database is locked") }

type testAPI struct {
	t       *testing.T
	handler http.Handler
	store   store.Store
}

func newTestAPI(t *testing.T, gen core.TextGenerator) *testAPI {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "api.db") + "?_busy_timeout=5000&_txlock=immediate"
	s, err := store.NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return &testAPI{t: t, handler: NewRouter(NewAPIHandler(newTestServices(s, gen)), testSecret, 0), store: s}
}

func newTestServices(s store.Store, gen core.TextGenerator) Services {
	obs := core.NewLogObserver()
	v := core.NewValidator("enforce")
	history := core.NewHistoryLoader(s)
	annotator := core.NewAnnotator(gen, obs, time.Second)
	return Services{
		Users:    core.NewUserService(s, testSecret, time.Hour),
		Moods:    core.NewMoodService(s, v, annotator, history, 8),
		Symptoms: core.NewSymptomService(s, v, annotator, history, 8),
		Triage:   core.NewTriageService(s, history, gen, obs, time.Second, 8),
		Chat:     core.NewChatService(s),
		Workouts: core.NewRecordService(s, store.KindWorkout, v, core.ValidateWorkout),
		Meals:    core.NewRecordService(s, store.KindMeal, v, core.ValidateMeal).WithNormalize(core.MealTotals),
		Metrics:  core.NewRecordService(s, store.KindMetric, v, core.ValidateMetric),
		Routines: core.NewRecordService(s, store.KindRoutine, v, core.ValidateRoutine),
		Store:    s,
		Observer: obs,
		Provider: gen.Name(),
	}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// register creates an account and returns its token and user id.
func (a *testAPI) register(email string) (string, string) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct horse",
		"name":     "Sam",
	})
	require.Equal(a.t, http.StatusCreated, code, body)
	data := body["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	return data["token"].(string), user["id"].(string)
}

func dataOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "expected object data, got %v", body["data"])
	return data
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, downGenerator{})

	code, body := api.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "up", body["database"])
	assert.Equal(t, "down", body["provider"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	s := newTestAPI(t, downGenerator{}).store
	services := newTestServices(s, downGenerator{})
	services.Store = brokenPinger{}
	h := NewRouter(NewAPIHandler(services), testSecret, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"down"`)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, userID := api.register("sam@example.com")

	code, body := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "SAM@example.com", "password": "another one", "name": "Sam",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])

	code, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "sam@example.com", "password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "sam@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, dataOf(t, body)["token"])

	code, body = api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := dataOf(t, body)
	assert.Equal(t, userID, me["id"])
	assert.NotContains(t, me, "passwordHash")

	code, body = api.do(http.MethodPut, "/api/users/me/settings", token, map[string]interface{}{
		"settings": map[string]interface{}{"units": "imperial", "notifications": false},
	})
	require.Equal(t, http.StatusOK, code)
	settings := dataOf(t, body)["settings"].(map[string]interface{})
	assert.Equal(t, "imperial", settings["units"])
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t, downGenerator{})

	code, body := api.do(http.MethodGet, "/api/moods/someone", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, _ = api.do(http.MethodGet, "/api/moods/someone", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestInvalidBody(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, _ := api.register("body@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/moods", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestMoodFlow_ModelDown(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, userID := api.register("mood@example.com")

	code, body := api.do(http.MethodPost, "/api/moods", token, map[string]interface{}{
		"mood": "Happy", "intensity": 7, "notes": "Nice walk in the park",
	})
	require.Equal(t, http.StatusCreated, code, body)
	created := dataOf(t, body)
	analysis := created["aiAnalysis"].(map[string]interface{})
	assert.Equal(t, store.SourceFallback, analysis["source"])
	assert.NotEmpty(t, analysis["advice"])
	assert.Equal(t, userID, created["userId"])

	code, body = api.do(http.MethodGet, "/api/moods/"+userID+"?days=7", token, nil)
	require.Equal(t, http.StatusOK, code)
	list := body["data"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, created["aiAnalysis"], list[0].(map[string]interface{})["aiAnalysis"])

	code, body = api.do(http.MethodGet, "/api/moods/"+userID+"/trends", token, nil)
	require.Equal(t, http.StatusOK, code)
	trend := dataOf(t, body)
	assert.Equal(t, "7.0", trend["averageIntensity"])
	assert.Equal(t, float64(1), trend["totalEntries"])

	id := created["id"].(string)
	code, _ = api.do(http.MethodGet, "/api/moods/"+userID+"/"+id, token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodDelete, "/api/moods/"+userID+"/"+id, token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodGet, "/api/moods/"+userID+"/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(http.MethodGet, "/api/moods/"+userID+"/trends?days=7", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])
}

func TestMoodValidation(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, _ := api.register("valid@example.com")

	code, body := api.do(http.MethodPost, "/api/moods", token, map[string]interface{}{
		"mood": "sad", "intensity": 14,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "intensity", errs[0].(map[string]interface{})["field"])

	code, _ = api.do(http.MethodGet, "/api/moods/me?days=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOtherUsersData_Forbidden(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, _ := api.register("one@example.com")
	_, otherID := api.register("two@example.com")

	code, _ := api.do(http.MethodGet, "/api/moods/"+otherID, token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPost, "/api/symptoms", token, map[string]interface{}{
		"userId":   otherID,
		"symptoms": []map[string]interface{}{{"name": "headache", "severity": 4}},
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodGet, "/api/workouts/"+otherID, token, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestSymptomEntry_UrgencyFromSeverity(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, userID := api.register("symptom@example.com")

	code, body := api.do(http.MethodPost, "/api/symptoms", token, map[string]interface{}{
		"symptoms": []map[string]interface{}{{"name": "headache", "severity": 9}, {"name": "nausea", "severity": 3}},
		"duration": "2 days",
	})
	require.Equal(t, http.StatusCreated, code, body)
	analysis := dataOf(t, body)["aiAnalysis"].(map[string]interface{})
	assert.Equal(t, string(store.UrgencyHigh), analysis["urgency"])
	assert.Equal(t, store.SourceFallback, analysis["source"])

	code, body = api.do(http.MethodGet, "/api/symptoms/"+userID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].([]interface{}), 1)
}

func TestDiagnose_ModelDown(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, userID := api.register("triage@example.com")

	code, body := api.do(http.MethodPost, "/api/symptoms/diagnose", token, map[string]string{
		"symptoms": "sore throat and a mild fever",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, core.ModeFallback, body["mode"])
	sessionID := body["sessionId"].(string)
	require.NotEmpty(t, sessionID)
	message := body["response"].(map[string]interface{})["message"].(string)
	assert.Contains(t, core.TriageFallbackQuestions(), message)

	code, body = api.do(http.MethodPost, "/api/symptoms/diagnose", token, map[string]string{
		"symptoms":  "it started yesterday",
		"sessionId": sessionID,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, sessionID, body["sessionId"])

	code, body = api.do(http.MethodGet, "/api/chat/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, code)
	session := dataOf(t, body)
	assert.Equal(t, userID, session["userId"])
	assert.Len(t, session["messages"].([]interface{}), 4)

	otherToken, _ := api.register("intruder@example.com")
	code, _ = api.do(http.MethodPost, "/api/symptoms/diagnose", otherToken, map[string]string{
		"symptoms":  "let me in",
		"sessionId": sessionID,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPost, "/api/moods", otherToken, map[string]interface{}{
		"mood": "sad", "intensity": 3, "sessionId": sessionID,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(http.MethodPost, "/api/symptoms/diagnose", token, map[string]string{"symptoms": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChatLog(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, userID := api.register("chat@example.com")

	code, body := api.do(http.MethodPost, "/api/chat/log", token, map[string]string{
		"sessionId":   "s-1",
		"userMessage": "How much water should I drink?",
		"aiResponse":  "Around two litres a day is a common guideline.",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, dataOf(t, body)["messages"].([]interface{}), 2)

	code, body = api.do(http.MethodGet, "/api/chat/users/"+userID+"/sessions", token, nil)
	require.Equal(t, http.StatusOK, code)
	sessions := body["data"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "s-1", sessions[0].(map[string]interface{})["sessionId"])

	code, _ = api.do(http.MethodPost, "/api/chat/sessions/s-1/end", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = api.do(http.MethodGet, "/api/chat/sessions/s-1", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, dataOf(t, body)["isActive"])

	code, _ = api.do(http.MethodGet, "/api/chat/sessions/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWorkoutCRUD(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, userID := api.register("fit@example.com")

	code, body := api.do(http.MethodPost, "/api/workouts", token, map[string]interface{}{
		"type": "running", "durationMinutes": 30, "caloriesBurned": 300,
	})
	require.Equal(t, http.StatusCreated, code, body)
	id := dataOf(t, body)["id"].(string)

	code, body = api.do(http.MethodPut, "/api/workouts/"+userID+"/"+id, token, map[string]interface{}{
		"type": "cycling", "durationMinutes": 45, "caloriesBurned": 400,
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "cycling", dataOf(t, body)["type"])
	assert.Equal(t, id, dataOf(t, body)["id"])

	code, body = api.do(http.MethodGet, "/api/workouts/"+userID+"?limit=10", token, nil)
	require.Equal(t, http.StatusOK, code)
	list := body["data"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "cycling", list[0].(map[string]interface{})["type"])

	code, _ = api.do(http.MethodDelete, "/api/workouts/"+userID+"/"+id, token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodGet, "/api/workouts/"+userID+"/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(http.MethodPost, "/api/workouts", token, map[string]interface{}{"durationMinutes": 10})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["errors"])
}

func TestNutrition_TotalsFilled(t *testing.T) {
	api := newTestAPI(t, downGenerator{})
	token, _ := api.register("meal@example.com")

	code, body := api.do(http.MethodPost, "/api/nutrition", token, map[string]interface{}{
		"mealType": "lunch",
		"foods": []map[string]interface{}{
			{"name": "rice", "calories": 200},
			{"name": "chicken", "calories": 250.5},
		},
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, 450.5, dataOf(t, body)["totalCalories"])
}
