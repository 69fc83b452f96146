package store

import (
	"encoding/json"
	"time"
)

// Kind names an entry collection.
type Kind string

const (
	KindMood    Kind = "moods"
	KindSymptom Kind = "symptoms"
	KindWorkout Kind = "workouts"
	KindMeal    Kind = "nutrition"
	KindMetric  Kind = "health_metrics"
	KindRoutine Kind = "routines"
)

// Entry is the persisted form of every health record. Payload holds the full
// JSON document of the typed record.
type Entry struct {
	ID         string
	OwnerID    string
	Kind       Kind
	RecordedAt time.Time
	CreatedAt  time.Time
	Payload    json.RawMessage
}

type EntryQuery struct {
	Kind    Kind
	OwnerID string
	Since   time.Time // zero means no lower bound
	Limit   int       // 0 means no limit
}

// EntryMeta is embedded by every typed record.
type EntryMeta struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *EntryMeta) Meta() *EntryMeta { return m }

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// Annotation sources, one per fallback tier.
const (
	SourceModel             = "model"
	SourceModelUnstructured = "model_unstructured"
	SourceFallback          = "fallback"
)

// AIAnnotation is attached once when an entry is created and never updated.
type AIAnnotation struct {
	Sentiment   string    `json:"sentiment"`
	Advice      string    `json:"advice"`
	Insights    []string  `json:"insights"`
	RiskLevel   RiskLevel `json:"riskLevel,omitempty"`
	Urgency     Urgency   `json:"urgency,omitempty"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type MoodEntry struct {
	EntryMeta
	Mood       string        `json:"mood"`
	Intensity  int           `json:"intensity"`
	Notes      string        `json:"notes,omitempty"`
	Triggers   []string      `json:"triggers,omitempty"`
	AIAnalysis *AIAnnotation `json:"aiAnalysis,omitempty"`
}

type Symptom struct {
	Name     string `json:"name"`
	Severity int    `json:"severity"`
}

type SymptomEntry struct {
	EntryMeta
	Symptoms   []Symptom     `json:"symptoms"`
	Duration   string        `json:"duration,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	AIAnalysis *AIAnnotation `json:"aiAnalysis,omitempty"`
}

type Workout struct {
	EntryMeta
	Type            string  `json:"type"`
	DurationMinutes int     `json:"durationMinutes"`
	CaloriesBurned  float64 `json:"caloriesBurned"`
	Intensity       string  `json:"intensity,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

type FoodItem struct {
	Name        string  `json:"name"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein,omitempty"`
	Carbs       float64 `json:"carbs,omitempty"`
	Fat         float64 `json:"fat,omitempty"`
	ServingSize string  `json:"servingSize,omitempty"`
}

type Meal struct {
	EntryMeta
	MealType      string     `json:"mealType"`
	Foods         []FoodItem `json:"foods"`
	TotalCalories float64    `json:"totalCalories"`
	Notes         string     `json:"notes,omitempty"`
}

type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

type MetricReading struct {
	EntryMeta
	HeartRate     *int           `json:"heartRate,omitempty"`
	SleepHours    *float64       `json:"sleepHours,omitempty"`
	Steps         *int           `json:"steps,omitempty"`
	WeightKg      *float64       `json:"weightKg,omitempty"`
	BloodPressure *BloodPressure `json:"bloodPressure,omitempty"`
	Source        string         `json:"source,omitempty"` // manual, fitbit, googlefit
}

type RoutineStep struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

type Routine struct {
	EntryMeta
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Steps       []RoutineStep `json:"steps,omitempty"`
	Schedule    string        `json:"schedule,omitempty"`
	IsActive    bool          `json:"isActive"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type ChatSession struct {
	SessionID string        `json:"sessionId" bson:"_id"`
	UserID    string        `json:"userId" bson:"ownerId"`
	Messages  []ChatMessage `json:"messages" bson:"messages"`
	IsActive  bool          `json:"isActive" bson:"isActive"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

type Profile struct {
	Age      int     `json:"age,omitempty" bson:"age,omitempty"`
	Gender   string  `json:"gender,omitempty" bson:"gender,omitempty"`
	HeightCm float64 `json:"heightCm,omitempty" bson:"heightCm,omitempty"`
	WeightKg float64 `json:"weightKg,omitempty" bson:"weightKg,omitempty"`
}

type OAuthToken struct {
	AccessToken  string    `json:"accessToken" bson:"accessToken"`
	RefreshToken string    `json:"refreshToken" bson:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt" bson:"expiresAt"`
}

// Connections holds provider tokens. It is never serialized in API responses.
type Connections struct {
	Fitbit    *OAuthToken `json:"fitbit,omitempty" bson:"fitbit,omitempty"`
	GoogleFit *OAuthToken `json:"googleFit,omitempty" bson:"googleFit,omitempty"`
}

type Settings struct {
	Units         string `json:"units,omitempty" bson:"units,omitempty"` // metric, imperial
	Notifications bool   `json:"notifications" bson:"notifications"`
}

type Goals struct {
	DailySteps     int     `json:"dailySteps,omitempty" bson:"dailySteps,omitempty"`
	SleepHours     float64 `json:"sleepHours,omitempty" bson:"sleepHours,omitempty"`
	DailyCalories  int     `json:"dailyCalories,omitempty" bson:"dailyCalories,omitempty"`
	WeeklyWorkouts int     `json:"weeklyWorkouts,omitempty" bson:"weeklyWorkouts,omitempty"`
}

type User struct {
	ID           string      `json:"id" bson:"_id"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"-" bson:"passwordHash"` // Do not expose this in JSON responses
	Name         string      `json:"name" bson:"name"`
	Profile      Profile     `json:"profile" bson:"profile"`
	Connections  Connections `json:"-" bson:"connections"`
	Settings     Settings    `json:"settings" bson:"settings"`
	Goals        Goals       `json:"goals" bson:"goals"`
	CreatedAt    time.Time   `json:"createdAt" bson:"createdAt"`
}
