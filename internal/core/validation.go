package core

import (
	"fmt"
	"log"
	"strings"

	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/config"
	"vitalog.app/health-tracker/internal/store"
)

// Violations separates missing identity fields, which are always rejected,
// from range violations, which follow the validation policy.
type Violations struct {
	Required []apperr.FieldError
	Ranges   []apperr.FieldError
}

func (v *Violations) require(ok bool, field, message string) {
	if !ok {
		v.Required = append(v.Required, apperr.FieldError{Field: field, Message: message})
	}
}

func (v *Violations) check(ok bool, field, message string) {
	if !ok {
		v.Ranges = append(v.Ranges, apperr.FieldError{Field: field, Message: message})
	}
}

// Validator applies the configured policy: off, warn or enforce.
type Validator struct {
	policy string
}

func NewValidator(policy string) *Validator {
	if policy == "" {
		policy = config.PolicyWarn
	}
	return &Validator{policy: policy}
}

func (v *Validator) Apply(kind store.Kind, vs Violations) error {
	if len(vs.Required) > 0 {
		return apperr.Validation(fmt.Sprintf("invalid %s entry", kind), append(vs.Required, vs.Ranges...)...)
	}
	if len(vs.Ranges) == 0 {
		return nil
	}
	switch v.policy {
	case config.PolicyOff:
		return nil
	case config.PolicyEnforce:
		return apperr.Validation(fmt.Sprintf("invalid %s entry", kind), vs.Ranges...)
	default:
		fields := make([]string, 0, len(vs.Ranges))
		for _, f := range vs.Ranges {
			fields = append(fields, f.Field+": "+f.Message)
		}
		log.Printf("Warning: accepting %s entry with out-of-range values: %s", kind, strings.Join(fields, "; "))
		return nil
	}
}

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

func ValidateMood(e *store.MoodEntry) Violations {
	var vs Violations
	vs.require(strings.TrimSpace(e.Mood) != "", "mood", "is required")
	vs.check(between(e.Intensity, 1, 10), "intensity", "must be between 1 and 10")
	return vs
}

func ValidateSymptoms(e *store.SymptomEntry) Violations {
	var vs Violations
	vs.require(len(e.Symptoms) > 0, "symptoms", "at least one symptom is required")
	for i, s := range e.Symptoms {
		vs.require(strings.TrimSpace(s.Name) != "", fmt.Sprintf("symptoms[%d].name", i), "is required")
		vs.check(between(s.Severity, 1, 10), fmt.Sprintf("symptoms[%d].severity", i), "must be between 1 and 10")
	}
	return vs
}

func ValidateWorkout(w *store.Workout) Violations {
	var vs Violations
	vs.require(strings.TrimSpace(w.Type) != "", "type", "is required")
	vs.check(w.DurationMinutes > 0, "durationMinutes", "must be greater than 0")
	vs.check(w.CaloriesBurned >= 0, "caloriesBurned", "must not be negative")
	return vs
}

func ValidateMeal(m *store.Meal) Violations {
	var vs Violations
	vs.require(strings.TrimSpace(m.MealType) != "", "mealType", "is required")
	for i, f := range m.Foods {
		vs.require(strings.TrimSpace(f.Name) != "", fmt.Sprintf("foods[%d].name", i), "is required")
		vs.check(f.Calories >= 0, fmt.Sprintf("foods[%d].calories", i), "must not be negative")
	}
	return vs
}

func ValidateMetric(m *store.MetricReading) Violations {
	var vs Violations
	vs.require(m.HeartRate != nil || m.SleepHours != nil || m.Steps != nil || m.WeightKg != nil || m.BloodPressure != nil,
		"metrics", "at least one reading is required")
	if m.HeartRate != nil {
		vs.check(between(*m.HeartRate, 30, 220), "heartRate", "must be between 30 and 220")
	}
	if m.SleepHours != nil {
		vs.check(*m.SleepHours >= 0 && *m.SleepHours <= 24, "sleepHours", "must be between 0 and 24")
	}
	if m.Steps != nil {
		vs.check(between(*m.Steps, 0, 100000), "steps", "must be between 0 and 100000")
	}
	if m.WeightKg != nil {
		vs.check(*m.WeightKg > 0 && *m.WeightKg <= 500, "weightKg", "must be between 0 and 500")
	}
	if bp := m.BloodPressure; bp != nil {
		vs.check(between(bp.Systolic, 50, 250), "bloodPressure.systolic", "must be between 50 and 250")
		vs.check(between(bp.Diastolic, 30, 150), "bloodPressure.diastolic", "must be between 30 and 150")
	}
	return vs
}

func ValidateRoutine(r *store.Routine) Violations {
	var vs Violations
	vs.require(strings.TrimSpace(r.Name) != "", "name", "is required")
	for i, s := range r.Steps {
		vs.require(strings.TrimSpace(s.Title) != "", fmt.Sprintf("steps[%d].title", i), "is required")
		vs.check(s.DurationMinutes >= 0, fmt.Sprintf("steps[%d].durationMinutes", i), "must not be negative")
	}
	return vs
}
