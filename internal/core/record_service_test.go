package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/config"
	"vitalog.app/health-tracker/internal/store"
)

func TestRecordService_CRUD(t *testing.T) {
	s := newTestStore(t)
	svc := NewRecordService[store.Workout](s, store.KindWorkout, NewValidator(config.PolicyEnforce), ValidateWorkout)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", &store.Workout{Type: "run", DurationMinutes: 30, CaloriesBurned: 250.5})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Date.IsZero())
	assert.Equal(t, created.CreatedAt, created.Date)

	got, err := svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.Get(ctx, "u2", created.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	updated, err := svc.Update(ctx, "u1", created.ID, &store.Workout{Type: "swim", DurationMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.Date, updated.Date)

	got, err = svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "swim", got.Type)

	_, err = svc.Update(ctx, "u1", created.ID, &store.Workout{Type: "swim"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = svc.Update(ctx, "u1", "missing", &store.Workout{Type: "swim", DurationMinutes: 5})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := svc.List(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, "u1", created.ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.Delete(ctx, "u1", created.ID)))
}

func TestRecordService_ListWindowAndLimit(t *testing.T) {
	s := newTestStore(t)
	svc := NewRecordService[store.MetricReading](s, store.KindMetric, NewValidator(config.PolicyWarn), ValidateMetric)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 4; i++ {
		steps := 1000 * (i + 1)
		_, err := svc.Create(ctx, "u1", &store.MetricReading{
			EntryMeta: store.EntryMeta{Date: now.Add(-time.Duration(i) * 3 * 24 * time.Hour)},
			Steps:     &steps,
		})
		require.NoError(t, err)
	}

	week, err := svc.List(ctx, "u1", 7, 0)
	require.NoError(t, err)
	assert.Len(t, week, 3)
	assert.Equal(t, 1000, *week[0].Steps)

	limited, err := svc.List(ctx, "u1", 0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecordService_MealTotals(t *testing.T) {
	s := newTestStore(t)
	svc := NewRecordService[store.Meal](s, store.KindMeal, NewValidator(config.PolicyWarn), ValidateMeal).WithNormalize(MealTotals)

	meal, err := svc.Create(context.Background(), "u1", &store.Meal{
		MealType: "lunch",
		Foods:    []store.FoodItem{{Name: "rice", Calories: 200}, {Name: "chicken", Calories: 250}},
	})
	require.NoError(t, err)
	assert.Equal(t, 450.0, meal.TotalCalories)

	meal, err = svc.Create(context.Background(), "u1", &store.Meal{MealType: "snack", TotalCalories: 90})
	require.NoError(t, err)
	assert.Equal(t, 90.0, meal.TotalCalories)
}
