package core

import (
	"fmt"
	"sort"

	"vitalog.app/health-tracker/internal/store"
	"vitalog.app/health-tracker/internal/utils"
)

const defaultTrendDays = 7

type MoodTrend struct {
	AverageIntensity string         `json:"averageIntensity"`
	DominantMood     string         `json:"dominantMood"`
	TotalEntries     int            `json:"totalEntries"`
	MoodDistribution map[string]int `json:"moodDistribution"`
}

// ComputeMoodTrend summarizes entries, or returns nil when there are none.
// The dominant mood is the most frequent label; ties go to the label that
// sorts first.
func ComputeMoodTrend(entries []*store.MoodEntry) *MoodTrend {
	if len(entries) == 0 {
		return nil
	}

	distribution := make(map[string]int)
	sum := 0
	for _, e := range entries {
		distribution[e.Mood]++
		sum += e.Intensity
	}

	labels := make([]string, 0, len(distribution))
	for label := range distribution {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	dominant := labels[0]
	for _, label := range labels[1:] {
		if distribution[label] > distribution[dominant] {
			dominant = label
		}
	}

	mean := utils.Round1(float64(sum) / float64(len(entries)))
	return &MoodTrend{
		AverageIntensity: fmt.Sprintf("%.1f", mean),
		DominantMood:     dominant,
		TotalEntries:     len(entries),
		MoodDistribution: distribution,
	}
}
