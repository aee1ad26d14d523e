package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithAnalysisAppendsAndOverwritesRisk(t *testing.T) {
	m := Memory{
		EmotionalStates: []string{"calm"},
		Themes:          []string{"sleep"},
		RiskLevel:       2,
	}

	updated := m.WithAnalysis("anxious", []string{"work", "family"}, 5)
	assert.Equal(t, []string{"calm", "anxious"}, updated.EmotionalStates)
	assert.Equal(t, []string{"sleep", "work", "family"}, updated.Themes)
	assert.Equal(t, 5, updated.RiskLevel)

	// The original is untouched.
	assert.Equal(t, []string{"calm"}, m.EmotionalStates)
	assert.Equal(t, []string{"sleep"}, m.Themes)
	assert.Equal(t, 2, m.RiskLevel)

	// Fresh backing arrays: mutating the new slices never leaks back.
	updated.Themes[0] = "mutated"
	assert.Equal(t, "sleep", m.Themes[0])
}

func TestWithAnalysisSkipsEmptyState(t *testing.T) {
	m := Memory{}
	updated := m.WithAnalysis("", []string{"work"}, 1)
	assert.Empty(t, updated.EmotionalStates)
	assert.Equal(t, []string{"work"}, updated.Themes)
}
