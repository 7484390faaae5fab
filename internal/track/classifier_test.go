package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/track-notifier/internal/model"
)

func TestClassifyExtendedGeneral(t *testing.T) {
	c, err := NewClassifier(Extended(), PolicyGeneral)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want model.Track
	}{
		{"backend keyword", "@channel Stage 0 backend task: build GET /users", "backend"},
		{"frontend keyword", "Build a React landing page for the cohort", "frontend"},
		{"uiux keyword", "Draw the onboarding wireframe in Figma", "uiux"},
		{"mobile before frontend", "Ship the React Native app by Friday", "mobile"},
		{"priority order resolves overlap", "React dashboard that consumes the API", "backend"},
		{"case insensitive", "DEVOPS: configure NGINX", "devops"},
		{"no match falls back", "Standup moved to 5pm today", model.TrackGeneral},
		{"empty text falls back", "", model.TrackGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(tt.text)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyLegacyDrop(t *testing.T) {
	c, err := NewClassifier(Legacy(), PolicyDrop)
	require.NoError(t, err)

	t.Run("matches first rule", func(t *testing.T) {
		got, ok := c.Classify("Backend wizards, your stage 1 task is live")
		assert.True(t, ok)
		assert.Equal(t, model.Track("backend"), got)
	})

	t.Run("marketing", func(t *testing.T) {
		got, ok := c.Classify("Marketing campaign brief")
		assert.True(t, ok)
		assert.Equal(t, model.Track("marketing"), got)
	})

	t.Run("no match yields none", func(t *testing.T) {
		got, ok := c.Classify("Hello everyone, welcome!")
		assert.False(t, ok)
		assert.Empty(t, got)
	})

	t.Run("empty text yields none", func(t *testing.T) {
		_, ok := c.Classify("")
		assert.False(t, ok)
	})
}

func TestClassifyIsDeterministic(t *testing.T) {
	c, err := NewClassifier(Extended(), PolicyGeneral)
	require.NoError(t, err)

	text := "Frontend and backend teams: integrate the API with the UI"
	first, _ := c.Classify(text)
	for i := 0; i < 50; i++ {
		got, _ := c.Classify(text)
		require.Equal(t, first, got)
	}
}

func TestNewClassifier(t *testing.T) {
	t.Run("general policy needs general track", func(t *testing.T) {
		_, err := NewClassifier(Legacy(), PolicyGeneral)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "general")
	})

	t.Run("nil catalog", func(t *testing.T) {
		_, err := NewClassifier(nil, PolicyDrop)
		assert.Error(t, err)
	})

	t.Run("drop policy on extended catalog", func(t *testing.T) {
		c, err := NewClassifier(Extended(), PolicyDrop)
		require.NoError(t, err)
		_, ok := c.Classify("nothing relevant here")
		assert.False(t, ok)
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" General ")
	require.NoError(t, err)
	assert.Equal(t, PolicyGeneral, p)

	_, err = ParsePolicy("fallback")
	assert.Error(t, err)
}
