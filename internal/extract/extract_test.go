package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/track-notifier/internal/model"
)

func TestDeadline(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"colon separator", "Stage 0\nDeadline: Friday, 11:59pm WAT\nGood luck", "Friday, 11:59pm WAT"},
		{"dash separator", "deadline - 3rd October", "3rd October"},
		{"due label", "Due: tomorrow noon", "tomorrow noon"},
		{"chained due date", "Due date: 12 Nov", "12 Nov"},
		{"chained submission deadline", "Submission deadline: Sunday 6pm", "Sunday 6pm"},
		{"first label wins", "Deadline: Monday\nSubmission: via form", "Monday"},
		{"no separator", "deadline Thursday", "Thursday"},
		{"no label", "Build a landing page", NotSpecified},
		{"label inside word ignored", "Clear the overdue backlog", NotSpecified},
		{"empty remainder", "Deadline:", NotSpecified},
		{"empty text", "", NotSpecified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Deadline(tt.text))
		})
	}
}

func TestEndpoints(t *testing.T) {
	t.Run("collects in text order", func(t *testing.T) {
		text := "Implement GET /users and POST /users/{id}/posts, then DELETE /users/1."
		assert.Equal(t,
			[]string{"GET /users", "POST /users/{id}/posts", "DELETE /users/1"},
			Endpoints(text),
		)
	})

	t.Run("inline code and duplicates", func(t *testing.T) {
		text := "Use `GET /me` for the profile. Again: `GET /me`"
		assert.Equal(t, []string{"GET /me", "GET /me"}, Endpoints(text))
	})

	t.Run("repeats kept through the extractor", func(t *testing.T) {
		res := New(EndpointsBackendOnly).Extract("GET /users then later GET /users again", model.TrackBackend)
		assert.Equal(t, []string{"GET /users", "GET /users"}, res.Endpoints)
	})

	t.Run("sentence punctuation trimmed from path", func(t *testing.T) {
		assert.Equal(t, []string{"POST /items"}, Endpoints("Add POST /items."))
	})

	t.Run("lowercase verbs are ignored", func(t *testing.T) {
		assert.Empty(t, Endpoints("get /users"))
	})

	t.Run("verb inside word ignored", func(t *testing.T) {
		assert.Empty(t, Endpoints("TARGET /audience"))
	})

	t.Run("none found is empty, not nil", func(t *testing.T) {
		got := Endpoints("no endpoints here")
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestExtractorPolicy(t *testing.T) {
	text := "Deadline: Friday\nBuild PATCH /profile"

	t.Run("backend only scans backend", func(t *testing.T) {
		e := New(EndpointsBackendOnly)

		res := e.Extract(text, model.TrackBackend)
		assert.True(t, res.EndpointsScanned)
		assert.Equal(t, []string{"PATCH /profile"}, res.Endpoints)
		assert.Equal(t, "Friday", res.Deadline)

		res = e.Extract(text, "frontend")
		assert.False(t, res.EndpointsScanned)
		assert.Nil(t, res.Endpoints)
		assert.Equal(t, "Friday", res.Deadline)
	})

	t.Run("always scans every track", func(t *testing.T) {
		res := New(EndpointsAlways).Extract(text, "frontend")
		assert.True(t, res.EndpointsScanned)
		assert.Equal(t, []string{"PATCH /profile"}, res.Endpoints)
	})

	t.Run("backend with no endpoints", func(t *testing.T) {
		res := New("").Extract("Deadline: soon", model.TrackBackend)
		assert.True(t, res.EndpointsScanned)
		assert.Empty(t, res.Endpoints)
	})
}

func TestParseEndpointPolicy(t *testing.T) {
	p, err := ParseEndpointPolicy("ALWAYS")
	require.NoError(t, err)
	assert.Equal(t, EndpointsAlways, p)

	p, err = ParseEndpointPolicy("")
	require.NoError(t, err)
	assert.Equal(t, EndpointsBackendOnly, p)

	_, err = ParseEndpointPolicy("never")
	assert.Error(t, err)
}
