package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beholdci/behold/internal/snapshot"
)

func sampleResults() []snapshot.Result {
	vp := snapshot.Viewport{Width: 1280, Height: 720, Name: "desktop"}
	return []snapshot.Result{
		{
			Identity:       snapshot.NewIdentity("Btn", "default", vp),
			Viewport:       vp,
			Status:         snapshot.StatusFailed,
			DiffPercentage: 3.14,
			DiffPixels:     29,
			TotalPixels:    921600,
			Paths:          snapshot.Paths{Diff: "diff/Btn--default--desktop.png"},
		},
		{
			Identity:     snapshot.NewIdentity("Btn", "hover", vp),
			Viewport:     vp,
			Status:       snapshot.StatusError,
			ErrorMessage: "navigation timeout",
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	results := sampleResults()
	summary := snapshot.Summarize(results, 42)

	require.NoError(t, New(results, summary).WriteJSON(path))

	loaded, err := LoadJSON(path)
	require.NoError(t, err)

	assert.Equal(t, summary, loaded.Summary)
	require.Len(t, loaded.Results, 2)
	assert.Equal(t, snapshot.StatusFailed, loaded.Results[0].Status)
	assert.Equal(t, 3.14, loaded.Results[0].DiffPercentage)
	assert.Equal(t, "navigation timeout", loaded.Results[1].ErrorMessage)
}

func TestLoadJSONMissing(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "behold run")
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	results := sampleResults()

	require.NoError(t, New(results, snapshot.Summarize(results, 42)).WriteHTML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	assert.True(t, strings.Contains(html, "Btn/default"))
	assert.True(t, strings.Contains(html, "3.14%"))
	assert.True(t, strings.Contains(html, "navigation timeout"))
	assert.True(t, strings.Contains(html, "diff/Btn--default--desktop.png"))
}
