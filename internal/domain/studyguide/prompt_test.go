package studyguide

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/gistflow/pkg/errors"
)

func TestBuildPromptRejectsEmptyNotes(t *testing.T) {
	for _, notes := range []string{"", "   ", "\n\t\n"} {
		_, err := BuildPrompt(notes, StyleConcise)
		require.Error(t, err)
		require.True(t, apperrors.IsCode(err, CodeInvalidInput))
	}
}

func TestBuildPromptUsesStyle(t *testing.T) {
	prompt, err := BuildPrompt("# Photosynthesis\nPlants convert light.", StyleDetailed)
	require.NoError(t, err)

	profile, ok := LookupStyle(StyleDetailed)
	require.True(t, ok)
	require.Equal(t, StyleDetailed, prompt.Style.ID)
	require.Equal(t, profile.SystemMessage, prompt.SystemMessage)
	require.Equal(t, "Photosynthesis", prompt.Topic)
	require.Contains(t, prompt.UserPrompt, "detailed study guide on Photosynthesis")
	require.Contains(t, prompt.UserPrompt, "Plants convert light.")
	require.NotContains(t, prompt.UserPrompt, placeholderNotes)
	require.NotContains(t, prompt.UserPrompt, placeholderTopicName)
}

func TestBuildPromptKeyConceptsTopic(t *testing.T) {
	prompt, err := BuildPrompt("Cell Biology: membranes and organelles", StyleKeyConcepts)
	require.NoError(t, err)
	require.Contains(t, prompt.UserPrompt, "key concepts about Cell Biology")
	require.NotContains(t, prompt.UserPrompt, placeholderTopic)
}

func TestBuildPromptUnknownStyleFallsBackToConcise(t *testing.T) {
	notes := "Thermodynamics: entropy always increases in an isolated system."
	concise, err := BuildPrompt(notes, StyleConcise)
	require.NoError(t, err)

	for _, style := range []StyleID{"poetry", "", "CONCISE "} {
		prompt, err := BuildPrompt(notes, style)
		require.NoError(t, err)
		require.Equal(t, StyleConcise, prompt.Style.ID)
		require.Equal(t, concise.SystemMessage, prompt.SystemMessage)
		require.Equal(t, concise.UserPrompt, prompt.UserPrompt)
		require.Equal(t, concise, prompt)
	}
}

func TestBuildPromptKeepsNotesVerbatim(t *testing.T) {
	notes := "Braces {Topic Name} and {studyNotes} stay put.\n\n## Not a section\n```\ncode\n```"

	prompt, err := BuildPrompt(notes, StyleExamFocus)
	require.NoError(t, err)
	require.Contains(t, prompt.UserPrompt, notes)
	require.Equal(t, 1, strings.Count(prompt.UserPrompt, notes))
}

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		want  string
	}{
		{name: "markdown heading", notes: "# Photosynthesis\nstuff", want: "Photosynthesis"},
		{name: "colon terminated", notes: "Cell Biology: intro", want: "Cell Biology"},
		{name: "period terminated after blank lines", notes: "\n\n  ## The Water Cycle.\nmore", want: "The Water Cycle"},
		{name: "collapses inner spaces", notes: "World   War  Two", want: "World War Two"},
		{name: "starts with digits", notes: "123 numbers", want: DefaultTopic},
		{name: "punctuation inside", notes: "Mitosis (cell division)", want: DefaultTopic},
		{name: "blank notes", notes: "   ", want: DefaultTopic},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ExtractTopic(tt.notes))
		})
	}
}
