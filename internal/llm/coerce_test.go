package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/constants"
)

func TestParseTranscription(t *testing.T) {
	text := "```json\n" + `{
		"isRoster": true,
		"contentType": "grid",
		"headers": ["Date", "Ana", "Ben"],
		"rows": [["Mon", "9-5"], ["Tue", "", "10-6", "extra"], ["Wed", 9, null]],
		"rawText": "Date Ana Ben",
		"uncertainCells": [{"location": "Tue/Ben", "readValue": "RL", "alternativeValue": "BL"}, {"location": "x"}],
		"metadata": {"hasMultiplePeople": "true", "potentialNames": ["Ana", "", "Ben"], "dateRange": "Jan 2026"}
	}` + "\n```"

	tr, err := ParseTranscription(text)
	require.NoError(t, err)
	assert.False(t, tr.NotRoster)

	c := tr.Content
	assert.Equal(t, constants.ContentTable, c.ContentType)
	assert.Equal(t, []string{"Date", "Ana", "Ben", ""}, c.Headers)
	require.Len(t, c.Rows, 3)
	for _, r := range c.Rows {
		assert.Len(t, r, len(c.Headers))
	}
	assert.Equal(t, []string{"Mon", "9-5", "", ""}, c.Rows[0])
	assert.Equal(t, []string{"Wed", "9", "", ""}, c.Rows[2])
	require.Len(t, c.UncertainCells, 1)
	assert.Equal(t, "BL", c.UncertainCells[0].AlternativeValue)
	require.NotNil(t, c.Metadata.HasMultiplePeople)
	assert.True(t, *c.Metadata.HasMultiplePeople)
	assert.Equal(t, []string{"Ana", "Ben"}, c.Metadata.PotentialNames)
}

func TestParseTranscription_NotRoster(t *testing.T) {
	tr, err := ParseTranscription(`{"isRoster": false, "rawText": ""}`)
	require.NoError(t, err)
	assert.True(t, tr.NotRoster)
	assert.Equal(t, constants.ContentMixed, tr.Content.ContentType)
}

func TestParseTranscription_Malformed(t *testing.T) {
	for _, in := range []string{"I cannot read this image", `{"contentType": "table"}`, `{"rawText": 12}`} {
		_, err := ParseTranscription(in)
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestParseAnalysis(t *testing.T) {
	a, err := ParseAnalysis(`{
		"questions": [
			{"id": "person_select", "question": "Whose shifts?", "options": [{"label": "Ana"}, {"label": "Ben", "value": "ben"}, "Cleo"]},
			{"question": "Anything else?", "type": "text", "required": false},
			{"id": "broken"}
		],
		"preAnalysis": {"dateFormat": "DD/MM"}
	}`)
	require.NoError(t, err)
	require.Len(t, a.Questions, 2)
	assert.True(t, a.NeedsClarification)

	q := a.Questions[0]
	assert.Equal(t, constants.QuestionSingleSelect, q.Type)
	assert.True(t, q.Required)
	require.Len(t, q.Options, 3)
	assert.Equal(t, "Ana", q.Options[0].Value)
	assert.Equal(t, "ben", q.Options[1].Value)
	assert.Equal(t, "Cleo", q.Options[2].Label)

	assert.Equal(t, "question_2", a.Questions[1].ID)
	assert.Equal(t, constants.QuestionText, a.Questions[1].Type)
	assert.False(t, a.Questions[1].Required)

	require.NotNil(t, a.PreAnalysis)
	assert.Equal(t, "DD/MM", a.PreAnalysis.DateFormat)
}

func TestParseAnalysis_ExplicitNoClarification(t *testing.T) {
	a, err := ParseAnalysis(`{"needsClarification": false, "questions": []}`)
	require.NoError(t, err)
	assert.False(t, a.NeedsClarification)
	assert.Empty(t, a.Questions)
	assert.Nil(t, a.PreAnalysis)
}

func TestParseExtraction(t *testing.T) {
	ex, err := ParseExtraction(`{"shifts": [
		{"date": "2026-01-15", "startTime": "09:00", "endTime": 1700, "jobName": "Bar"},
		{"rawDateText": "Tue"},
		"junk"
	], "identifiedPerson": {"nameFound": "Ana", "confidence": 1.7}}`)
	require.NoError(t, err)
	require.Len(t, ex.Shifts, 2)
	assert.Equal(t, "1700", ex.Shifts[0].EndTime)
	assert.Equal(t, "Tue", ex.Shifts[1].RawDateText)
	require.NotNil(t, ex.Person)
	assert.Equal(t, 1.0, ex.Person.Confidence)

	ex, err = ParseExtraction(`[{"date": "Mon"}]`)
	require.NoError(t, err)
	assert.Len(t, ex.Shifts, 1)
	assert.Nil(t, ex.Person)

	ex, err = ParseExtraction("Found shifts [2 total]:\n{\"shifts\": [{\"date\": \"Mon\"}, {\"date\": \"Tue\"}]}")
	require.NoError(t, err)
	assert.Len(t, ex.Shifts, 2)

	_, err = ParseExtraction(`{"shifts": "none"}`)
	assert.ErrorIs(t, err, ErrMalformed)
}
