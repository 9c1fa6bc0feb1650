package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/cortex/pkg/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"intent": "THOUGHT"}`,
			want:  `{"intent": "THOUGHT"}`,
		},
		{
			name:  "markdown fenced",
			input: "```json\n{\"intent\": \"SIMPLE\"}\n```",
			want:  `{"intent": "SIMPLE"}`,
		},
		{
			name:  "surrounding prose",
			input: `Sure! Here is the result: {"urgency": 3} hope that helps`,
			want:  `{"urgency": 3}`,
		},
		{
			name:  "braces inside string literal",
			input: `{"summary": "uses {curly} braces", "urgency": 2}`,
			want:  `{"summary": "uses {curly} braces", "urgency": 2}`,
		},
		{
			name:  "nested objects",
			input: `text {"a": {"b": {"c": 1}}} trailing`,
			want:  `{"a": {"b": {"c": 1}}}`,
		},
		{
			name:  "escaped quote in string",
			input: `{"summary": "she said \"hi\" today"}`,
			want:  `{"summary": "she said \"hi\" today"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}

func TestParseClassification(t *testing.T) {
	raw := "```json\n" + `{
		"intent": "SCHEDULE",
		"urgency": 7,
		"privacy_level": "private",
		"entities": {"people": ["Sarah"], "times": ["3pm"]}
	}` + "\n```"

	result, err := ParseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, types.IntentSchedule, result.Intent)
	assert.Equal(t, 7, result.Urgency)
	assert.Equal(t, types.PrivacyPrivate, result.PrivacyLevel)
	assert.Equal(t, []string{"Sarah"}, result.Entities["people"])
}

func TestParseClassification_NormalizesBadValues(t *testing.T) {
	result, err := ParseClassification(`{"intent": "SCHEDULING", "urgency": 42, "privacy_level": "secret"}`)
	require.NoError(t, err)
	assert.Equal(t, types.IntentSchedule, result.Intent)
	assert.Equal(t, 10, result.Urgency)
	assert.Equal(t, types.PrivacyPublic, result.PrivacyLevel)
	assert.NotNil(t, result.Entities)

	result, err = ParseClassification(`{"intent": "PHILOSOPHY", "urgency": 0}`)
	require.NoError(t, err)
	assert.Equal(t, types.IntentQuery, result.Intent)
	assert.Equal(t, 1, result.Urgency)
}

func TestParseClassification_MalformedJSON(t *testing.T) {
	_, err := ParseClassification("I cannot classify that, sorry.")
	require.Error(t, err)

	fallback := DefaultClassification()
	assert.Equal(t, types.IntentQuery, fallback.Intent)
	assert.Equal(t, 5, fallback.Urgency)
	assert.Equal(t, types.PrivacyPublic, fallback.PrivacyLevel)
}

func TestParseExtraction(t *testing.T) {
	raw := `Here you go:
{
	"summary": "Coffee with Sarah tomorrow at 3pm",
	"entities": [
		{"name": "Sarah", "type": "Person", "description": "coffee companion"},
		{"name": "Mystery", "type": "Wormhole", "description": "bad type"},
		{"name": "", "type": "Person"}
	],
	"categories": ["Area"],
	"action_items": [{"task": "book a table", "urgency": "low"}],
	"emotional_tone": "POSITIVE"
}`

	extraction, err := ParseExtraction(raw)
	require.NoError(t, err)
	assert.Equal(t, "Coffee with Sarah tomorrow at 3pm", extraction.Summary)
	require.Len(t, extraction.Entities, 1) // invalid type and empty name dropped
	assert.Equal(t, "Sarah", extraction.Entities[0].Name)
	assert.Equal(t, []string{"Area"}, extraction.Categories)
	require.Len(t, extraction.ActionItems, 1)
	assert.Equal(t, "positive", extraction.EmotionalTone)
	assert.False(t, extraction.Ambiguous)
}

func TestParseExtraction_AmbiguousFlag(t *testing.T) {
	extraction, err := ParseExtraction(`{"summary": "meet them later", "ambiguous": true, "clarification_question": "Who is them?"}`)
	require.NoError(t, err)
	assert.True(t, extraction.Ambiguous)
	assert.Equal(t, "Who is them?", extraction.ClarificationQuestion)
	assert.Equal(t, "neutral", extraction.EmotionalTone)
	assert.Empty(t, extraction.Entities)
}

func TestDefaultExtraction(t *testing.T) {
	long := strings.Repeat("a", 150)
	extraction := DefaultExtraction(long)
	assert.Len(t, extraction.Summary, 100)
	assert.Empty(t, extraction.Entities)
	assert.Empty(t, extraction.Categories)
	assert.Empty(t, extraction.ActionItems)
	assert.Equal(t, "neutral", extraction.EmotionalTone)

	short := DefaultExtraction("quick note")
	assert.Equal(t, "quick note", short.Summary)
}
