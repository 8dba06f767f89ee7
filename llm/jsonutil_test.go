package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "markdown fenced",
			content: "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want:    `{"a": 1}`,
		},
		{
			name:    "fence without language",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "prose around object",
			content: `Sure! {"a": 1} hope that helps`,
			want:    `{"a": 1} `,
		},
		{
			name:    "no json",
			content: "I cannot help with that.",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.content)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.JSONEq(t, `{"a": 1}`, got)
		})
	}
}

func TestExtractJSONCleansArtifacts(t *testing.T) {
	content := `{
  "a": 1, // model commentary
  "b": "http://example.com", // not a comment inside the string
  "c": [1, 2,],
}`
	got := ExtractJSON(content)
	assert.JSONEq(t, `{"a": 1, "b": "http://example.com", "c": [1, 2]}`, got)
}

func TestDecodeJSON(t *testing.T) {
	type out struct {
		Score float64 `json:"score"`
	}

	var v out
	require.NoError(t, DecodeJSON("```json\n{\"score\": 0.7}\n```", &v))
	assert.Equal(t, 0.7, v.Score)

	err := DecodeJSON("no json here", &v)
	require.Error(t, err)
	assert.True(t, IsInvalidResponse(err))

	err = DecodeJSON(`{"score": "not a number"}`, &v)
	require.Error(t, err)
	assert.True(t, IsInvalidResponse(err))
}
