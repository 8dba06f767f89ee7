package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizerDeterministicPerSeed(t *testing.T) {
	patterns := []ReplyPattern{{
		ID:          PatternBalanced,
		BodyText:    "I am writing to confirm the schedule. Please do not hesitate to reach out at your earliest convenience.",
		GeneratedBy: GeneratedByLLM,
	}}

	h := NewHumanizer(7)
	first := h.Apply(patterns)
	second := h.Apply(patterns)

	require.Len(t, first, 1)
	assert.Equal(t, first[0].BodyText, second[0].BodyText)
}

func TestHumanizerLeavesFallbackUntouched(t *testing.T) {
	body := "I am writing to confirm receipt. Furthermore, we will follow up."
	patterns := []ReplyPattern{{
		ID:          PatternFormal,
		BodyText:    body,
		GeneratedBy: GeneratedByFallback,
	}}

	out := NewHumanizer(7).Apply(patterns)
	assert.Equal(t, body, out[0].BodyText)
}

func TestHumanizerDoesNotMutateInput(t *testing.T) {
	body := "Furthermore, Furthermore, Furthermore, we agree."
	patterns := []ReplyPattern{{
		ID:          PatternBalanced,
		BodyText:    body,
		GeneratedBy: GeneratedByLLM,
	}}

	NewHumanizer(99).Apply(patterns)
	assert.Equal(t, body, patterns[0].BodyText)
}

func TestHumanizerCollapsesBlankLines(t *testing.T) {
	patterns := []ReplyPattern{{
		ID:          PatternBalanced,
		BodyText:    "Hello.\n\n\n\nBest regards.",
		GeneratedBy: GeneratedByLLM,
	}}

	out := NewHumanizer(1).Apply(patterns)
	assert.NotContains(t, out[0].BodyText, "\n\n\n")
	assert.Contains(t, out[0].BodyText, "Hello.\n\nBest regards.")
}

func TestHumanizerNilReceiverPassesThrough(t *testing.T) {
	var h *Humanizer
	patterns := threePatterns()
	assert.Equal(t, patterns, h.Apply(patterns))
}

func TestHumanizerTrimsWhitespace(t *testing.T) {
	patterns := []ReplyPattern{{
		ID:          PatternBalanced,
		BodyText:    "  Thanks for the note.  \n",
		GeneratedBy: GeneratedByLLM,
	}}

	out := NewHumanizer(3).Apply(patterns)
	assert.Equal(t, "Thanks for the note.", out[0].BodyText)
	assert.False(t, strings.HasSuffix(out[0].BodyText, "\n"))
}
