package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threePatterns() []ReplyPattern {
	return []ReplyPattern{
		{ID: PatternCollaborative, BodyText: "collab body", GeneratedBy: GeneratedByLLM},
		{ID: PatternBalanced, BodyText: "balanced body", GeneratedBy: GeneratedByLLM},
		{ID: PatternFormal, BodyText: "formal body", GeneratedBy: GeneratedByLLM},
	}
}

func TestSelectDefaultsToBalanced(t *testing.T) {
	sel, err := SelectPattern(threePatterns(), stubAnalysis(), stubPlan(), "")
	require.NoError(t, err)

	assert.Equal(t, PatternBalanced, sel.Pattern.ID)
	assert.Contains(t, sel.Reasoning, "balanced")
	assert.Contains(t, sel.Reasoning, "default middle ground")
}

func TestSelectHonorsPreference(t *testing.T) {
	sel, err := SelectPattern(threePatterns(), stubAnalysis(), stubPlan(), "formal")
	require.NoError(t, err)

	assert.Equal(t, PatternFormal, sel.Pattern.ID)
	assert.Contains(t, sel.Reasoning, "as requested")
}

func TestSelectUnknownPreferenceFallsBack(t *testing.T) {
	sel, err := SelectPattern(threePatterns(), stubAnalysis(), stubPlan(), "aggressive")
	require.NoError(t, err)

	assert.Equal(t, PatternBalanced, sel.Pattern.ID)
}

func TestSelectReasoningMentionsAnalysisAndStrategy(t *testing.T) {
	sel, err := SelectPattern(threePatterns(), stubAnalysis(), stubPlan(), "")
	require.NoError(t, err)

	assert.Contains(t, sel.Reasoning, "business_proposal")
	assert.Contains(t, sel.Reasoning, "confirm interest and propose next steps")
}

func TestSelectCautionNotedInReasoning(t *testing.T) {
	analysis := stubAnalysis()
	analysis.ReplyAppropriateness = ReplyCautionRequired

	sel, err := SelectPattern(threePatterns(), analysis, stubPlan(), "")
	require.NoError(t, err)

	assert.Contains(t, sel.Reasoning, "caution")
}

func TestSelectFallbackDisclosed(t *testing.T) {
	patterns := threePatterns()
	patterns[1].GeneratedBy = GeneratedByFallback

	sel, err := SelectPattern(patterns, stubAnalysis(), stubPlan(), "")
	require.NoError(t, err)

	assert.Contains(t, sel.Reasoning, "standard template")
}

func TestSelectDeterministic(t *testing.T) {
	first, err := SelectPattern(threePatterns(), stubAnalysis(), stubPlan(), "")
	require.NoError(t, err)
	second, err := SelectPattern(threePatterns(), stubAnalysis(), stubPlan(), "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSelectEmptyPatternsErrors(t *testing.T) {
	_, err := SelectPattern(nil, stubAnalysis(), stubPlan(), "")
	require.Error(t, err)
}

func TestSelectMissingBalancedTakesFirst(t *testing.T) {
	patterns := []ReplyPattern{
		{ID: PatternFormal, BodyText: "formal body", GeneratedBy: GeneratedByLLM},
	}

	sel, err := SelectPattern(patterns, stubAnalysis(), stubPlan(), "")
	require.NoError(t, err)
	assert.Equal(t, PatternFormal, sel.Pattern.ID)
}
