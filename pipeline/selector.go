package pipeline

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Selection is the selecting stage's output: which pattern becomes the
// default reply content and why.
type Selection struct {
	Pattern   ReplyPattern
	Reasoning string
}

// SelectPattern picks the default reply from the generated patterns. Pure
// function of its inputs: no model call, no randomness. The balanced variant
// wins unless the caller named a valid preference.
func SelectPattern(patterns []ReplyPattern, analysis *ThreadAnalysis, plan *StrategyPlan, preferred string) (Selection, error) {
	if len(patterns) == 0 {
		return Selection{}, fmt.Errorf("no patterns to select from")
	}

	byID := make(map[PatternID]ReplyPattern, len(patterns))
	for _, p := range patterns {
		byID[p.ID] = p
	}

	chosenID := DefaultPatternID
	preferredApplied := false
	if preferred != "" {
		if id, ok := ParsePatternID(preferred); ok {
			if _, present := byID[id]; present {
				chosenID = id
				preferredApplied = true
			}
		}
	}

	chosen, ok := byID[chosenID]
	if !ok {
		// Balanced missing would be a generator contract violation; take
		// whatever came first rather than failing the whole run.
		chosen = patterns[0]
	}

	return Selection{
		Pattern:   chosen,
		Reasoning: selectionReasoning(chosen, analysis, plan, preferredApplied),
	}, nil
}

// selectionReasoning builds the caller-facing explanation. Deterministic for
// the same inputs.
func selectionReasoning(chosen ReplyPattern, analysis *ThreadAnalysis, plan *StrategyPlan, preferredApplied bool) string {
	var sb strings.Builder

	if preferredApplied {
		fmt.Fprintf(&sb, "Selected the %s variant as requested. ", chosen.ID)
	} else {
		fmt.Fprintf(&sb, "Selected the %s variant as the default middle ground. ", chosen.ID)
	}

	fmt.Fprintf(&sb, "The thread was classified as %s and the strategy is to %s.",
		analysis.EmailType, lowerFirst(plan.PrimaryApproach))

	if analysis.ReplyAppropriateness == ReplyCautionRequired {
		sb.WriteString(" The analysis flagged this thread as needing caution; review before sending.")
	}
	if chosen.GeneratedBy == GeneratedByFallback {
		sb.WriteString(" This variant uses a standard template because generation was unavailable.")
	}

	return sb.String()
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
