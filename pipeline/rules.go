package pipeline

import "strings"

// Custom instructions are free text, but a handful of intents recur constantly
// (discount requests, urgency, politeness). Rather than scattering keyword
// branches through the planner, a rule table maps trigger phrases to strategy
// adjustments evaluated once per run.

// Adjustment is one deterministic strategy change derived from custom
// instructions.
type Adjustment struct {
	// PriorityPoint, when non-empty, is guaranteed to appear in the plan's
	// priority points even if the model omits it.
	PriorityPoint string

	// ToneOverride, when non-empty, replaces the profile's base tone.
	ToneOverride string

	// Note is a short label recorded in the strategy prompt and trace.
	Note string
}

type instructionRule struct {
	triggers   []string
	adjustment Adjustment
}

// instructionRules is evaluated top to bottom; every matching rule applies.
// Triggers are matched case-insensitively as substrings.
var instructionRules = []instructionRule{
	{
		triggers: []string{"値引き", "割引", "値下げ", "discount", "lower price", "cheaper"},
		adjustment: Adjustment{
			PriorityPoint: "Present pricing flexibility and concrete discount options",
			Note:          "discount intent",
		},
	},
	{
		triggers: []string{"予算", "budget"},
		adjustment: Adjustment{
			PriorityPoint: "Clarify budget expectations before committing to scope",
			Note:          "budget focus",
		},
	},
	{
		triggers: []string{"急ぎ", "至急", "お急ぎ", "urgent", "asap"},
		adjustment: Adjustment{
			PriorityPoint: "Acknowledge the timeline and commit to a fast turnaround",
			Note:          "urgency",
		},
	},
	{
		triggers: []string{"丁寧", "敬語", "polite", "courteous"},
		adjustment: Adjustment{
			ToneOverride: "extra polite",
			Note:         "politeness request",
		},
	},
	{
		triggers: []string{"強気", "assertive", "firm"},
		adjustment: Adjustment{
			ToneOverride: "assertive",
			Note:         "assertiveness request",
		},
	},
}

// ApplyInstructionRules returns the adjustments triggered by the custom
// instruction text. Empty input returns nil: no instructions, no special-casing.
func ApplyInstructionRules(custom string) []Adjustment {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return nil
	}

	lowered := strings.ToLower(custom)

	var matched []Adjustment
	for _, rule := range instructionRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lowered, strings.ToLower(trigger)) {
				matched = append(matched, rule.adjustment)
				break
			}
		}
	}
	return matched
}
