package prompt

import (
	"text/template"

	"github.com/infumatch/negotiator/model"
)

// Built-in template IDs used by the pipeline stages.
const (
	TemplateThreadAnalysis    = "thread_analysis"
	TemplateStrategyPlan      = "strategy_plan"
	TemplateContentEvaluation = "content_evaluation"
	TemplatePatternPrefix     = "reply_pattern_" // + archetype id
)

// PatternTemplateID returns the template ID for a reply archetype.
func PatternTemplateID(archetype string) string {
	return TemplatePatternPrefix + archetype
}

func registerBuiltins(s *Store) {
	low := 0.2
	mid := 0.5

	must := func(err error) {
		if err != nil {
			// Built-in templates are compiled in; a parse failure is a programming error.
			panic(err)
		}
	}

	must(s.Register(&Template{
		ID:          TemplateThreadAnalysis,
		Capability:  model.CapabilityAnalysis,
		Temperature: &low,
		MaxTokens:   1024,
		System:      analysisSystemPrompt,
		User:        mustParse(TemplateThreadAnalysis, analysisUserTemplate),
	}))

	must(s.Register(&Template{
		ID:          TemplateStrategyPlan,
		Capability:  model.CapabilityStrategy,
		Temperature: &mid,
		MaxTokens:   2048,
		System:      strategySystemPrompt,
		User:        mustParse(TemplateStrategyPlan, strategyUserTemplate),
	}))

	must(s.Register(&Template{
		ID:          TemplateContentEvaluation,
		Capability:  model.CapabilityEvaluation,
		Temperature: &low,
		MaxTokens:   1024,
		System:      evaluationSystemPrompt,
		User:        mustParse(TemplateContentEvaluation, evaluationUserTemplate),
	}))

	for archetype, overlay := range patternOverlays {
		id := PatternTemplateID(archetype)
		must(s.Register(&Template{
			ID:          id,
			Capability:  model.CapabilityGeneration,
			Temperature: &mid,
			MaxTokens:   2048,
			System:      patternSystemPrompt + "\n\n" + overlay,
			User:        mustParse(id, patternUserTemplate),
		}))
	}
}

func mustParse(id, text string) *template.Template {
	return template.Must(template.New(id).Option("missingkey=error").Parse(text))
}

const analysisSystemPrompt = `You are an inbox triage assistant for influencer-marketing negotiations.

Classify the newest inbound email given the conversation so far.

## Output Format

Respond with ONLY a JSON object:

` + "```json" + `
{
  "email_type": "system_notification | business_proposal | personal | other",
  "reply_appropriateness": "recommended | not_needed | caution_required",
  "sentiment": "positive | neutral | negative",
  "urgency": "low | medium | high",
  "confidence": 0.0,
  "summary": "one-line summary of the message intent"
}
` + "```" + `

## Guidelines

- system_notification covers automated mail (receipts, alerts, calendar invites)
- business_proposal covers collaboration offers, pricing questions, negotiations
- caution_required when the message is hostile, legally sensitive, or ambiguous
- confidence is your own certainty in this classification, 0.0-1.0
- Keep the summary in the language of the message`

const analysisUserTemplate = `Conversation so far ({{.HistoryCount}} messages):
{{.History}}

Newest inbound message:
---
{{.Message}}
---

Classify the newest message.`

const strategySystemPrompt = `You are a negotiation strategist drafting a reply plan for an influencer-marketing agency.

Combine the sender's configuration, the thread analysis, and any custom
instructions into a concrete reply strategy.

## Output Format

Respond with ONLY a JSON object:

` + "```json" + `
{
  "primary_approach": "short description of the overall approach",
  "tone_setting": "tone for the reply",
  "priority_points": ["ordered talking points for the reply"],
  "confidence": 0.0
}
` + "```" + `

## Guidelines

- tone_setting must match the sender's configured negotiation tone unless the
  custom instructions explicitly ask for something else
- priority_points are concrete and actionable, 2-5 entries
- Never include any of the sender's avoid-topics as a priority point
- When custom instructions are present, they take priority over defaults`

const strategyUserTemplate = `## Sender
Organization: {{.Organization}}
Contact: {{.Contact}}
Negotiation tone: {{.Tone}}
Key priorities: {{.Priorities}}
Avoid topics: {{.AvoidTopics}}
Products: {{.Products}}

## Thread Analysis
Email type: {{.EmailType}}
Reply appropriateness: {{.ReplyAppropriateness}}
Sentiment: {{.Sentiment}}
Urgency: {{.Urgency}}

## Custom Instructions
{{if .CustomInstructions}}{{.CustomInstructions}}
(The instructions above take priority over sender defaults.){{else}}none{{end}}
{{if .Adjustments}}
## Detected Instruction Signals
{{.Adjustments}}
{{end}}
## Inbound Message
{{.Message}}

Produce the reply strategy.`

const evaluationSystemPrompt = `You are a risk reviewer for outbound negotiation replies.

Score the planned reply strategy for risk before any text is drafted. Your
assessment is advisory: it informs how conservative the drafts should be, it
does not block them.

## Output Format

Respond with ONLY a JSON object:

` + "```json" + `
{
  "risk_score": 0.0,
  "flags": ["short risk labels, empty array when clean"]
}
` + "```" + `

## Guidelines

- risk_score is 0.0 (safe) to 1.0 (high risk)
- Flag overcommitment, pricing promises, legal exposure, tone mismatch
- caution_required analyses warrant at least one flag`

const evaluationUserTemplate = `## Thread Analysis
Email type: {{.EmailType}}
Reply appropriateness: {{.ReplyAppropriateness}}

## Planned Strategy
Approach: {{.Approach}}
Tone: {{.ToneSetting}}
Priority points: {{.PriorityPoints}}

## Sender Constraints
Avoid topics: {{.AvoidTopics}}

Score this strategy.`

const patternSystemPrompt = `You are drafting a negotiation reply email for an influencer-marketing agency.

Write the reply in the same language as the inbound message. Follow the
strategy exactly: cover every priority point, respect the tone setting, and
never mention the avoid-topics.

## Output Format

Respond with ONLY a JSON object:

` + "```json" + `
{
  "tone_label": "short label describing the tone used",
  "body": "the full reply text, ready to send",
  "rationale": "one sentence on why this variant fits"
}
` + "```" + ``

// patternOverlays adds archetype-specific direction on top of the shared
// pattern system prompt.
var patternOverlays = map[string]string{
	"collaborative": `## Variant: collaborative
Lean warm and enthusiastic. Emphasize partnership, shared upside, and
flexibility. Contractions and light informality are fine.`,
	"balanced": `## Variant: balanced
Professional but approachable. Balance warmth against precision; this is the
default variant most users will send.`,
	"formal": `## Variant: formal
Strictly formal business register. Full honorifics, no contractions, precise
commitments only. This variant must read as the most formal of the three.`,
}

const patternUserTemplate = `## Strategy
Approach: {{.Approach}}
Tone: {{.ToneSetting}}
Priority points: {{.PriorityPoints}}

## Sender
Organization: {{.Organization}}
Contact: {{.Contact}}
Products: {{.Products}}

## Risk Assessment
Risk score: {{.RiskScore}}{{if .RiskFlags}}
Flags: {{.RiskFlags}}
Be conservative where these flags apply.{{end}}

{{if .CustomInstructions}}## Custom Instructions
{{.CustomInstructions}}

{{end}}## Inbound Message
{{.Message}}

Draft the reply.`
