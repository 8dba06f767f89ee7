package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/infumatch/negotiator/llm"
	"github.com/infumatch/negotiator/prompt"
)

// Planner turns the thread analysis, sender configuration, and custom
// instructions into a reply strategy.
type Planner struct {
	gw     Completer
	logger *slog.Logger
}

// NewPlanner creates a strategy planner over the given gateway.
func NewPlanner(gw Completer, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{gw: gw, logger: logger}
}

// strategyPayload is the raw JSON shape the strategy template requests.
type strategyPayload struct {
	PrimaryApproach string   `json:"primary_approach"`
	ToneSetting     string   `json:"tone_setting"`
	PriorityPoints  []string `json:"priority_points"`
	Confidence      float64  `json:"confidence"`
}

// Plan produces the reply strategy. Gateway failures surface as stage
// failures; the orchestrator decides what to do with them.
func (p *Planner) Plan(ctx context.Context, analysis *ThreadAnalysis, profile SenderProfile, custom string, history []ConversationTurn, message string) (*StrategyPlan, error) {
	adjustments := ApplyInstructionRules(custom)

	res, err := p.gw.Complete(ctx, prompt.TemplateStrategyPlan, map[string]any{
		"Organization":         profile.OrganizationName,
		"Contact":              profile.ContactPersonName,
		"Tone":                 baseTone(profile),
		"Priorities":           joinOrNone(profile.KeyPriorities),
		"AvoidTopics":          joinOrNone(profile.AvoidTopics),
		"Products":             formatProducts(profile.ProductCatalog),
		"EmailType":            string(analysis.EmailType),
		"ReplyAppropriateness": string(analysis.ReplyAppropriateness),
		"Sentiment":            analysis.Sentiment,
		"Urgency":              analysis.Urgency,
		"CustomInstructions":   strings.TrimSpace(custom),
		"Adjustments":          formatAdjustments(adjustments),
		"Message":              truncateForAnalysis(message, maxAnalysisChars),
	})
	if err != nil {
		return nil, err
	}

	var payload strategyPayload
	if err := llm.DecodeJSON(res.Text, &payload); err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}

	plan := &StrategyPlan{
		PrimaryApproach: strings.TrimSpace(payload.PrimaryApproach),
		ToneSetting:     strings.TrimSpace(payload.ToneSetting),
		PriorityPoints:  payload.PriorityPoints,
		Confidence:      clamp01(payload.Confidence),
	}

	p.applyAdjustments(plan, profile, adjustments)
	plan.PriorityPoints = filterAvoidTopics(plan.PriorityPoints, profile.AvoidTopics)

	if plan.PrimaryApproach == "" {
		plan.PrimaryApproach = "respond directly to the counterpart's request"
	}
	if len(plan.PriorityPoints) == 0 {
		plan.PriorityPoints = []string{"Respond to the counterpart's main question"}
	}

	return plan, nil
}

// applyAdjustments enforces the deterministic parts of the strategy: the base
// tone, rule-derived tone overrides, and rule-derived priority points the
// model may have dropped.
func (p *Planner) applyAdjustments(plan *StrategyPlan, profile SenderProfile, adjustments []Adjustment) {
	overridden := false
	for _, adj := range adjustments {
		if adj.ToneOverride != "" {
			// Custom instructions override the profile tone explicitly.
			plan.ToneSetting = adj.ToneOverride
			overridden = true
		}
		if adj.PriorityPoint != "" && !containsFold(plan.PriorityPoints, adj.PriorityPoint) {
			plan.PriorityPoints = append(plan.PriorityPoints, adj.PriorityPoint)
		}
	}

	// Absent an explicit override, the tone stays anchored to the profile:
	// a model tone that never mentions the configured one is replaced, not
	// trusted. "warm and professional" passes for a professional profile;
	// "casual" does not.
	if !overridden {
		base := baseTone(profile)
		if !strings.Contains(strings.ToLower(plan.ToneSetting), strings.ToLower(base)) {
			plan.ToneSetting = base
		}
	}
}

// filterAvoidTopics drops any priority point that mentions an avoid-topic.
// Defensive post-processing of model output, not a hard error.
func filterAvoidTopics(points, avoid []string) []string {
	if len(avoid) == 0 {
		return points
	}

	kept := make([]string, 0, len(points))
	for _, point := range points {
		lowered := strings.ToLower(point)
		blocked := false
		for _, topic := range avoid {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(topic)) {
				blocked = true
				break
			}
		}
		if !blocked {
			kept = append(kept, point)
		}
	}
	return kept
}

func baseTone(profile SenderProfile) string {
	if profile.NegotiationTone != "" {
		return string(profile.NegotiationTone)
	}
	return string(ToneProfessional)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func formatProducts(products []Product) string {
	if len(products) == 0 {
		return "none"
	}

	parts := make([]string, len(products))
	for i, pr := range products {
		if pr.Category != "" {
			parts[i] = fmt.Sprintf("%s (%s)", pr.Name, pr.Category)
		} else {
			parts[i] = pr.Name
		}
	}
	return strings.Join(parts, ", ")
}

func formatAdjustments(adjustments []Adjustment) string {
	if len(adjustments) == 0 {
		return ""
	}

	notes := make([]string, len(adjustments))
	for i, adj := range adjustments {
		notes[i] = "- " + adj.Note
	}
	return strings.Join(notes, "\n")
}
