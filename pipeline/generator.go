package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/infumatch/negotiator/llm"
	"github.com/infumatch/negotiator/prompt"
)

// Generator drafts the three reply variants from the strategy.
// The contract is strict: every run yields exactly three non-empty patterns.
// A variant whose generation fails is retried once, then replaced with a
// deterministic template so the contract holds.
type Generator struct {
	gw     Completer
	logger *slog.Logger
}

// NewGenerator creates a pattern generator over the given gateway.
func NewGenerator(gw Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{gw: gw, logger: logger}
}

// patternPayload is the raw JSON shape the pattern templates request.
type patternPayload struct {
	ToneLabel string `json:"tone_label"`
	Body      string `json:"body"`
	Rationale string `json:"rationale"`
}

// archetypeToneLabels are the default tone labels per archetype, used when the
// model omits one and for fallback patterns. Ordered informally from least to
// most formal: collaborative < balanced < formal.
var archetypeToneLabels = map[PatternID]string{
	PatternCollaborative: "warm and collaborative",
	PatternBalanced:      "balanced and professional",
	PatternFormal:        "formal and respectful",
}

// GenerationOutcome carries the three patterns plus notes about any
// failure/fallback events for the trace.
type GenerationOutcome struct {
	Patterns []ReplyPattern
	Notes    []string
}

// Generate produces one pattern per archetype. Only caller cancellation and
// deadline expiry abort it; per-archetype failures degrade to fallbacks.
func (g *Generator) Generate(ctx context.Context, analysis *ThreadAnalysis, plan *StrategyPlan, eval EvaluationResult, profile SenderProfile, custom, message string) (*GenerationOutcome, error) {
	vars := map[string]any{
		"Approach":           plan.PrimaryApproach,
		"ToneSetting":        plan.ToneSetting,
		"PriorityPoints":     strings.Join(plan.PriorityPoints, "; "),
		"Organization":       profile.OrganizationName,
		"Contact":            profile.ContactPersonName,
		"Products":           formatProducts(profile.ProductCatalog),
		"RiskScore":          fmt.Sprintf("%.2f", eval.RiskScore),
		"RiskFlags":          strings.Join(eval.Flags, ", "),
		"CustomInstructions": strings.TrimSpace(custom),
		"Message":            truncateForAnalysis(message, maxAnalysisChars),
	}

	outcome := &GenerationOutcome{
		Patterns: make([]ReplyPattern, 0, len(AllPatternIDs)),
	}

	for _, id := range AllPatternIDs {
		pattern, err := g.generateOne(ctx, id, vars)
		if err != nil {
			// The pipeline's own deadline or cancellation must propagate;
			// everything else degrades to the fallback template.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			g.logger.Warn("Pattern generation failed, using fallback template",
				"archetype", id,
				"error", err)
			pattern = fallbackPattern(id, profile, plan)
			outcome.Notes = append(outcome.Notes,
				fmt.Sprintf("%s: generation failed after retry, fallback template used", id))
		}
		outcome.Patterns = append(outcome.Patterns, pattern)
	}

	return outcome, nil
}

// generateOne drafts a single archetype, retrying once on any failure.
func (g *Generator) generateOne(ctx context.Context, id PatternID, vars map[string]any) (ReplyPattern, error) {
	pattern, err := g.tryGenerate(ctx, id, vars)
	if err == nil {
		return pattern, nil
	}
	if ctx.Err() != nil {
		return ReplyPattern{}, err
	}

	g.logger.Debug("Retrying pattern generation", "archetype", id, "error", err)
	return g.tryGenerate(ctx, id, vars)
}

func (g *Generator) tryGenerate(ctx context.Context, id PatternID, vars map[string]any) (ReplyPattern, error) {
	res, err := g.gw.Complete(ctx, prompt.PatternTemplateID(string(id)), vars)
	if err != nil {
		return ReplyPattern{}, err
	}

	var payload patternPayload
	if err := llm.DecodeJSON(res.Text, &payload); err != nil {
		return ReplyPattern{}, fmt.Errorf("pattern %s: %w", id, err)
	}

	body := strings.TrimSpace(payload.Body)
	if body == "" {
		return ReplyPattern{}, fmt.Errorf("pattern %s: %w: empty body", id, llm.ErrInvalidResponse)
	}

	toneLabel := strings.TrimSpace(payload.ToneLabel)
	if toneLabel == "" {
		toneLabel = archetypeToneLabels[id]
	}

	return ReplyPattern{
		ID:          id,
		ToneLabel:   toneLabel,
		BodyText:    body,
		Rationale:   strings.TrimSpace(payload.Rationale),
		GeneratedBy: GeneratedByLLM,
	}, nil
}

// fallbackPattern builds the deterministic substitution used when an
// archetype cannot be generated: sender identity plus a generic
// acknowledgment. Tagged GeneratedByFallback so callers can disclose it.
func fallbackPattern(id PatternID, profile SenderProfile, plan *StrategyPlan) ReplyPattern {
	contact := profile.ContactPersonName
	if contact == "" {
		contact = profile.OrganizationName
	}

	var body string
	switch id {
	case PatternFormal:
		body = fmt.Sprintf(
			"Thank you very much for your message. We have received it and are reviewing the details with care. %s of %s will follow up with a considered response shortly. We appreciate your patience.",
			contact, profile.OrganizationName)
	case PatternCollaborative:
		body = fmt.Sprintf(
			"Thanks so much for reaching out! We're excited about this conversation. %s from %s is looking into the details and will get back to you very soon.",
			contact, profile.OrganizationName)
	default:
		body = fmt.Sprintf(
			"Thank you for your message. %s from %s is reviewing the details and will respond shortly with next steps.",
			contact, profile.OrganizationName)
	}

	return ReplyPattern{
		ID:          id,
		ToneLabel:   archetypeToneLabels[id],
		BodyText:    body,
		Rationale:   fmt.Sprintf("deterministic fallback aligned with the %q approach", plan.PrimaryApproach),
		GeneratedBy: GeneratedByFallback,
	}
}
