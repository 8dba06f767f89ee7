package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/infumatch/negotiator/llm"
	"github.com/infumatch/negotiator/prompt"
)

// Evaluator scores a planned strategy for risk before any text is drafted.
//
// Evaluation is advisory only: a high risk score is recorded in the trace and
// forwarded to the pattern generator so drafts can be more conservative, but
// it never aborts the pipeline. Early abort on risk signals silently dropped
// user-visible output; "inform, don't block" is the corrected behavior.
type Evaluator struct {
	gw     Completer
	logger *slog.Logger
}

// NewEvaluator creates a content evaluator over the given gateway.
func NewEvaluator(gw Completer, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{gw: gw, logger: logger}
}

// evaluationPayload is the raw JSON shape the evaluation template requests.
type evaluationPayload struct {
	RiskScore float64  `json:"risk_score"`
	Flags     []string `json:"flags"`
}

// Evaluate scores the strategy. It never returns an error: if the model is
// unreachable or its output unusable, a neutral advisory default comes back
// instead, because nothing downstream may depend on evaluation succeeding.
func (e *Evaluator) Evaluate(ctx context.Context, analysis *ThreadAnalysis, plan *StrategyPlan, profile SenderProfile) EvaluationResult {
	res, err := e.gw.Complete(ctx, prompt.TemplateContentEvaluation, map[string]any{
		"EmailType":            string(analysis.EmailType),
		"ReplyAppropriateness": string(analysis.ReplyAppropriateness),
		"Approach":             plan.PrimaryApproach,
		"ToneSetting":          plan.ToneSetting,
		"PriorityPoints":       strings.Join(plan.PriorityPoints, "; "),
		"AvoidTopics":          joinOrNone(profile.AvoidTopics),
	})
	if err != nil {
		e.logger.Warn("Evaluation unavailable, using neutral default", "error", err)
		return neutralEvaluation(analysis)
	}

	var payload evaluationPayload
	if err := llm.DecodeJSON(res.Text, &payload); err != nil {
		e.logger.Warn("Evaluation parse failed, using neutral default", "error", err)
		return neutralEvaluation(analysis)
	}

	result := EvaluationResult{
		RiskScore: clamp01(payload.RiskScore),
		Flags:     payload.Flags,
	}

	// A caution-flagged thread always carries at least one flag forward.
	if analysis.ReplyAppropriateness == ReplyCautionRequired && len(result.Flags) == 0 {
		result.Flags = append(result.Flags, "caution_required_analysis")
	}

	return result
}

func neutralEvaluation(analysis *ThreadAnalysis) EvaluationResult {
	result := EvaluationResult{
		RiskScore: 0.5,
		Flags:     []string{"evaluation_unavailable"},
	}
	if analysis.ReplyAppropriateness == ReplyCautionRequired {
		result.Flags = append(result.Flags, "caution_required_analysis")
	}
	return result
}
