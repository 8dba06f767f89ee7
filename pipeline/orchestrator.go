package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// defaultPipelineTimeout bounds a full run across all five stages.
const defaultPipelineTimeout = 60 * time.Second

// MetricsRecorder receives per-run observations. Implementations must be
// cheap; they are called on the request path.
type MetricsRecorder interface {
	ObserveRun(duration time.Duration, failedStage Stage, code Code)
	ObserveStage(stage Stage, duration time.Duration)
	ObserveFallbacks(count int)
}

// Orchestrator sequences the pipeline stages. One Orchestrator serves many
// concurrent runs; all per-run state lives on the stack of Run.
type Orchestrator struct {
	analyzer  *Analyzer
	planner   *Planner
	evaluator *Evaluator
	generator *Generator

	timeout   time.Duration
	humanizer *Humanizer
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTimeout overrides the default 60s pipeline deadline.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHumanizer enables post-generation humanization of LLM-drafted bodies.
func WithHumanizer(h *Humanizer) OrchestratorOption {
	return func(o *Orchestrator) { o.humanizer = h }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator wires the stages over a shared gateway.
func NewOrchestrator(gw Completer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		timeout: defaultPipelineTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.analyzer = NewAnalyzer(gw, o.logger)
	o.planner = NewPlanner(gw, o.logger)
	o.evaluator = NewEvaluator(gw, o.logger)
	o.generator = NewGenerator(gw, o.logger)
	return o
}

// tracer accumulates trace entries against the run's start time.
type tracer struct {
	start   time.Time
	entries []TraceEntry
}

func (t *tracer) record(stage Stage, summary string, confidence float64) {
	t.entries = append(t.entries, TraceEntry{
		Stage:      stage,
		OffsetMs:   time.Since(t.start).Milliseconds(),
		Summary:    summary,
		Confidence: confidence,
	})
}

// Run executes the full pipeline for one request.
//
// Stage order is fixed: analyzing, planning, evaluating, generating,
// selecting. A trace entry is appended when a stage completes; on failure a
// final entry marks the failing stage, and the partial trace travels inside
// the returned *PipelineError.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	tr := &tracer{start: time.Now()}

	if err := validateRequest(req); err != nil {
		return nil, o.fail(tr, StageIdle, err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// Analyzing.
	stageStart := time.Now()
	analysis, err := o.analyzer.Analyze(ctx, req.NewMessage, req.ConversationHistory)
	if err != nil {
		return nil, o.fail(tr, StageAnalyzing, err)
	}
	o.observeStage(StageAnalyzing, stageStart)
	tr.record(StageAnalyzing,
		fmt.Sprintf("classified as %s (%s)", analysis.EmailType, analysis.ReplyAppropriateness),
		analysis.Confidence)

	// Planning.
	stageStart = time.Now()
	plan, err := o.planner.Plan(ctx, analysis, req.SenderProfile, req.CustomInstructions, req.ConversationHistory, req.NewMessage)
	if err != nil {
		return nil, o.fail(tr, StagePlanning, err)
	}
	o.observeStage(StagePlanning, stageStart)
	tr.record(StagePlanning,
		fmt.Sprintf("approach: %s; tone: %s", plan.PrimaryApproach, plan.ToneSetting),
		plan.Confidence)

	// Evaluating. Advisory: Evaluate never errors.
	stageStart = time.Now()
	eval := o.evaluator.Evaluate(ctx, analysis, plan, req.SenderProfile)
	if ctx.Err() != nil {
		return nil, o.fail(tr, StageEvaluating, ctx.Err())
	}
	o.observeStage(StageEvaluating, stageStart)
	tr.record(StageEvaluating,
		fmt.Sprintf("risk %.2f%s", eval.RiskScore, flagSuffix(eval.Flags)),
		1-eval.RiskScore)

	// Generating.
	stageStart = time.Now()
	outcome, err := o.generator.Generate(ctx, analysis, plan, eval, req.SenderProfile, req.CustomInstructions, req.NewMessage)
	if err != nil {
		return nil, o.fail(tr, StageGenerating, err)
	}
	o.observeStage(StageGenerating, stageStart)

	patterns := outcome.Patterns
	if o.humanizer != nil {
		patterns = o.humanizer.Apply(patterns)
	}

	if o.metrics != nil {
		o.metrics.ObserveFallbacks(fallbackCount(patterns))
	}

	tr.record(StageGenerating, generationSummary(patterns, outcome.Notes), llmRatio(patterns))

	// Selecting. Pure; only a generator contract violation can fail it.
	stageStart = time.Now()
	selection, err := SelectPattern(patterns, analysis, plan, req.PreferredPattern)
	if err != nil {
		return nil, o.fail(tr, StageSelecting, err)
	}
	o.observeStage(StageSelecting, stageStart)
	tr.record(StageSelecting, fmt.Sprintf("selected %s", selection.Pattern.ID), 1.0)

	duration := time.Since(tr.start)
	o.observeRun(duration, "", "")

	byID := make(map[PatternID]ReplyPattern, len(patterns))
	for _, p := range patterns {
		byID[p.ID] = p
	}

	o.logger.Info("Pipeline run complete",
		"email_type", analysis.EmailType,
		"selected", selection.Pattern.ID,
		"duration_ms", duration.Milliseconds())

	return &Result{
		Content:         selection.Pattern.BodyText,
		SelectedPattern: selection.Pattern.ID,
		Patterns:        byID,
		Reasoning:       selection.Reasoning,
		Trace:           tr.entries,
		DurationMs:      duration.Milliseconds(),
	}, nil
}

// fail closes out a run: it appends the failure entry to the trace, records
// metrics, and wraps the cause with the stage and stable code.
func (o *Orchestrator) fail(tr *tracer, stage Stage, err error) *PipelineError {
	code := CodeForError(err)
	tr.record(stage, fmt.Sprintf("failed: %s", code), 0)

	duration := time.Since(tr.start)
	o.observeRun(duration, stage, code)

	o.logger.Error("Pipeline run failed",
		"stage", stage,
		"code", code,
		"duration_ms", duration.Milliseconds(),
		"error", err)

	return &PipelineError{
		Stage: stage,
		Code:  code,
		Trace: tr.entries,
		err:   err,
	}
}

func (o *Orchestrator) observeStage(stage Stage, start time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveStage(stage, time.Since(start))
	}
}

func (o *Orchestrator) observeRun(duration time.Duration, failedStage Stage, code Code) {
	if o.metrics != nil {
		o.metrics.ObserveRun(duration, failedStage, code)
	}
}

func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrConfiguration)
	}
	if strings.TrimSpace(req.NewMessage) == "" {
		return fmt.Errorf("%w: new_message is required", ErrConfiguration)
	}
	return req.SenderProfile.Validate()
}

// generationSummary names how many variants came from the model versus the
// fallback template, plus any per-archetype notes.
func generationSummary(patterns []ReplyPattern, notes []string) string {
	llmCount := 0
	for _, p := range patterns {
		if p.GeneratedBy == GeneratedByLLM {
			llmCount++
		}
	}

	summary := fmt.Sprintf("generated %d/%d variants via model", llmCount, len(patterns))
	if len(notes) > 0 {
		summary += "; " + strings.Join(notes, "; ")
	}
	return summary
}

// llmRatio is the share of patterns drafted by the model, used as the
// generating stage's trace confidence.
func llmRatio(patterns []ReplyPattern) float64 {
	if len(patterns) == 0 {
		return 0
	}
	return float64(len(patterns)-fallbackCount(patterns)) / float64(len(patterns))
}

func fallbackCount(patterns []ReplyPattern) int {
	n := 0
	for _, p := range patterns {
		if p.GeneratedBy == GeneratedByFallback {
			n++
		}
	}
	return n
}

func flagSuffix(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	return " (" + strings.Join(flags, ", ") + ")"
}
