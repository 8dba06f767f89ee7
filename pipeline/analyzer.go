package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/infumatch/negotiator/llm"
	"github.com/infumatch/negotiator/prompt"
)

// maxAnalysisChars limits message content for LLM analysis.
// ~4000 chars ≈ ~1000 tokens, staying well within context windows
// while providing enough content for accurate classification.
const maxAnalysisChars = 4000

// maxHistoryTurns bounds how much thread history reaches the analysis prompt.
const maxHistoryTurns = 10

// Analyzer classifies an inbound message given the conversation so far.
type Analyzer struct {
	gw     Completer
	logger *slog.Logger
}

// NewAnalyzer creates a thread analyzer over the given gateway.
func NewAnalyzer(gw Completer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gw: gw, logger: logger}
}

// threadAnalysisPayload is the raw JSON shape the analysis template requests.
type threadAnalysisPayload struct {
	EmailType            string  `json:"email_type"`
	ReplyAppropriateness string  `json:"reply_appropriateness"`
	Sentiment            string  `json:"sentiment"`
	Urgency              string  `json:"urgency"`
	Confidence           float64 `json:"confidence"`
	Summary              string  `json:"summary"`
}

// Analyze classifies the newest inbound message.
//
// Parse failures are retried once against the gateway; if the second attempt
// also fails to parse, a conservative default is returned instead of an error
// so downstream stages always have a value to work with. Upstream failures
// surface as errors — they mean no model answered at all.
func (a *Analyzer) Analyze(ctx context.Context, message string, history []ConversationTurn) (*ThreadAnalysis, error) {
	vars := map[string]any{
		"Message":      truncateForAnalysis(message, maxAnalysisChars),
		"History":      FormatHistory(history),
		"HistoryCount": len(history),
	}

	analysis, err := a.analyzeOnce(ctx, vars)
	if err == nil {
		return analysis, nil
	}
	if !llm.IsInvalidResponse(err) {
		return nil, err
	}

	a.logger.Warn("Analysis parse failed, retrying once", "error", err)

	analysis, err = a.analyzeOnce(ctx, vars)
	if err == nil {
		return analysis, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	a.logger.Warn("Analysis failed after retry, using conservative default", "error", err)
	fallback := conservativeAnalysis()
	return &fallback, nil
}

func (a *Analyzer) analyzeOnce(ctx context.Context, vars map[string]any) (*ThreadAnalysis, error) {
	res, err := a.gw.Complete(ctx, prompt.TemplateThreadAnalysis, vars)
	if err != nil {
		return nil, err
	}

	var payload threadAnalysisPayload
	if err := llm.DecodeJSON(res.Text, &payload); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	return &ThreadAnalysis{
		EmailType:            ParseEmailType(payload.EmailType),
		ReplyAppropriateness: ParseReplyAppropriateness(payload.ReplyAppropriateness),
		Sentiment:            normalizeLabel(payload.Sentiment, "neutral"),
		Urgency:              normalizeLabel(payload.Urgency, "low"),
		Confidence:           clamp01(payload.Confidence),
		Summary:              strings.TrimSpace(payload.Summary),
	}, nil
}

// conservativeAnalysis is the defensive default when the model's answer is
// unusable: treat the thread as unclassified and risky.
func conservativeAnalysis() ThreadAnalysis {
	return ThreadAnalysis{
		EmailType:            EmailTypeOther,
		ReplyAppropriateness: ReplyCautionRequired,
		Sentiment:            "neutral",
		Urgency:              "low",
		Confidence:           0.2,
		Summary:              "classification unavailable; conservative default applied",
	}
}

// FormatHistory renders conversation turns for prompt inclusion,
// keeping only the most recent turns.
func FormatHistory(history []ConversationTurn) string {
	if len(history) == 0 {
		return "(no prior messages)"
	}

	turns := history
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}

	var sb strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&sb, "- %s: %s\n", turn.Role, truncateForAnalysis(turn.Text, 500))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// truncateForAnalysis truncates content to a maximum length for LLM analysis.
// Tries to truncate at a paragraph boundary if possible.
func truncateForAnalysis(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}

	truncated := content[:maxChars]
	lastPara := strings.LastIndex(truncated, "\n\n")
	if lastPara > maxChars/2 {
		return truncated[:lastPara] + "\n\n[Content truncated for analysis...]"
	}

	return truncated + "\n\n[Content truncated for analysis...]"
}

func normalizeLabel(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
