// Package pipeline implements the multi-stage negotiation-reply pipeline:
// analyze the inbound thread, plan a strategy, score it for risk, generate
// reply variants, and select a default. The orchestrator sequences the stages
// and records a duration-stamped trace for observability.
package pipeline

import (
	"fmt"
	"time"
)

// Role identifies which party authored a conversation turn.
type Role string

const (
	// RoleSender is the replying party (the pipeline's user).
	RoleSender Role = "sender"

	// RoleCounterpart is the other party in the negotiation.
	RoleCounterpart Role = "counterpart"
)

// ConversationTurn is one message in a thread. Turns are ordered and owned by
// the caller; the pipeline never persists them.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Product is one entry in the sender's product catalog.
type Product struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Tone is the sender's configured negotiation tone.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneAssertive    Tone = "assertive"
)

// IsValid reports whether the tone is a known value.
func (t Tone) IsValid() bool {
	switch t {
	case ToneFriendly, ToneProfessional, ToneAssertive:
		return true
	}
	return false
}

// SenderProfile describes the replying party. Supplied fresh on each
// invocation; there is no process-wide persona state.
type SenderProfile struct {
	OrganizationName  string    `json:"organization_name"`
	ContactPersonName string    `json:"contact_person_name"`
	ProductCatalog    []Product `json:"product_catalog,omitempty"`
	NegotiationTone   Tone      `json:"negotiation_tone"`
	KeyPriorities     []string  `json:"key_priorities,omitempty"`
	AvoidTopics       []string  `json:"avoid_topics,omitempty"`
}

// Validate checks the profile is usable for reply generation.
func (p *SenderProfile) Validate() error {
	if p.OrganizationName == "" {
		return fmt.Errorf("%w: organization_name is required", ErrConfiguration)
	}
	if p.NegotiationTone != "" && !p.NegotiationTone.IsValid() {
		return fmt.Errorf("%w: unknown negotiation_tone %q", ErrConfiguration, p.NegotiationTone)
	}
	return nil
}

// EmailType classifies an inbound message.
type EmailType string

const (
	EmailTypeSystemNotification EmailType = "system_notification"
	EmailTypeBusinessProposal   EmailType = "business_proposal"
	EmailTypePersonal           EmailType = "personal"
	EmailTypeOther              EmailType = "other"
)

// ParseEmailType normalizes a model-produced type, defaulting to other.
func ParseEmailType(s string) EmailType {
	switch EmailType(s) {
	case EmailTypeSystemNotification, EmailTypeBusinessProposal, EmailTypePersonal, EmailTypeOther:
		return EmailType(s)
	}
	return EmailTypeOther
}

// ReplyAppropriateness indicates whether a reply is advisable.
type ReplyAppropriateness string

const (
	ReplyRecommended     ReplyAppropriateness = "recommended"
	ReplyNotNeeded       ReplyAppropriateness = "not_needed"
	ReplyCautionRequired ReplyAppropriateness = "caution_required"
)

// ParseReplyAppropriateness normalizes a model-produced value, defaulting to
// caution_required so ambiguous output errs on the careful side.
func ParseReplyAppropriateness(s string) ReplyAppropriateness {
	switch ReplyAppropriateness(s) {
	case ReplyRecommended, ReplyNotNeeded, ReplyCautionRequired:
		return ReplyAppropriateness(s)
	}
	return ReplyCautionRequired
}

// ThreadAnalysis is the output of the analyzing stage.
// caution_required flags risk but never truncates the pipeline.
type ThreadAnalysis struct {
	EmailType            EmailType            `json:"email_type"`
	ReplyAppropriateness ReplyAppropriateness `json:"reply_appropriateness"`
	Sentiment            string               `json:"sentiment"`
	Urgency              string               `json:"urgency"`
	Confidence           float64              `json:"confidence"`
	Summary              string               `json:"summary"`
}

// StrategyPlan is the output of the planning stage.
type StrategyPlan struct {
	PrimaryApproach string   `json:"primary_approach"`
	ToneSetting     string   `json:"tone_setting"`
	PriorityPoints  []string `json:"priority_points"`
	Confidence      float64  `json:"confidence"`
}

// EvaluationResult is the advisory output of the evaluating stage.
// It informs pattern generation; it never gates pipeline continuation.
type EvaluationResult struct {
	RiskScore float64  `json:"risk_score"`
	Flags     []string `json:"flags"`
}

// PatternID names a reply archetype.
type PatternID string

const (
	PatternCollaborative PatternID = "collaborative"
	PatternBalanced      PatternID = "balanced"
	PatternFormal        PatternID = "formal"
)

// AllPatternIDs lists the archetypes in generation order.
var AllPatternIDs = []PatternID{PatternCollaborative, PatternBalanced, PatternFormal}

// DefaultPatternID is the archetype selected when the caller has no preference.
const DefaultPatternID = PatternBalanced

// ParsePatternID returns the archetype for s, or false for unknown values.
func ParsePatternID(s string) (PatternID, bool) {
	switch PatternID(s) {
	case PatternCollaborative, PatternBalanced, PatternFormal:
		return PatternID(s), true
	}
	return "", false
}

// GeneratedBy tags how a pattern's body text was produced, so callers can
// disclose template fallbacks instead of presenting them as AI-authored.
type GeneratedBy string

const (
	GeneratedByLLM      GeneratedBy = "llm"
	GeneratedByFallback GeneratedBy = "fallback"
)

// ReplyPattern is one generated reply variant.
type ReplyPattern struct {
	ID          PatternID   `json:"pattern_id"`
	ToneLabel   string      `json:"tone_label"`
	BodyText    string      `json:"body_text"`
	Rationale   string      `json:"rationale"`
	GeneratedBy GeneratedBy `json:"generated_by"`
}

// Stage is one step of the orchestrator's sequential state machine.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageAnalyzing  Stage = "analyzing"
	StagePlanning   Stage = "planning"
	StageEvaluating Stage = "evaluating"
	StageGenerating Stage = "generating"
	StageSelecting  Stage = "selecting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// TraceEntry records one stage transition for observability.
type TraceEntry struct {
	Stage      Stage   `json:"stage"`
	OffsetMs   int64   `json:"timestamp_offset_ms"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// Request is one pipeline invocation.
type Request struct {
	ConversationHistory []ConversationTurn `json:"conversation_history,omitempty"`
	NewMessage          string             `json:"new_message"`
	SenderProfile       SenderProfile      `json:"sender_profile"`
	CustomInstructions  string             `json:"custom_instructions,omitempty"`

	// PreferredPattern optionally overrides the default balanced selection.
	// Unknown values fall back to balanced.
	PreferredPattern string `json:"preferred_pattern,omitempty"`
}

// Result is a successful pipeline outcome.
type Result struct {
	Content         string                     `json:"content"`
	SelectedPattern PatternID                  `json:"selected_pattern"`
	Patterns        map[PatternID]ReplyPattern `json:"patterns"`
	Reasoning       string                     `json:"reasoning"`
	Trace           []TraceEntry               `json:"trace"`
	DurationMs      int64                      `json:"duration_ms"`
}
