// Package events publishes pipeline run outcomes to NATS so downstream
// consumers (CRM sync, analytics) can react without polling the API.
package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/infumatch/negotiator/pipeline"
)

// Subjects for run outcome events.
const (
	SubjectReplyGenerated = "reply.generated"
	SubjectReplyFailed    = "reply.failed"
)

// Conn is the slice of the NATS connection the publisher needs.
// *nats.Conn satisfies it.
type Conn interface {
	Publish(subject string, data []byte) error
}

// ReplyGeneratedEvent is emitted after a successful pipeline run. It carries
// run metadata, never the reply text: events cross trust boundaries and the
// drafted content belongs to the caller.
type ReplyGeneratedEvent struct {
	SelectedPattern string    `json:"selected_pattern"`
	FallbackUsed    bool      `json:"fallback_used"`
	DurationMs      int64     `json:"duration_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

// ReplyFailedEvent is emitted after a failed pipeline run.
type ReplyFailedEvent struct {
	Stage     string    `json:"stage"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits run outcome events. A nil Publisher or a Publisher with no
// connection is a no-op, so callers never need to guard event emission.
type Publisher struct {
	conn   Conn
	logger *slog.Logger
}

// NewPublisher creates an event publisher. conn may be nil to disable events.
func NewPublisher(conn Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// ReplyGenerated publishes a success event for the result. Publish failures
// are logged, not returned: events are best-effort and must never fail the
// request that produced them.
func (p *Publisher) ReplyGenerated(result *pipeline.Result, selected pipeline.PatternID) {
	if p == nil || p.conn == nil || result == nil {
		return
	}

	fallbackUsed := false
	for _, pat := range result.Patterns {
		if pat.GeneratedBy == pipeline.GeneratedByFallback {
			fallbackUsed = true
			break
		}
	}

	p.publish(SubjectReplyGenerated, ReplyGeneratedEvent{
		SelectedPattern: string(selected),
		FallbackUsed:    fallbackUsed,
		DurationMs:      result.DurationMs,
		Timestamp:       time.Now().UTC(),
	})
}

// ReplyFailed publishes a failure event for the pipeline error.
func (p *Publisher) ReplyFailed(perr *pipeline.PipelineError) {
	if p == nil || p.conn == nil || perr == nil {
		return
	}

	p.publish(SubjectReplyFailed, ReplyFailedEvent{
		Stage:     string(perr.Stage),
		Code:      string(perr.Code),
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("Event marshal failed", "subject", subject, "error", err)
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Event publish failed", "subject", subject, "error", err)
		return
	}

	p.logger.Debug("Event published", "subject", subject)
}
