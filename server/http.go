package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/infumatch/negotiator/pipeline"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// RegisterHTTPHandlers registers the API handlers:
//
//	POST /api/reply/generate
//	GET  /healthz
//	GET  /metrics
func (c *Component) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/api/reply/generate", c.handleGenerate)
	mux.HandleFunc("/healthz", c.handleHealthz)
	if c.metrics != nil {
		mux.Handle("/metrics", c.metrics.Handler())
	}
}

// GenerateRequest is the request body for POST /api/reply/generate.
// Message bodies may be HTML; they are normalized to plain text before the
// pipeline sees them.
type GenerateRequest struct {
	ConversationHistory []pipeline.ConversationTurn `json:"conversation_history,omitempty"`
	NewMessage          string                      `json:"new_message"`
	SenderProfile       pipeline.SenderProfile      `json:"sender_profile"`
	CustomInstructions  string                      `json:"custom_instructions,omitempty"`
	PreferredPattern    string                      `json:"preferred_pattern,omitempty"`
}

// GenerateResponse is the response body for a successful run.
type GenerateResponse struct {
	Content         string                                       `json:"content"`
	SelectedPattern pipeline.PatternID                           `json:"selected_pattern"`
	Patterns        map[pipeline.PatternID]pipeline.ReplyPattern `json:"patterns"`
	Reasoning       string                                       `json:"reasoning"`
	Trace           []pipeline.TraceEntry                        `json:"trace"`
	DurationMs      int64                                        `json:"duration_ms"`
}

// ErrorResponse is the response body for a failed run. Success is always
// false; it is serialized explicitly so callers can branch on one field
// without probing for the error object.
type ErrorResponse struct {
	Success bool                  `json:"success"`
	Error   ErrorDetail           `json:"error"`
	Trace   []pipeline.TraceEntry `json:"trace,omitempty"`
}

// ErrorDetail carries the stable code plus a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// handleGenerate runs the pipeline for one request.
func (c *Component) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
			Code:    string(pipeline.CodeConfiguration),
			Message: "invalid request body: " + err.Error(),
		}})
		return
	}
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	start := time.Now()

	pReq := &pipeline.Request{
		ConversationHistory: c.normalizeHistory(req.ConversationHistory),
		NewMessage:          c.normalizeBody(req.NewMessage),
		SenderProfile:       req.SenderProfile,
		CustomInstructions:  req.CustomInstructions,
		PreferredPattern:    req.PreferredPattern,
	}

	result, err := c.generator.Run(r.Context(), pReq)
	if err != nil {
		c.writePipelineError(w, err)
		return
	}

	c.publisher.ReplyGenerated(result, result.SelectedPattern)

	c.logger.Info("Reply generated",
		"selected", result.SelectedPattern,
		"duration_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, GenerateResponse{
		Content:         result.Content,
		SelectedPattern: result.SelectedPattern,
		Patterns:        result.Patterns,
		Reasoning:       result.Reasoning,
		Trace:           result.Trace,
		DurationMs:      result.DurationMs,
	})
}

// writePipelineError maps a pipeline failure to an HTTP response.
func (c *Component) writePipelineError(w http.ResponseWriter, err error) {
	var perr *pipeline.PipelineError
	if !errors.As(err, &perr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code:    string(pipeline.CodeUpstreamUnavailable),
			Message: err.Error(),
		}})
		return
	}

	c.publisher.ReplyFailed(perr)

	status := http.StatusBadGateway
	switch perr.Code {
	case pipeline.CodeConfiguration:
		status = http.StatusBadRequest
	case pipeline.CodeTimeout, pipeline.CodeCancelled:
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    string(perr.Code),
			Stage:   string(perr.Stage),
			Message: perr.Error(),
		},
		Trace: perr.Trace,
	})
}

// handleHealthz reports liveness.
func (c *Component) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(c.Uptime().Seconds()),
	})
}

// normalizeBody runs an email body through the normalizer, falling back to
// the raw text if normalization fails.
func (c *Component) normalizeBody(raw string) string {
	text, err := c.normalizer.EmailBody(raw)
	if err != nil {
		c.logger.Warn("Body normalization failed, using raw text", "error", err)
		return raw
	}
	return text
}

func (c *Component) normalizeHistory(history []pipeline.ConversationTurn) []pipeline.ConversationTurn {
	if len(history) == 0 {
		return history
	}
	out := make([]pipeline.ConversationTurn, len(history))
	for i, turn := range history {
		out[i] = turn
		out[i].Text = c.normalizeBody(turn.Text)
	}
	return out
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing useful to do.
		_ = err
	}
}
