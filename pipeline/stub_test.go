package pipeline

import (
	"context"
	"sync"

	"github.com/infumatch/negotiator/llm"
	"github.com/infumatch/negotiator/prompt"
)

// stubGateway is a scripted Completer for stage tests. Responses are queued
// per template ID; when a queue is exhausted its last entry repeats.
type stubGateway struct {
	mu      sync.Mutex
	replies map[string][]string
	errs    map[string]error
	calls   []string
	vars    map[string][]map[string]any
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		replies: make(map[string][]string),
		errs:    make(map[string]error),
		vars:    make(map[string][]map[string]any),
	}
}

func (s *stubGateway) respond(templateID string, texts ...string) *stubGateway {
	s.replies[templateID] = append(s.replies[templateID], texts...)
	return s
}

func (s *stubGateway) failWith(templateID string, err error) *stubGateway {
	s.errs[templateID] = err
	return s
}

func (s *stubGateway) Complete(ctx context.Context, templateID string, vars map[string]any) (*llm.GatewayResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, templateID)
	s.vars[templateID] = append(s.vars[templateID], vars)

	if err, ok := s.errs[templateID]; ok {
		return nil, err
	}

	queue := s.replies[templateID]
	if len(queue) == 0 {
		return nil, llm.ErrUpstreamUnavailable
	}

	text := queue[0]
	if len(queue) > 1 {
		s.replies[templateID] = queue[1:]
	}

	return &llm.GatewayResult{Text: text, ModelID: "stub-model", RequestID: "stub-req"}, nil
}

// callCount reports how many completions hit the given template.
func (s *stubGateway) callCount(templateID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range s.calls {
		if id == templateID {
			n++
		}
	}
	return n
}

// lastVars returns the variables of the most recent call to the template.
func (s *stubGateway) lastVars(templateID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.vars[templateID]
	if len(history) == 0 {
		return nil
	}
	return history[len(history)-1]
}

// Canned stage outputs shared across tests.

const stubAnalysisJSON = `{
  "email_type": "business_proposal",
  "reply_appropriateness": "recommended",
  "sentiment": "positive",
  "urgency": "medium",
  "confidence": 0.9,
  "summary": "counterpart proposes a sponsored video collaboration"
}`

const stubStrategyJSON = `{
  "primary_approach": "Confirm interest and propose concrete next steps",
  "tone_setting": "professional",
  "priority_points": ["Confirm the collaboration scope", "Propose a call this week"],
  "confidence": 0.8
}`

const stubEvaluationJSON = `{"risk_score": 0.2, "flags": []}`

func stubPatternJSON(tone string) string {
	return `{
  "tone_label": "` + tone + `",
  "body": "Thank you for reaching out about the collaboration. We would love to discuss the details. Please do not hesitate to share your timeline.",
  "rationale": "acknowledges the proposal and moves toward scheduling"
}`
}

// scriptHappyPath queues a complete successful run on the stub.
func scriptHappyPath(gw *stubGateway) {
	gw.respond(prompt.TemplateThreadAnalysis, stubAnalysisJSON)
	gw.respond(prompt.TemplateStrategyPlan, stubStrategyJSON)
	gw.respond(prompt.TemplateContentEvaluation, stubEvaluationJSON)
	for _, id := range AllPatternIDs {
		gw.respond(prompt.PatternTemplateID(string(id)), stubPatternJSON(string(id)+" tone"))
	}
}

func validProfile() SenderProfile {
	return SenderProfile{
		OrganizationName:  "InfuMatch K.K.",
		ContactPersonName: "Tanaka",
		NegotiationTone:   ToneProfessional,
		KeyPriorities:     []string{"long-term partnership"},
		ProductCatalog:    []Product{{Name: "Creator Suite", Category: "SaaS"}},
	}
}

func validRequest() *Request {
	return &Request{
		NewMessage:    "We'd like to discuss a sponsored video for your channel next month.",
		SenderProfile: validProfile(),
		ConversationHistory: []ConversationTurn{
			{Role: RoleSender, Text: "Thanks for the introduction!"},
			{Role: RoleCounterpart, Text: "Happy to connect."},
		},
	}
}
