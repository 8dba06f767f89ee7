package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infumatch/negotiator/llm"
	"github.com/infumatch/negotiator/prompt"
)

func stubAnalysis() *ThreadAnalysis {
	return &ThreadAnalysis{
		EmailType:            EmailTypeBusinessProposal,
		ReplyAppropriateness: ReplyRecommended,
		Sentiment:            "positive",
		Urgency:              "medium",
		Confidence:           0.9,
	}
}

func TestPlanParsesStrategy(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan, stubStrategyJSON)

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "", nil, "message")
	require.NoError(t, err)

	assert.Equal(t, "Confirm interest and propose concrete next steps", plan.PrimaryApproach)
	assert.Equal(t, "professional", plan.ToneSetting)
	assert.Len(t, plan.PriorityPoints, 2)
	assert.InDelta(t, 0.8, plan.Confidence, 0.001)
}

func TestPlanDiscountInstructionAlwaysLandsInPriorities(t *testing.T) {
	// The model "forgets" the discount point; the rule table restores it.
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan,
		`{"primary_approach": "Keep the conversation warm", "tone_setting": "professional", "priority_points": ["Thank them for their time"], "confidence": 0.7}`)

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "値引きを提案したい", nil, "message")
	require.NoError(t, err)

	assert.Contains(t, plan.PriorityPoints, "Present pricing flexibility and concrete discount options")
}

func TestPlanDiscountInstructionDeterministicAcrossRuns(t *testing.T) {
	varied := []string{
		`{"primary_approach": "A", "tone_setting": "professional", "priority_points": ["x"], "confidence": 0.5}`,
		`{"primary_approach": "B", "tone_setting": "casual", "priority_points": ["y", "z"], "confidence": 0.9}`,
	}

	for _, reply := range varied {
		gw := newStubGateway()
		gw.respond(prompt.TemplateStrategyPlan, reply)

		planner := NewPlanner(gw, nil)
		plan, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "we want a discount", nil, "message")
		require.NoError(t, err)

		assert.Contains(t, plan.PriorityPoints, "Present pricing flexibility and concrete discount options")
	}
}

func TestPlanPolitenessOverridesTone(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan, stubStrategyJSON)

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "丁寧な文面でお願いします", nil, "message")
	require.NoError(t, err)

	assert.Equal(t, "extra polite", plan.ToneSetting)
}

func TestPlanFiltersAvoidTopics(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan,
		`{"primary_approach": "Discuss terms", "tone_setting": "professional", "priority_points": ["Mention exclusivity terms", "Confirm the schedule"], "confidence": 0.8}`)

	profile := validProfile()
	profile.AvoidTopics = []string{"exclusivity"}

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), profile, "", nil, "message")
	require.NoError(t, err)

	assert.Equal(t, []string{"Confirm the schedule"}, plan.PriorityPoints)
}

func TestPlanDefaultsToneFromProfile(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan,
		`{"primary_approach": "Respond warmly", "priority_points": ["Say thanks"], "confidence": 0.6}`)

	profile := validProfile()
	profile.NegotiationTone = ToneFriendly

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), profile, "", nil, "message")
	require.NoError(t, err)

	assert.Equal(t, "friendly", plan.ToneSetting)
}

func TestPlanDivergentModelToneResetsToProfile(t *testing.T) {
	// No custom instructions, so nothing licenses the model to wander off
	// the configured tone.
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan,
		`{"primary_approach": "Keep it breezy", "tone_setting": "casual and playful", "priority_points": ["Say hi"], "confidence": 0.7}`)

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "", nil, "message")
	require.NoError(t, err)

	assert.Equal(t, "professional", plan.ToneSetting)
}

func TestPlanEmbellishedToneKeepsProfileAnchor(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan,
		`{"primary_approach": "Respond in kind", "tone_setting": "warm and professional", "priority_points": ["Confirm scope"], "confidence": 0.7}`)

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "", nil, "message")
	require.NoError(t, err)

	// A tone that still names the configured one is an elaboration, not a
	// divergence, and is kept as-is.
	assert.Equal(t, "warm and professional", plan.ToneSetting)
}

func TestPlanEmptyPointsGetFallback(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan,
		`{"primary_approach": "", "tone_setting": "professional", "priority_points": [], "confidence": 0.5}`)

	planner := NewPlanner(gw, nil)
	plan, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "", nil, "message")
	require.NoError(t, err)

	assert.NotEmpty(t, plan.PrimaryApproach)
	assert.NotEmpty(t, plan.PriorityPoints)
}

func TestPlanInvalidJSONIsStageError(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan, "not a strategy")

	planner := NewPlanner(gw, nil)
	_, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "", nil, "message")
	require.Error(t, err)
	assert.True(t, llm.IsInvalidResponse(err))
}

func TestPlanAdjustmentsReachThePrompt(t *testing.T) {
	gw := newStubGateway()
	gw.respond(prompt.TemplateStrategyPlan, stubStrategyJSON)

	planner := NewPlanner(gw, nil)
	_, err := planner.Plan(context.Background(), stubAnalysis(), validProfile(), "urgent discount please", nil, "message")
	require.NoError(t, err)

	vars := gw.lastVars(prompt.TemplateStrategyPlan)
	require.NotNil(t, vars)
	adjustments, _ := vars["Adjustments"].(string)
	assert.Contains(t, adjustments, "discount intent")
	assert.Contains(t, adjustments, "urgency")
}
