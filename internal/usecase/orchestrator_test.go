package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// scriptedGateway returns a fake gateway that plays a competent model for
// every agent in the pipeline, keyed on prompt markers.
func scriptedGateway() *fakeGateway {
	gw := &fakeGateway{}
	gw.genFn = func(req domain.GenerateRequest) (string, error) {
		p := strings.ToLower(req.System + " " + req.Prompt)
		switch {
		case strings.Contains(p, "introduce themselves"):
			return "Tell me about your journey in data engineering and what excites you about this role?", nil
		case strings.Contains(p, "technically perfect answer"):
			return "A strong answer defines the concept precisely and explains the why behind it.", nil
		case strings.Contains(p, "senior technical interviewer"):
			return "Given your ETL pipeline work, how would you decide between a clustered and a non-clustered index for a high-volume analytics table?", nil
		case strings.Contains(p, "### instruction:"):
			return "Explain the difference between a clustered and non-clustered index.", nil
		}
		return "", fmt.Errorf("unscripted generate call")
	}
	gw.jsnFn = func(req domain.GenerateRequest) (map[string]any, error) {
		p := strings.ToLower(req.System + " " + req.Prompt)
		switch {
		case strings.Contains(p, "'domains' key"):
			return map[string]any{"domains": []any{"SQL", "python", "Quantum Basketweaving"}}, nil
		case strings.Contains(p, "'key_points' key"):
			return map[string]any{"key_points": []any{"index structure", "lookup cost"}}, nil
		case strings.Contains(p, "evaluation protocol"):
			return map[string]any{
				"analysis":           "Covers the main distinction.",
				"technical_accuracy": 0.85,
				"completeness":       0.8,
				"clarity":            0.75,
				"overall_score":      0.8,
				"feedback":           "Solid answer with room for more depth.",
			}, nil
		}
		return map[string]any{}, nil
	}
	return gw
}

func newTestOrchestrator(t *testing.T, gw *fakeGateway) Orchestrator {
	t.Helper()
	vocab := testVocab(t)
	rc := &fakeResumeCtx{byDomain: map[string][]string{
		"SQL": {"Built an ETL pipeline loading 2TB daily into a columnar warehouse"},
	}}
	return NewOrchestrator(
		NewPlannerService(gw, vocab),
		NewGeneratorService(gw),
		NewPersonalizerService(gw, rc),
		NewEvaluatorService(gw),
	)
}

func TestOrchestrator_FullSession(t *testing.T) {
	ctx := context.Background()
	gw := scriptedGateway()
	o := newTestOrchestrator(t, gw)

	summary := &domain.ResumeSummary{
		CandidateOverview:  "Data engineer with five years of pipeline experience.",
		RecommendedDomains: []string{"SQL"},
	}
	state := o.InitializeSession("sess-1", "res-1", "Data Engineer", summary, 2)

	// First step opens with the intro question.
	r1 := o.Step(ctx, state, "")
	require.NotEmpty(t, r1.Question)
	assert.False(t, r1.Completed)
	assert.Nil(t, r1.Evaluation)
	assert.Equal(t, domain.PhaseIntroQuestion, r1.State.Phase)
	assert.Equal(t, 1, r1.State.QuestionCount)
	require.Len(t, r1.State.PreviousQuestions, 1)
	assert.Equal(t, domain.IntroductionDomain, r1.State.PreviousQuestions[0].Domain)
	assert.Equal(t, domain.DifficultyEasy, r1.State.PreviousQuestions[0].Difficulty)
	require.NoError(t, r1.State.Validate())

	// The intro answer freezes the plan and yields the first technical
	// question. Invalid planner suggestions must be discarded.
	r2 := o.Step(ctx, r1.State, "I've spent five years building data platforms.")
	require.NotEmpty(t, r2.Question)
	require.NotNil(t, r2.Evaluation)
	assert.Equal(t, domain.IntroductionDomain, r2.Evaluation.Domain)
	assert.Equal(t, domain.PhaseTechnicalQuestion, r2.State.Phase)
	assert.Equal(t, 2, r2.State.QuestionCount)
	assert.Equal(t, []string{"SQL", "Python", "System Design", "Machine Learning"}, r2.State.PlannedDomains)
	assert.NotContains(t, r2.State.PlannedDomains, "Quantum Basketweaving")
	require.Len(t, r2.State.DifficultySequence, 2)
	assert.Equal(t, "SQL", r2.State.PreviousQuestions[1].Domain)
	assert.Equal(t, []string{"index structure", "lookup cost"}, r2.State.PreviousQuestions[1].KeyPoints)
	require.NoError(t, r2.State.Validate())

	// Second technical answer.
	r3 := o.Step(ctx, r2.State, "Clustered indexes order the table itself; non-clustered ones point into it.")
	require.NotEmpty(t, r3.Question)
	require.NotNil(t, r3.Evaluation)
	assert.InDelta(t, 0.8, r3.Evaluation.Score, 1e-9)
	assert.Equal(t, 3, r3.State.QuestionCount)
	assert.Equal(t, "Python", r3.State.PreviousQuestions[2].Domain)
	require.NoError(t, r3.State.Validate())

	// Final answer: evaluation lands, session closes, no further question.
	r4 := o.Step(ctx, r3.State, "I would profile the workload before choosing.")
	assert.True(t, r4.Completed)
	assert.Empty(t, r4.Question)
	require.NotNil(t, r4.Evaluation)
	assert.Equal(t, domain.StatusCompleted, r4.State.Status)
	assert.Equal(t, domain.PhaseClosing, r4.State.Phase)
	assert.Len(t, r4.State.EvaluationHistory, 3)
	assert.Equal(t, 3, r4.State.QuestionCount)
	require.NoError(t, r4.State.Validate())

	// Coverage bookkeeping followed delivery.
	assert.Equal(t, 1, r4.State.DomainCoverage[domain.IntroductionDomain])
	assert.Equal(t, 1, r4.State.DomainCoverage["SQL"])
	assert.Equal(t, 1, r4.State.DomainCoverage["Python"])

	// The plan was computed exactly once for the whole session.
	planCalls := 0
	for _, req := range gw.jsnCalls {
		if strings.Contains(req.System, "'domains' key") {
			planCalls++
		}
	}
	assert.Equal(t, 1, planCalls)
}

func TestOrchestrator_StepOnTerminalStateIsNoOp(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, scriptedGateway())

	state := o.InitializeSession("sess-dead", "res-1", "Data Engineer", nil, 5)
	state.Status = domain.StatusCompleted

	r := o.Step(ctx, state, "anything")
	assert.True(t, r.Completed)
	assert.Empty(t, r.Question)
	assert.Nil(t, r.Evaluation)
	assert.Equal(t, 0, r.State.QuestionCount)
	assert.Empty(t, r.State.UserAnswers)
}

func TestOrchestrator_IntroFallbackOnGatewayError(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{genFn: func(domain.GenerateRequest) (string, error) {
		return "", fmt.Errorf("%w: upstream down", domain.ErrGeneration)
	}}
	o := newTestOrchestrator(t, gw)

	state := o.InitializeSession("sess-2", "res-1", "Data Engineer", nil, 5)
	r := o.Step(ctx, state, "")

	assert.Equal(t, introErrorFallback, r.Question)
	assert.Equal(t, domain.StatusActive, r.State.Status)
	assert.False(t, r.Completed)
	assert.Equal(t, 1, r.State.QuestionCount)
}

func TestOrchestrator_GeneratorFailureEndsSession(t *testing.T) {
	ctx := context.Background()
	gw := scriptedGateway()
	base := gw.genFn
	gw.genFn = func(req domain.GenerateRequest) (string, error) {
		if strings.Contains(req.Prompt, "### Instruction:") {
			return "", fmt.Errorf("%w: model refused", domain.ErrGeneration)
		}
		return base(req)
	}
	o := newTestOrchestrator(t, gw)

	state := o.InitializeSession("sess-3", "res-1", "Data Engineer", nil, 5)
	r1 := o.Step(ctx, state, "")
	require.NotEmpty(t, r1.Question)

	r2 := o.Step(ctx, r1.State, "Here is my background.")
	assert.True(t, r2.Completed)
	assert.Empty(t, r2.Question)
	assert.Equal(t, domain.StatusError, r2.State.Status)
	assert.NotEmpty(t, r2.State.LastError)
	// The intro evaluation still landed before the failure.
	require.NotNil(t, r2.Evaluation)
	assert.Len(t, r2.State.EvaluationHistory, 1)
}

func TestOrchestrator_SerializeRoundTripMidSession(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, scriptedGateway())

	state := o.InitializeSession("sess-4", "res-1", "Data Engineer", nil, 3)
	r1 := o.Step(ctx, state, "")

	blob, err := domain.MarshalState(r1.State)
	require.NoError(t, err)
	restored, err := domain.UnmarshalState(blob)
	require.NoError(t, err)

	answer := "I focus on analytics infrastructure."
	direct := o.Step(ctx, r1.State, answer)
	viaBlob := o.Step(ctx, restored, answer)

	assert.Equal(t, direct.Question, viaBlob.Question)
	assert.Equal(t, direct.State.QuestionCount, viaBlob.State.QuestionCount)
	assert.Equal(t, direct.State.PlannedDomains, viaBlob.State.PlannedDomains)
	require.NotNil(t, direct.Evaluation)
	require.NotNil(t, viaBlob.Evaluation)
	assert.InDelta(t, direct.Evaluation.Score, viaBlob.Evaluation.Score, 1e-9)

	directBlob, err := domain.MarshalState(direct.State)
	require.NoError(t, err)
	viaBlobBlob, err := domain.MarshalState(viaBlob.State)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(directBlob, viaBlobBlob))
}

func TestOrchestrator_StepDoesNotMutateInput(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, scriptedGateway())

	// Use a mid-session state so the slices and maps are populated and
	// any aliasing between input and output would show up.
	r1 := o.Step(ctx, o.InitializeSession("sess-5", "res-1", "Data Engineer", nil, 5), "")
	before, err := domain.MarshalState(r1.State)
	require.NoError(t, err)

	_ = o.Step(ctx, r1.State, "Answering the intro question at length here.")

	after, err := domain.MarshalState(r1.State)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after), "input state must stay untouched")
}

func TestOrchestrator_CountsStayConsistentEveryStep(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(t, scriptedGateway())

	state := o.InitializeSession("sess-6", "res-1", "Data Engineer", nil, 3)
	answers := []string{"", "intro answer here", "first technical answer", "second technical answer", "third technical answer"}
	for i, ans := range answers {
		r := o.Step(ctx, state, ans)
		require.NoErrorf(t, r.State.Validate(), "step %d broke an invariant", i)
		assert.Equalf(t, r.State.QuestionCount, len(r.State.PreviousQuestions), "step %d count drift", i)
		state = r.State
		if r.Completed {
			break
		}
	}
	assert.Equal(t, domain.StatusCompleted, state.Status)
}
