package usecase

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// Orchestrator is the interview state machine. Each Step takes the
// persisted state plus an optional candidate answer, runs internal ticks
// to quiescence (evaluate the answer, advance the phase, produce the next
// question) and returns the successor state. The input state is never
// mutated; callers persist the returned one.
type Orchestrator struct {
	Planner      PlannerService
	Generator    GeneratorService
	Personalizer PersonalizerService
	Evaluator    EvaluatorService
}

// NewOrchestrator constructs an Orchestrator with its agent services.
func NewOrchestrator(p PlannerService, g GeneratorService, pe PersonalizerService, e EvaluatorService) Orchestrator {
	return Orchestrator{Planner: p, Generator: g, Personalizer: pe, Evaluator: e}
}

// StepResult is the externally visible outcome of one engine step.
type StepResult struct {
	State      domain.InterviewState
	Question   string
	Evaluation *domain.EvaluationRecord
	Completed  bool
}

// maxEngineTicks bounds the internal tick loop. A healthy step settles in
// at most four ticks (evaluate, phase hop, generate, wait); hitting the
// bound means the phase logic stopped converging.
const maxEngineTicks = 12

// InitializeSession builds the initial state for a new session.
func (o Orchestrator) InitializeSession(sessionID, resumeID, jobRole string, summary *domain.ResumeSummary, totalQuestions int) domain.InterviewState {
	return domain.NewInterviewState(sessionID, resumeID, jobRole, summary, totalQuestions)
}

// Step advances the interview by one external exchange. userAnswer is ""
// for the very first step of a session; afterwards it carries the
// candidate's reply to the last delivered question. Step never returns an
// error: agent failures either degrade inside the agents or land the
// session in a terminal error state.
func (o Orchestrator) Step(ctx domain.Context, state domain.InterviewState, userAnswer string) StepResult {
	tracer := otel.Tracer("interview.engine")
	ctx, span := tracer.Start(ctx, "Engine.Step")
	defer span.End()

	st := state.Clone()
	if st.DomainCoverage == nil {
		st.DomainCoverage = map[string]int{}
	}

	if userAnswer != "" && st.Status == domain.StatusActive && len(st.PreviousQuestions) > 0 {
		last := st.PreviousQuestions[len(st.PreviousQuestions)-1]
		st.UserAnswers = append(st.UserAnswers, domain.AnswerRecord{Question: last.Text, Answer: userAnswer})
		st.NextAction = domain.ActionEvaluate
	}

	var evaluation *domain.EvaluationRecord
	ticks := 0
tickLoop:
	for ; ticks < maxEngineTicks; ticks++ {
		switch domain.Routing(st.Status, st.NextAction) {
		case domain.ActionComplete:
			break tickLoop
		case domain.ActionEvaluate:
			evalCtx, evalSpan := tracer.Start(ctx, "Engine.Step.evaluate")
			evaluation = o.evaluateTick(evalCtx, &st)
			evalSpan.End()
		default:
			genCtx, genSpan := tracer.Start(ctx, "Engine.Step.generate")
			o.generateTick(genCtx, &st)
			genSpan.End()
		}
	}
	if ticks == maxEngineTicks && domain.Routing(st.Status, st.NextAction) != domain.ActionComplete {
		slog.Error("engine tick budget exhausted",
			slog.String("session_id", st.SessionID),
			slog.String("phase", string(st.Phase)))
		st.Status = domain.StatusError
		st.LastError = "engine tick budget exhausted"
		st.NextAction = domain.ActionComplete
		observability.FinishSession(string(st.Status))
	}

	result := StepResult{Evaluation: evaluation}
	if st.NextAction == domain.ActionWait && st.PendingQuestion != nil {
		q := *st.PendingQuestion
		st.PreviousQuestions = append(st.PreviousQuestions, q)
		st.QuestionCount++
		st.DomainCoverage[q.Domain]++
		st.PendingQuestion = nil
		result.Question = q.Text
		observability.DeliverQuestion(string(st.Phase))
		slog.Info("question delivered",
			slog.String("session_id", st.SessionID),
			slog.String("domain", q.Domain),
			slog.String("difficulty", string(q.Difficulty)),
			slog.Int("question_count", st.QuestionCount))
	}
	result.State = st
	result.Completed = st.Status == domain.StatusCompleted || st.Status == domain.StatusError
	return result
}

// evaluateTick scores the most recent (question, answer) pair and hands
// control back to the phase logic.
func (o Orchestrator) evaluateTick(ctx domain.Context, st *domain.InterviewState) *domain.EvaluationRecord {
	if len(st.PreviousQuestions) == 0 || len(st.UserAnswers) == 0 {
		// Nothing to evaluate; an answer without a question is dropped.
		st.NextAction = domain.ActionGenerateQuestion
		return nil
	}
	q := st.PreviousQuestions[len(st.PreviousQuestions)-1]
	ans := st.UserAnswers[len(st.UserAnswers)-1]
	rec := o.Evaluator.Evaluate(ctx, q, ans.Answer)
	st.EvaluationHistory = append(st.EvaluationHistory, rec)
	st.NextAction = domain.ActionGenerateQuestion
	return &rec
}

// generateTick runs one transition of the phase machine.
func (o Orchestrator) generateTick(ctx domain.Context, st *domain.InterviewState) {
	switch st.Phase {
	case domain.PhaseGreeting:
		st.Phase = domain.PhaseIntroQuestion
		st.NextAction = domain.ActionGenerateQuestion

	case domain.PhaseIntroQuestion:
		if st.QuestionCount == 0 {
			text := o.Generator.Intro(ctx, st.JobRole)
			st.PendingQuestion = &domain.QuestionRecord{
				Text:       text,
				Domain:     domain.IntroductionDomain,
				Difficulty: domain.DifficultyEasy,
				Round:      st.QuestionCount + 1,
			}
			st.NextAction = domain.ActionWait
			return
		}
		// The intro answer is in; freeze the plan and move to the
		// technical rounds. The plan is computed exactly once.
		if len(st.PlannedDomains) == 0 {
			st.PlannedDomains, st.DifficultySequence = o.Planner.Plan(ctx, st.ResumeSummary, st.JobRole, st.TotalQuestions)
		}
		st.Phase = domain.PhaseTechnicalQuestion
		st.NextAction = domain.ActionGenerateQuestion

	case domain.PhaseTechnicalQuestion:
		idx := st.QuestionCount - 1
		if idx >= st.TotalQuestions {
			st.Phase = domain.PhaseClosing
			st.Status = domain.StatusCompleted
			st.NextAction = domain.ActionComplete
			observability.FinishSession(string(st.Status))
			slog.Info("interview complete",
				slog.String("session_id", st.SessionID),
				slog.Int("questions", st.QuestionCount),
				slog.Int("evaluations", len(st.EvaluationHistory)))
			return
		}
		o.technicalQuestion(ctx, st, idx)

	case domain.PhaseClosing:
		st.Status = domain.StatusCompleted
		st.NextAction = domain.ActionComplete
		observability.FinishSession(string(st.Status))

	default:
		st.Status = domain.StatusError
		st.LastError = fmt.Sprintf("unknown phase %q", st.Phase)
		st.NextAction = domain.ActionComplete
		observability.FinishSession(string(st.Status))
	}
}

// technicalQuestion generates, personalizes and stages the idx-th
// technical question.
func (o Orchestrator) technicalQuestion(ctx domain.Context, st *domain.InterviewState, idx int) {
	if len(st.PlannedDomains) == 0 {
		// A state persisted before planning landed here; plan now.
		st.PlannedDomains, st.DifficultySequence = o.Planner.Plan(ctx, st.ResumeSummary, st.JobRole, st.TotalQuestions)
	}
	dom := st.PlannedDomains[idx%len(st.PlannedDomains)]
	diff := o.difficultyAt(st, idx)

	var snippet string
	if st.ResumeSummary != nil {
		snippet = st.ResumeSummary.CandidateOverview
	}
	gen, err := o.Generator.Generate(ctx, dom, diff, st.JobRole, snippet)
	if err != nil {
		slog.Error("question generation failed, ending session",
			slog.String("session_id", st.SessionID),
			slog.String("domain", dom),
			slog.Any("error", err))
		st.Status = domain.StatusError
		st.LastError = err.Error()
		st.NextAction = domain.ActionComplete
		observability.FinishSession(string(st.Status))
		return
	}

	intent := fmt.Sprintf("Assess %s skills", dom)
	text := o.Personalizer.Personalize(ctx, gen.Text, dom, st.ResumeID, intent)

	st.Difficulty = diff
	st.PendingQuestion = &domain.QuestionRecord{
		Text:       text,
		Domain:     dom,
		Difficulty: diff,
		Round:      st.QuestionCount + 1,
		KeyPoints:  gen.KeyPoints,
	}
	st.NextAction = domain.ActionWait
}

// difficultyAt reads the frozen difficulty plan, recomputing the ramp for
// states persisted before a plan was stored.
func (o Orchestrator) difficultyAt(st *domain.InterviewState, idx int) domain.Difficulty {
	seq := st.DifficultySequence
	if idx >= len(seq) {
		seq = domain.DifficultySequenceFor(st.TotalQuestions)
	}
	if idx < len(seq) {
		return seq[idx]
	}
	return domain.DifficultyMedium
}
