// Package agent contains the adaptive execution loop: it obtains a plan,
// drives every step through the step state machine with retry, backoff and
// AI-assisted correction, and classifies the overall task outcome.
package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/config"
)

// StepExecutor runs exactly one action. The loop owns all retry policy.
type StepExecutor interface {
	Execute(ctx context.Context, step schemas.Step) schemas.ActionResult
}

// TaskPlanner is the model collaborator: planning, correction, verification.
type TaskPlanner interface {
	Plan(ctx context.Context, task string, env schemas.EnvironmentContext) (*schemas.Plan, error)
	DecideCorrection(ctx context.Context, step schemas.Step, lastError string, notes []string, screenshot []byte) (*schemas.CorrectionDecision, error)
	VerifyStep(ctx context.Context, step schemas.Step, expected string, screenshot []byte) *schemas.VerificationResult
	VerifyCompletion(ctx context.Context, task, criteria string, screenshot []byte) *schemas.VerificationResult
}

// DesktopProber supplies the environment snapshots the loop feeds to the
// model. Satisfied by the automation driver.
type DesktopProber interface {
	ScreenSize() (width, height int)
	ActiveWindowTitle() (string, error)
	ListWindows(ctx context.Context) ([]schemas.WindowInfo, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Agent is the top-level task driver. It performs no OS automation itself;
// every desktop effect goes through the StepExecutor.
type Agent struct {
	cfg      config.AgentConfig
	executor StepExecutor
	planner  TaskPlanner
	prober   DesktopProber
	feed     *ProgressFeed
	locale   string
	logger   *zap.Logger
}

// New assembles the loop. feed may be nil when no observer is attached.
func New(cfg config.AgentConfig, executor StepExecutor, planner TaskPlanner, prober DesktopProber, feed *ProgressFeed, locale string, logger *zap.Logger) *Agent {
	return &Agent{
		cfg:      cfg,
		executor: executor,
		planner:  planner,
		prober:   prober,
		feed:     feed,
		locale:   locale,
		logger:   logger.Named("agent"),
	}
}

type stepVerdict int

const (
	verdictSucceeded stepVerdict = iota
	verdictFailed
	verdictAborted
	verdictInjected
)

type stepResult struct {
	verdict  stepVerdict
	injected []*StepContext
}

// RunTask executes one task end to end and always returns an outcome; errors
// are folded into its status and history rather than returned.
func (a *Agent) RunTask(ctx context.Context, task string) *schemas.TaskOutcome {
	outcome := &schemas.TaskOutcome{
		TaskID:    uuid.NewString(),
		Task:      task,
		StartedAt: time.Now(),
	}
	defer func() {
		outcome.Elapsed = time.Since(outcome.StartedAt)
		if a.feed != nil {
			a.feed.Close()
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.MaxTaskDuration)
	defer cancel()

	a.logger.Info("Task started", zap.String("task_id", outcome.TaskID), zap.String("task", task))

	plan, err := a.planner.Plan(runCtx, task, a.environment(runCtx))
	if err != nil {
		outcome.Status = schemas.TaskPlanningFailed
		outcome.Summary = err.Error()
		a.logger.Error("Planning failed", zap.Error(err))
		return outcome
	}
	outcome.Summary = plan.Summary

	queue := make([]*StepContext, 0, len(plan.Steps))
	for i, s := range plan.Steps {
		queue = append(queue, NewStepContext(i, s, false))
	}

	var (
		turns     int
		aborted   bool
		anyFailed bool
	)

	total := len(plan.Steps)
	i := 0
loop:
	for i < len(queue) {
		sc := queue[i]
		res := a.driveStep(runCtx, outcome.TaskID, sc, &turns, total)

		switch res.verdict {
		case verdictInjected:
			// Corrective steps run before the step is re-attempted.
			rest := append([]*StepContext{}, queue[i:]...)
			queue = append(queue[:i], append(res.injected, rest...)...)
			continue

		case verdictSucceeded:
			outcome.History = append(outcome.History, sc.Record())
			i++

		case verdictFailed:
			anyFailed = true
			outcome.History = append(outcome.History, sc.Record())
			if !plan.AllowPartial {
				a.logger.Warn("Step failed terminally, plan forbids partial completion",
					zap.Int("step", sc.Index))
				break loop
			}
			i++

		case verdictAborted:
			aborted = true
			outcome.History = append(outcome.History, sc.Record())
			break loop
		}
	}

	outcome.Status = a.classify(runCtx, task, plan, aborted, anyFailed)
	a.logger.Info("Task finished",
		zap.String("task_id", outcome.TaskID),
		zap.String("status", string(outcome.Status)),
		zap.Int("turns", turns))
	return outcome
}

// driveStep runs one step's state machine until it is terminal or needs the
// queue mutated (injected corrective steps).
func (a *Agent) driveStep(ctx context.Context, taskID string, sc *StepContext, turns *int, total int) stepResult {
	for {
		// Budget checks sit at every attempt boundary.
		if ctx.Err() != nil {
			return a.abort(sc, "task budget expired: "+ctx.Err().Error())
		}
		if *turns >= a.cfg.MaxTurns {
			return a.abort(sc, fmt.Sprintf("turn budget of %d exhausted", a.cfg.MaxTurns))
		}
		*turns++

		if err := sc.Transition(StepExecuting); err != nil {
			sc.LastError = err.Error()
			sc.Status = StepFailed
			return stepResult{verdict: verdictFailed}
		}
		a.publish(taskID, sc, total, "executing", fmt.Sprintf("%s %s", sc.Step.Action, sc.Step.Target))

		result := a.executor.Execute(ctx, sc.Step)
		sc.Result = &result

		timedOut := false
		if result.Success {
			if done, verdict := a.verifyOutcome(ctx, sc); done {
				if verdict.verdict == verdictSucceeded {
					a.publish(taskID, sc, total, "succeeded", result.Message)
					a.settle(ctx)
				}
				return verdict
			}
			// Verification failed; sc is FAILED with LastError set.
		} else {
			_ = sc.Transition(StepFailed)
			sc.LastError = result.Message
			sc.AddNote(fmt.Sprintf("attempt %d failed: %s", sc.RetryCount+1, result.Message))
			if v, ok := result.Metadata["timed_out"].(bool); ok && v {
				timedOut = true
			}
		}

		// A timed-out action burned far more wall clock than a normal
		// failure, so it spends two retry credits.
		credits := 1
		if timedOut {
			credits = 2
		}

		if sc.RetryCount < a.cfg.MaxRetries {
			sc.RetryCount += credits
			delay := a.retryDelay(sc.RetryCount)
			a.publish(taskID, sc, total, "retrying",
				fmt.Sprintf("retry %d/%d in %s", sc.RetryCount, a.cfg.MaxRetries, delay))
			if !sleepCtx(ctx, delay) {
				return a.abort(sc, "task budget expired during retry wait")
			}
			// FAILED -> EXECUTING happens at the top of the loop.
			continue
		}

		if sc.Corrected {
			a.publish(taskID, sc, total, "failed", sc.LastError)
			return stepResult{verdict: verdictFailed}
		}
		res, retryHere := a.correct(ctx, taskID, sc, total)
		if retryHere {
			continue
		}
		return res
	}
}

// verifyOutcome handles the post-success verification branch. It returns
// done=false when verification failed and the step should re-enter the
// retry path.
func (a *Agent) verifyOutcome(ctx context.Context, sc *StepContext) (bool, stepResult) {
	if sc.Step.ExpectedOutcome == "" || !a.cfg.VerifyActions || a.prober == nil {
		_ = sc.Transition(StepSucceeded)
		return true, stepResult{verdict: verdictSucceeded}
	}

	_ = sc.Transition(StepVerifying)

	shot, err := a.prober.Screenshot(ctx)
	if err != nil {
		// No screenshot means no evidence either way; the action itself
		// reported success, so let it stand.
		sc.AddNote("verification skipped, screenshot unavailable: " + err.Error())
		_ = sc.Transition(StepSucceeded)
		return true, stepResult{verdict: verdictSucceeded}
	}

	// The deadline is re-checked before every model consultation.
	if ctx.Err() != nil {
		r := a.abort(sc, "task budget expired before verification")
		return true, r
	}

	v := a.planner.VerifyStep(ctx, sc.Step, sc.Step.ExpectedOutcome, shot)
	sc.Verification = v
	if v.Success {
		_ = sc.Transition(StepSucceeded)
		return true, stepResult{verdict: verdictSucceeded}
	}

	_ = sc.Transition(StepFailed)
	sc.LastError = "verification failed: " + v.Issue
	sc.AddNote(sc.LastError)
	return false, stepResult{}
}

// correct spends the step's single AI correction: revised arguments,
// injected steps, or abandonment. The boolean reports that the same step
// should simply be re-attempted in place.
func (a *Agent) correct(ctx context.Context, taskID string, sc *StepContext, total int) (stepResult, bool) {
	if ctx.Err() != nil {
		return a.abort(sc, "task budget expired before correction"), false
	}

	_ = sc.Transition(StepCorrecting)
	sc.Corrected = true
	a.publish(taskID, sc, total, "correcting", sc.LastError)

	var shot []byte
	if a.prober != nil {
		if s, err := a.prober.Screenshot(ctx); err == nil {
			shot = s
		}
	}

	decision, err := a.planner.DecideCorrection(ctx, sc.Step, sc.LastError, sc.ReasoningNotes, shot)
	if err != nil {
		sc.AddNote("correction unavailable: " + err.Error())
		_ = sc.Transition(StepFailed)
		return stepResult{verdict: verdictFailed}, false
	}

	if decision.Analysis != "" {
		sc.AddNote("correction: " + decision.Analysis)
	}
	if decision.Abandon {
		sc.AddNote("step abandoned by correction")
		_ = sc.Transition(StepFailed)
		return stepResult{verdict: verdictFailed}, false
	}

	if decision.RevisedTarget != "" {
		sc.Step.Target = decision.RevisedTarget
	}
	for k, v := range decision.RevisedArgs {
		if sc.Step.Args == nil {
			sc.Step.Args = make(map[string]any)
		}
		sc.Step.Args[k] = v
	}

	// The corrected step starts over with a fresh retry budget.
	sc.RetryCount = 0
	_ = sc.Transition(StepPending)

	if len(decision.InjectedSteps) > 0 {
		injected := make([]*StepContext, 0, len(decision.InjectedSteps))
		for i, s := range decision.InjectedSteps {
			c := NewStepContext(sc.Index, s, true)
			c.SubIndex = i + 1
			injected = append(injected, c)
		}
		a.logger.Info("Correction injected steps",
			zap.Int("step", sc.Index),
			zap.Int("count", len(injected)))
		return stepResult{verdict: verdictInjected, injected: injected}, false
	}
	return stepResult{}, true
}

func (a *Agent) abort(sc *StepContext, reason string) stepResult {
	sc.AddNote(reason)
	_ = sc.Transition(StepAborted)
	a.logger.Warn("Step aborted", zap.Int("step", sc.Index), zap.String("reason", reason))
	return stepResult{verdict: verdictAborted}
}

// classify folds the run's flags and an optional final verification into the
// task-level status.
func (a *Agent) classify(ctx context.Context, task string, plan *schemas.Plan, aborted, anyFailed bool) schemas.TaskStatus {
	switch {
	case aborted:
		return schemas.TaskAborted
	case anyFailed && !plan.AllowPartial:
		return schemas.TaskFailed
	}

	goalReached := true
	if plan.SuccessCriteria != "" && a.prober != nil && ctx.Err() == nil {
		if shot, err := a.prober.Screenshot(ctx); err == nil {
			goalReached = a.planner.VerifyCompletion(ctx, task, plan.SuccessCriteria, shot).Success
		}
	}

	switch {
	case !goalReached:
		return schemas.TaskFailed
	case anyFailed:
		return schemas.TaskPartiallyDone
	default:
		return schemas.TaskSucceeded
	}
}

// retryDelay computes the exponential backoff for the given retry number:
// base, base*growth, base*growth^2, ... capped at the configured maximum.
func (a *Agent) retryDelay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := time.Duration(float64(a.cfg.RetryBackoffBase) * math.Pow(a.cfg.RetryBackoffGrowth, float64(retry-1)))
	if a.cfg.RetryBackoffMax > 0 && d > a.cfg.RetryBackoffMax {
		d = a.cfg.RetryBackoffMax
	}
	return d
}

func (a *Agent) settle(ctx context.Context) {
	if a.cfg.ActionDelay > 0 {
		sleepCtx(ctx, a.cfg.ActionDelay)
	}
}

func (a *Agent) publish(taskID string, sc *StepContext, total int, status, message string) {
	if a.feed == nil {
		return
	}
	a.feed.Publish(schemas.ProgressUpdate{
		TaskID:    taskID,
		StepIndex: sc.Index,
		SubIndex:  sc.SubIndex,
		Total:     total,
		Status:    status,
		Message:   message,
	})
}

// environment snapshots the desktop for the planning prompt. Best effort;
// planning proceeds with whatever could be read.
func (a *Agent) environment(ctx context.Context) schemas.EnvironmentContext {
	env := schemas.EnvironmentContext{Locale: a.locale}
	if a.prober == nil {
		return env
	}

	env.ScreenWidth, env.ScreenHeight = a.prober.ScreenSize()
	if title, err := a.prober.ActiveWindowTitle(); err == nil {
		env.ActiveWindow = title
	}
	if windows, err := a.prober.ListWindows(ctx); err == nil {
		for _, w := range windows {
			env.OpenWindows = append(env.OpenWindows, w.Title)
		}
	}
	return env
}

// sleepCtx waits for d or until the context ends; it reports whether the
// full wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
