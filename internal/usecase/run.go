package usecase

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/tracer"
)

// RunState is a task run's position in its lifecycle.
type RunState string

const (
	StateIdle             RunState = "idle"
	StateExecuting        RunState = "executing"
	StateAwaitingFeedback RunState = "awaiting-feedback"
	StateDone             RunState = "done"
)

// TaskParams carries the keyword arguments of a single task.
type TaskParams map[string]any

// TaskExecutor is the task-specific behavior every concrete agent variant
// must supply. Errors propagate to the Run caller unchanged; the core
// does not interpret them.
type TaskExecutor interface {
	ExecuteTask(ctx context.Context, params TaskParams) (string, error)
}

// TaskRun is one pass through the task-execution lifecycle. Run executes
// the task and suspends in awaiting-feedback with the first result; the
// caller resumes exactly once, either with Feedback (second result, sent
// with sender "pilot") or with Finish. Each Run processes one task; an
// outer driver re-invokes Run for the next.
type TaskRun struct {
	mu     sync.Mutex
	agent  *Agent
	state  RunState
	result string
}

// Run transitions idle -> executing, invokes the variant's ExecuteTask,
// and returns a TaskRun suspended in awaiting-feedback carrying the
// result. When a session is active the run holds its per-session lock for
// the duration of the task, so two concurrent runs cannot interleave on
// one session. A task error propagates unchanged and no TaskRun is
// produced.
func (a *Agent) Run(ctx context.Context, params TaskParams) (*TaskRun, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.run",
		trace.WithAttributes(
			tracer.StringAttr("agent.name", a.spec.Name),
			tracer.StringAttr("agent.role", string(a.spec.Role)),
		),
	)
	defer span.End()

	if a.executor == nil {
		return nil, domain.NewDomainError("Agent.Run", domain.ErrInvalidInput, "agent has no task executor")
	}

	if s := a.sessions.Active(); s != nil {
		unlock, err := a.locker.Lock(ctx, s.ID)
		if err != nil {
			tracer.RecordError(span, err)
			return nil, domain.WrapOp("Agent.Run", err)
		}
		defer unlock()
	}

	result, err := a.executor.ExecuteTask(ctx, params)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	tracer.SetOK(span)
	return &TaskRun{
		agent:  a,
		state:  StateAwaitingFeedback,
		result: result,
	}, nil
}

// State returns the run's current lifecycle state.
func (r *TaskRun) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the task result produced by ExecuteTask.
func (r *TaskRun) Result() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Feedback resumes the suspended run with caller feedback. The feedback
// is sent through the gateway with sender "pilot"; the response is the
// run's second and final result, after which the run is done. Under the
// swallow policy a failed send yields an empty result and nil error.
func (r *TaskRun) Feedback(ctx context.Context, feedback string) (string, error) {
	r.mu.Lock()
	if r.state != StateAwaitingFeedback {
		r.mu.Unlock()
		return "", domain.NewDomainError("TaskRun.Feedback", domain.ErrRunFinished, string(r.state))
	}
	r.state = StateExecuting
	r.mu.Unlock()

	resp, err := r.agent.Prompt(ctx, feedback, WithSender(domain.SenderPilot))

	r.mu.Lock()
	r.state = StateDone
	if resp != nil {
		r.result = resp.Content
	}
	r.mu.Unlock()

	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}

// Finish completes the run without feedback (awaiting-feedback -> done).
func (r *TaskRun) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateAwaitingFeedback {
		return domain.NewDomainError("TaskRun.Finish", domain.ErrRunFinished, string(r.state))
	}
	r.state = StateDone
	return nil
}
