package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"pluto-ai/internal/domain"
	"pluto-ai/internal/infra/tracer"
)

// GatewayFactory builds a communication gateway bound to a specific
// (model, personality) pair. Each agent owns exactly one gateway.
type GatewayFactory func(model, personality string) domain.Gateway

// AgentDeps holds injected dependencies for an agent.
type AgentDeps struct {
	NewGateway     GatewayFactory
	Logger         *slog.Logger
	SessionDataDir string        // empty = in-memory sessions only
	Locker         *SessionLocker // optional; created when nil
	DefaultTools   []domain.Tool  // used when the spec declares no tools
}

// Agent wraps a model prompt/response cycle with personality and session
// state. Construct concrete variants with NewPilotAgent / NewCrewAgent.
type Agent struct {
	spec domain.AgentSpec

	// mu guards personality and gateway, which RebuildPersonality swaps
	// out while prompts may be in flight.
	mu          sync.RWMutex
	personality string
	gateway     domain.Gateway

	newGateway  GatewayFactory
	sessions    *SessionManager
	locker      *SessionLocker
	tools       *toolSet
	retrievers  []domain.Retriever
	logger      *slog.Logger
	executor    TaskExecutor
}

// newAgent builds the shared agent core. Variants attach their executor.
func newAgent(spec domain.AgentSpec, deps AgentDeps) (*Agent, error) {
	if spec.Role == "" {
		spec.Role = domain.RoleCrew
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if deps.NewGateway == nil {
		return nil, domain.NewDomainError("NewAgent", domain.ErrInvalidInput, "gateway factory is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Locker == nil {
		deps.Locker = NewSessionLocker()
	}

	personality, err := BuildPersonality(spec.Instructions, spec.Tendencies)
	if err != nil {
		return nil, err
	}

	// The default tool set is copied per agent so no two agents share a
	// mutable slice.
	tools := spec.Tools
	if tools == nil && len(deps.DefaultTools) > 0 {
		tools = make([]domain.Tool, len(deps.DefaultTools))
		copy(tools, deps.DefaultTools)
	}

	return &Agent{
		spec:        spec,
		personality: personality,
		gateway:     deps.NewGateway(spec.Model, personality),
		newGateway:  deps.NewGateway,
		sessions:    NewSessionManager(spec.Name, deps.SessionDataDir),
		locker:      deps.Locker,
		tools:       newToolSet(tools),
		retrievers:  spec.Retrievers,
		logger:      deps.Logger,
	}, nil
}

// Name returns the agent's unique name.
func (a *Agent) Name() string { return a.spec.Name }

// Role returns the agent's declared role.
func (a *Agent) Role() domain.Role { return a.spec.Role }

// Personality returns the persona text the gateway is currently bound to.
func (a *Agent) Personality() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.personality
}

// Tools returns the agent's tool executor.
func (a *Agent) Tools() domain.ToolExecutor { return a.tools }

// Retrievers returns the agent's knowledge sources.
func (a *Agent) Retrievers() []domain.Retriever { return a.retrievers }

// RebuildPersonality recomputes the personality from the current
// instructions and tendencies and rebinds the gateway to it. The
// personality is a pure function of those inputs at build time; callers
// that mutate tendencies must call this explicitly.
func (a *Agent) RebuildPersonality() error {
	personality, err := BuildPersonality(a.spec.Instructions, a.spec.Tendencies)
	if err != nil {
		return err
	}
	gateway := a.newGateway(a.spec.Model, personality)
	a.mu.Lock()
	a.personality = personality
	a.gateway = gateway
	a.mu.Unlock()
	return nil
}

// PromptOption customizes a single Prompt call.
type PromptOption func(*domain.Prompt)

// WithSender tags the prompt with a sender identity other than "user".
func WithSender(sender string) PromptOption {
	return func(p *domain.Prompt) { p.Sender = sender }
}

// WithFormat attaches a structured-output JSON schema hint.
func WithFormat(schema json.RawMessage) PromptOption {
	return func(p *domain.Prompt) { p.Format = schema }
}

// Prompt sends a message through the agent's gateway. Failure behavior is
// governed by the spec's SwallowCommErrors policy: when swallowing, a
// communication error is logged and (nil, nil) is returned — callers must
// treat a nil response as "request failed". When propagating, the typed
// error surfaces. Both the prompt and any response are recorded in the
// active session when one exists.
func (a *Agent) Prompt(ctx context.Context, message string, opts ...PromptOption) (*domain.PromptResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.prompt",
		trace.WithAttributes(tracer.StringAttr("agent.name", a.spec.Name)),
	)
	defer span.End()

	p := domain.Prompt{Message: message, Sender: domain.SenderUser}
	for _, opt := range opts {
		opt(&p)
	}

	s := a.sessions.Active()
	if s != nil {
		s.AddMessage(domain.Message{Sender: p.Sender, Content: p.Message, Timestamp: time.Now()})
		// Write the transcript through regardless of how the send ends.
		defer a.persistSession(s)
	}

	a.mu.RLock()
	gateway := a.gateway
	a.mu.RUnlock()

	resp, err := gateway.SendPrompt(ctx, p)
	if err != nil {
		tracer.RecordError(span, err)
		if a.spec.SwallowCommErrors && domain.IsCommunicationError(err) {
			a.logger.Error("prompt failed",
				"agent", a.spec.Name,
				"sender", p.Sender,
				"code", domain.ErrorCodeOf(err),
				"error", err,
			)
			return nil, nil
		}
		return nil, domain.WrapOp("Agent.Prompt", err)
	}

	if s != nil {
		s.AddMessage(domain.Message{Sender: a.spec.Model, Content: resp.Content, Timestamp: time.Now()})
	}

	tracer.SetOK(span)
	return resp, nil
}

// persistSession writes a session through to disk. Persistence failures
// are logged, never surfaced; the in-memory transcript stays usable.
func (a *Agent) persistSession(s *Session) {
	if err := a.sessions.Save(s.ID); err != nil {
		a.logger.Warn("session save failed",
			"agent", a.spec.Name,
			"session", s.ID,
			"error", err,
		)
	}
}

// ReinforcePersonality rebuilds the personality, wraps it in the fixed
// reminder template, and sends it with sender "creator". Returns true on
// success; any failure is logged and collapsed to false.
func (a *Agent) ReinforcePersonality(ctx context.Context) bool {
	if err := a.RebuildPersonality(); err != nil {
		a.logger.Error("error reinforcing personality", "agent", a.spec.Name, "error", err)
		return false
	}

	reminder := reminderText(a.Personality())
	resp, err := a.Prompt(ctx, reminder, WithSender(domain.SenderCreator))
	if err != nil {
		a.logger.Error("error reinforcing personality", "agent", a.spec.Name, "error", err)
		return false
	}
	// Under the swallow policy a failed send presents as a nil response.
	return resp != nil
}

// StartSession creates and activates a new session.
func (a *Agent) StartSession() *Session {
	return a.sessions.Start()
}

// LoadSession activates an existing session by ID. A miss returns
// (nil, false) and leaves the active session unchanged.
func (a *Agent) LoadSession(id string) (*Session, bool) {
	return a.sessions.Load(id)
}

// ActiveSession returns the active session, or nil if none was started.
func (a *Agent) ActiveSession() *Session {
	return a.sessions.Active()
}

// Sessions exposes the agent's session manager (persistence, reaping).
func (a *Agent) Sessions() *SessionManager {
	return a.sessions
}

// Status returns a read-only snapshot of the agent.
func (a *Agent) Status() domain.AgentStatus {
	return domain.AgentStatus{
		Name:           a.spec.Name,
		Model:          a.spec.Model,
		Role:           a.spec.Role,
		ActiveSessions: a.sessions.Count(),
	}
}
