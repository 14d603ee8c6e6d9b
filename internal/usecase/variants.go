package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pluto-ai/internal/domain"
)

// CrewAgent is a worker agent: its task is rendered into a prompt,
// enriched with retriever context and optional tool output, and sent
// through the gateway.
type CrewAgent struct {
	*Agent
}

// NewCrewAgent constructs a crew-role agent.
func NewCrewAgent(spec domain.AgentSpec, deps AgentDeps) (*CrewAgent, error) {
	spec.Role = domain.RoleCrew
	base, err := newAgent(spec, deps)
	if err != nil {
		return nil, err
	}
	c := &CrewAgent{Agent: base}
	base.executor = c
	return c, nil
}

// ExecuteTask implements TaskExecutor. Recognized params:
//
//	task        (string, required) the task description
//	tool        (string) name of a tool to invoke first
//	tool_params (json.RawMessage or string) arguments for that tool
//	format      (json.RawMessage) structured-output schema hint
//
// Tool and retriever failures propagate unchanged.
func (c *CrewAgent) ExecuteTask(ctx context.Context, params TaskParams) (string, error) {
	task, _ := params["task"].(string)
	if task == "" {
		return "", domain.NewDomainError("CrewAgent.ExecuteTask", domain.ErrInvalidInput, "task is required")
	}

	var b strings.Builder
	b.WriteString(task)

	if docs, err := c.queryRetrievers(ctx, task); err != nil {
		return "", err
	} else if len(docs) > 0 {
		b.WriteString("\n\nRelevant context:\n")
		for _, doc := range docs {
			fmt.Fprintf(&b, "- %s\n", doc.Content)
		}
	}

	if toolName, _ := params["tool"].(string); toolName != "" {
		result, err := c.invokeTool(ctx, toolName, params["tool_params"])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n\nTool %s output:\n%s", toolName, result)
	}

	opts := []PromptOption{}
	if format, ok := params["format"].(json.RawMessage); ok {
		opts = append(opts, WithFormat(format))
	}

	resp, err := c.Prompt(ctx, b.String(), opts...)
	if err != nil {
		return "", err
	}
	if resp == nil {
		// Swallowed communication failure.
		return "", nil
	}
	return resp.Content, nil
}

func (c *CrewAgent) queryRetrievers(ctx context.Context, query string) ([]domain.RetrievedDoc, error) {
	var docs []domain.RetrievedDoc
	for _, r := range c.retrievers {
		if !r.IsAvailable() {
			continue
		}
		found, err := r.Query(ctx, query, 5)
		if err != nil {
			return nil, domain.WrapOp("CrewAgent.ExecuteTask: retriever "+r.Name(), err)
		}
		docs = append(docs, found...)
	}
	return docs, nil
}

func (c *CrewAgent) invokeTool(ctx context.Context, name string, rawParams any) (string, error) {
	tool, err := c.tools.Get(name)
	if err != nil {
		return "", err
	}

	var args json.RawMessage
	switch v := rawParams.(type) {
	case json.RawMessage:
		args = v
	case string:
		args = json.RawMessage(v)
	case nil:
		args = json.RawMessage(`{}`)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", domain.NewDomainError("CrewAgent.ExecuteTask", domain.ErrInvalidInput, "tool_params not serializable")
		}
		args = data
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// PilotAgent is an orchestrating agent: it fans a task out to its crew
// and synthesizes their results through its own gateway.
type PilotAgent struct {
	*Agent
	crew []*CrewAgent
}

// NewPilotAgent constructs a pilot-role agent over a set of crew agents.
// The crew may be empty; the pilot then answers the task itself.
func NewPilotAgent(spec domain.AgentSpec, deps AgentDeps, crew []*CrewAgent) (*PilotAgent, error) {
	spec.Role = domain.RolePilot
	base, err := newAgent(spec, deps)
	if err != nil {
		return nil, err
	}
	p := &PilotAgent{Agent: base, crew: crew}
	base.executor = p
	return p, nil
}

// ExecuteTask implements TaskExecutor. Each crew agent executes the task;
// their results are combined into a synthesis prompt sent through the
// pilot's gateway with sender "pilot". A crew failure propagates.
func (p *PilotAgent) ExecuteTask(ctx context.Context, params TaskParams) (string, error) {
	task, _ := params["task"].(string)
	if task == "" {
		return "", domain.NewDomainError("PilotAgent.ExecuteTask", domain.ErrInvalidInput, "task is required")
	}

	var b strings.Builder
	b.WriteString(task)

	for _, member := range p.crew {
		result, err := member.ExecuteTask(ctx, params)
		if err != nil {
			return "", domain.WrapOp("PilotAgent.ExecuteTask: crew "+member.Name(), err)
		}
		fmt.Fprintf(&b, "\n\nResult from %s:\n%s", member.Name(), result)
	}

	if len(p.crew) > 0 {
		b.WriteString("\n\nSynthesize the crew results above into a single answer.")
	}

	resp, err := p.Prompt(ctx, b.String(), WithSender(domain.SenderPilot))
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}
